package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/router"
)

func runChain(t *testing.T, mw []router.Middleware, handler router.Handler, req *http.Request) *http.Response {
	t.Helper()
	r := router.New([]router.RouteEntry{{
		Method:     req.Method,
		Pattern:    router.MustPattern(req.Path()),
		Handler:    handler,
		Middleware: mw,
	}})
	resp, err := r.Dispatch(req, router.NewContext(arena.New(0)))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	return resp
}

func TestRecoveryConvertsPanic(t *testing.T) {
	req := &http.Request{Method: http.MethodGet, URI: "/boom"}
	resp := runChain(t, []router.Middleware{Recovery()},
		func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			panic("kaboom")
		}, req)
	if resp.Status != 500 {
		t.Fatalf("status = %d", resp.Status)
	}
	if ct, _ := resp.Headers.Get(http.FieldContentType); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestRequestIDStampsResponse(t *testing.T) {
	req := &http.Request{Method: http.MethodGet, URI: "/id"}
	resp := runChain(t, []router.Middleware{RequestID()},
		func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			return http.Text(200, "ok"), nil
		}, req)
	if v, ok := resp.Headers.GetName("X-Request-ID"); !ok || v == "" {
		t.Fatalf("X-Request-ID = %q, %v", v, ok)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	handlerRan := false
	req := &http.Request{Method: http.MethodOptions, URI: "/cors"}
	resp := runChain(t, []router.Middleware{CORS()},
		func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			handlerRan = true
			return http.Text(200, "ok"), nil
		}, req)
	if resp.Status != 204 {
		t.Fatalf("status = %d", resp.Status)
	}
	if handlerRan {
		t.Fatal("handler ran on preflight")
	}
	if v, _ := resp.Headers.GetName("Access-Control-Allow-Origin"); v != "*" {
		t.Fatalf("allow origin = %q", v)
	}
}

func TestRateLimiter(t *testing.T) {
	mw := []router.Middleware{RateLimiter(2)}
	handler := func(req *http.Request, ctx *router.Context) (*http.Response, error) {
		return http.Text(200, "ok"), nil
	}
	req := &http.Request{Method: http.MethodGet, URI: "/limited"}

	r := router.New([]router.RouteEntry{{
		Method: http.MethodGet, Pattern: router.MustPattern("/limited"),
		Handler: handler, Middleware: mw,
	}})
	ctx := router.NewContext(arena.New(0))

	for i := 0; i < 2; i++ {
		resp, _ := r.Dispatch(req, ctx)
		if resp.Status != 200 {
			t.Fatalf("request %d status = %d", i, resp.Status)
		}
	}
	resp, _ := r.Dispatch(req, ctx)
	if resp.Status != 429 {
		t.Fatalf("over-limit status = %d", resp.Status)
	}
}

func TestCompressGzip(t *testing.T) {
	body := strings.Repeat("katana ", 200)
	req := &http.Request{Method: http.MethodGet, URI: "/big"}
	req.Headers.AddField(http.FieldAcceptEncoding, "gzip, deflate")

	resp := runChain(t, []router.Middleware{Compress()},
		func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			return http.Text(200, body), nil
		}, req)

	if enc, _ := resp.Headers.Get(http.FieldContentEncoding); enc != "gzip" {
		t.Fatalf("encoding = %q", enc)
	}
	zr, err := gzip.NewReader(bytes.NewReader(resp.Body))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decoded) != body {
		t.Fatal("round trip mismatch")
	}
}

func TestCompressSkipsSmallAndUnsupported(t *testing.T) {
	req := &http.Request{Method: http.MethodGet, URI: "/small"}
	req.Headers.AddField(http.FieldAcceptEncoding, "gzip")
	resp := runChain(t, []router.Middleware{Compress()},
		func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			return http.Text(200, "tiny"), nil
		}, req)
	if _, ok := resp.Headers.Get(http.FieldContentEncoding); ok {
		t.Fatal("tiny body was compressed")
	}

	big := strings.Repeat("x", 2048)
	req2 := &http.Request{Method: http.MethodGet, URI: "/noenc"}
	resp = runChain(t, []router.Middleware{Compress()},
		func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			return http.Text(200, big), nil
		}, req2)
	if _, ok := resp.Headers.Get(http.FieldContentEncoding); ok {
		t.Fatal("compressed without Accept-Encoding")
	}
}

func TestJWTRejectsMissingAndBadTokens(t *testing.T) {
	mw := []router.Middleware{JWT(JWTConfig{Secret: []byte("secret"), SkipPaths: []string{"/open"}})}
	handler := func(req *http.Request, ctx *router.Context) (*http.Response, error) {
		return http.Text(200, "ok"), nil
	}

	req := &http.Request{Method: http.MethodGet, URI: "/secure"}
	r := router.New([]router.RouteEntry{
		{Method: http.MethodGet, Pattern: router.MustPattern("/secure"), Handler: handler, Middleware: mw},
		{Method: http.MethodGet, Pattern: router.MustPattern("/open"), Handler: handler, Middleware: mw},
	})
	ctx := router.NewContext(arena.New(0))

	resp, _ := r.Dispatch(req, ctx)
	if resp.Status != 401 {
		t.Fatalf("missing token status = %d", resp.Status)
	}

	req.Headers.AddField(http.FieldAuthorization, "Bearer not.a.token")
	resp, _ = r.Dispatch(req, ctx)
	if resp.Status != 401 {
		t.Fatalf("bad token status = %d", resp.Status)
	}

	open := &http.Request{Method: http.MethodGet, URI: "/open"}
	resp, _ = r.Dispatch(open, ctx)
	if resp.Status != 200 {
		t.Fatalf("skip path status = %d", resp.Status)
	}
}
