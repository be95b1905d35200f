package router

import (
	"errors"
	"testing"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/http"
)

func makeRequest(method http.Method, uri string) *http.Request {
	return &http.Request{Method: method, URI: uri, Proto: "HTTP/1.1"}
}

func textHandler(body string) Handler {
	return func(req *http.Request, ctx *Context) (*http.Response, error) {
		return http.OK(body, "text/plain"), nil
	}
}

func newCtx() *Context {
	return NewContext(arena.New(0))
}

func TestPrefersStaticOverParams(t *testing.T) {
	r := New([]RouteEntry{
		{Method: http.MethodGet, Pattern: MustPattern("/users/me"), Handler: textHandler("me")},
		{Method: http.MethodGet, Pattern: MustPattern("/users/{id}"), Handler: textHandler("param")},
	})

	ctx := newCtx()
	resp, err := r.Dispatch(makeRequest(http.MethodGet, "/users/me"), ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(resp.Body) != "me" {
		t.Fatalf("body = %q", resp.Body)
	}
	if ctx.Params.Len() != 0 {
		t.Fatalf("static match extracted %d params", ctx.Params.Len())
	}

	ctx = newCtx()
	resp, err = r.Dispatch(makeRequest(http.MethodGet, "/users/42"), ctx)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(resp.Body) != "param" {
		t.Fatalf("body = %q", resp.Body)
	}
	if v, ok := ctx.Params.Get("id"); !ok || v != "42" {
		t.Fatalf("id = %q, %v", v, ok)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := New([]RouteEntry{
		{Method: http.MethodGet, Pattern: MustPattern("/items/{id}"), Handler: textHandler("get")},
	})

	_, err := r.Dispatch(makeRequest(http.MethodPost, "/items/1"), newCtx())
	var mna *MethodNotAllowedError
	if !errors.As(err, &mna) {
		t.Fatalf("err = %v", err)
	}
}

func TestMethodNotAllowedResponseHasAllowHeader(t *testing.T) {
	r := New([]RouteEntry{
		{Method: http.MethodGet, Pattern: MustPattern("/items/{id}"), Handler: textHandler("get")},
		{Method: http.MethodPost, Pattern: MustPattern("/items/{id}"), Handler: textHandler("post")},
	})

	resp := DispatchOrProblem(r.Dispatch, makeRequest(http.MethodPut, "/items/1"), newCtx())
	if resp.Status != 405 {
		t.Fatalf("status = %d", resp.Status)
	}
	allow, ok := resp.Headers.Get(http.FieldAllow)
	if !ok {
		t.Fatal("missing Allow header")
	}
	if allow != "GET, POST" {
		t.Fatalf("Allow = %q, want \"GET, POST\"", allow)
	}
	if ct, _ := resp.Headers.Get(http.FieldContentType); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestNotFound(t *testing.T) {
	r := New([]RouteEntry{
		{Method: http.MethodGet, Pattern: MustPattern("/items/{id}"), Handler: textHandler("get")},
	})

	_, err := r.Dispatch(makeRequest(http.MethodGet, "/missing"), newCtx())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}

	resp := DispatchOrProblem(r.Dispatch, makeRequest(http.MethodGet, "/missing"), newCtx())
	if resp.Status != 404 {
		t.Fatalf("status = %d", resp.Status)
	}
	if ct, _ := resp.Headers.Get(http.FieldContentType); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestMiddlewareOrderAndShortCircuit(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(req *http.Request, ctx *Context, next Next) (*http.Response, error) {
			trace = append(trace, name+"-before")
			resp, err := next()
			trace = append(trace, name+"-after")
			return resp, err
		}
	}

	r := New([]RouteEntry{
		{
			Method:     http.MethodGet,
			Pattern:    MustPattern("/chain"),
			Handler:    textHandler("ok"),
			Middleware: []Middleware{mw("m1"), mw("m2")},
		},
	})

	resp, err := r.Dispatch(makeRequest(http.MethodGet, "/chain"), newCtx())
	if err != nil || string(resp.Body) != "ok" {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}

	want := []string{"m1-before", "m2-before", "m2-after", "m1-after"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestMiddlewareShortCircuitSkipsInner(t *testing.T) {
	var trace []string
	blocker := func(req *http.Request, ctx *Context, next Next) (*http.Response, error) {
		trace = append(trace, "blocker")
		return http.Text(403, "no"), nil
	}
	inner := func(req *http.Request, ctx *Context, next Next) (*http.Response, error) {
		trace = append(trace, "inner")
		return next()
	}

	r := New([]RouteEntry{
		{
			Method:     http.MethodGet,
			Pattern:    MustPattern("/guarded"),
			Handler:    textHandler("never"),
			Middleware: []Middleware{blocker, inner},
		},
	})

	resp, err := r.Dispatch(makeRequest(http.MethodGet, "/guarded"), newCtx())
	if err != nil || resp.Status != 403 {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}
	if len(trace) != 1 || trace[0] != "blocker" {
		t.Fatalf("trace = %v; inner middleware must not run", trace)
	}
}

func TestCapturesMultipleParamsAndStripsQuery(t *testing.T) {
	r := New([]RouteEntry{
		{Method: http.MethodGet, Pattern: MustPattern("/orders/{orderId}/items/{itemId}"), Handler: textHandler("ok")},
	})

	ctx := newCtx()
	resp, err := r.Dispatch(makeRequest(http.MethodGet, "/orders/abc/items/99?foo=bar"), ctx)
	if err != nil || string(resp.Body) != "ok" {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}
	if ctx.Params.Len() != 2 {
		t.Fatalf("params = %d", ctx.Params.Len())
	}
	if v, _ := ctx.Params.Get("orderId"); v != "abc" {
		t.Fatalf("orderId = %q", v)
	}
	if v, _ := ctx.Params.Get("itemId"); v != "99" {
		t.Fatalf("itemId = %q", v)
	}
}

func TestAllowHeaderRegistrationOrder(t *testing.T) {
	// Registration order, not sorted order: POST first.
	r := New([]RouteEntry{
		{Method: http.MethodPost, Pattern: MustPattern("/things"), Handler: textHandler("post")},
		{Method: http.MethodGet, Pattern: MustPattern("/things"), Handler: textHandler("get")},
	})

	_, err := r.Dispatch(makeRequest(http.MethodDelete, "/things"), newCtx())
	var mna *MethodNotAllowedError
	if !errors.As(err, &mna) {
		t.Fatalf("err = %v", err)
	}
	if mna.AllowHeader() != "POST, GET" {
		t.Fatalf("Allow = %q", mna.AllowHeader())
	}
}

func BenchmarkDispatchStatic(b *testing.B) {
	r := New([]RouteEntry{
		{Method: http.MethodGet, Pattern: MustPattern("/users/me"), Handler: textHandler("me")},
		{Method: http.MethodGet, Pattern: MustPattern("/users/{id}"), Handler: textHandler("param")},
	})
	req := makeRequest(http.MethodGet, "/users/me")
	ctx := newCtx()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Dispatch(req, ctx)
	}
}
