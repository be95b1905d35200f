//go:build linux

package server

import (
	"strings"
	"testing"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/ringbuf"
	"github.com/katana-web/katana/core/router"
)

// harness drives raw request bytes through the same parse → dispatch →
// serialize sequence the connection state machine runs, without sockets.
type harness struct {
	dispatch router.DispatchFunc
	arena    *arena.Arena
	parser   *http.Parser
}

func newHarness(dispatch router.DispatchFunc) *harness {
	a := arena.New(0)
	return &harness{dispatch: dispatch, arena: a, parser: http.NewParser(a)}
}

// runRaw feeds one raw request and returns the serialized response wire
// bytes. The arena and parser are recycled afterwards, as between keep-alive
// requests.
func (h *harness) runRaw(t *testing.T, raw string) string {
	t.Helper()
	st := h.parser.Parse([]byte(raw))
	if st != http.ParseOK || !h.parser.IsComplete() {
		t.Fatalf("request did not parse: %v", st)
	}
	ctx := router.NewContext(h.arena)
	resp := router.DispatchOrProblem(h.dispatch, h.parser.Request(), ctx)

	buf := ringbuf.New(512)
	resp.SerializeInto(buf)
	wire := string(buf.ReadableSpan())

	h.arena.Reset()
	h.parser.Reset(h.arena)
	return wire
}

func testRouter() *router.Router {
	text := func(body string) router.Handler {
		return func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			return http.OK(body, "text/plain"), nil
		}
	}
	return router.New([]router.RouteEntry{
		{Method: http.MethodGet, Pattern: router.MustPattern("/users/me"), Handler: text("me")},
		{Method: http.MethodGet, Pattern: router.MustPattern("/users/{id}"), Handler: func(req *http.Request, ctx *router.Context) (*http.Response, error) {
			id, _ := ctx.Params.Get("id")
			return http.OK(id, "text/plain"), nil
		}},
		{Method: http.MethodGet, Pattern: router.MustPattern("/items/{id}"), Handler: text("get")},
		{Method: http.MethodPost, Pattern: router.MustPattern("/items/{id}"), Handler: text("post")},
	})
}

func TestEndToEndStaticAndParam(t *testing.T) {
	h := newHarness(testRouter().Dispatch)

	wire := h.runRaw(t, "GET /users/me HTTP/1.1\r\nHost: x\r\n\r\n")
	if !strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n") || !strings.HasSuffix(wire, "\r\n\r\nme") {
		t.Fatalf("wire = %q", wire)
	}

	wire = h.runRaw(t, "GET /users/42 HTTP/1.1\r\nHost: x\r\n\r\n")
	if !strings.HasSuffix(wire, "\r\n\r\n42") {
		t.Fatalf("wire = %q", wire)
	}
}

func TestEndToEndMethodNotAllowed(t *testing.T) {
	h := newHarness(testRouter().Dispatch)
	wire := h.runRaw(t, "PUT /items/1 HTTP/1.1\r\nHost: x\r\n\r\n")
	if !strings.HasPrefix(wire, "HTTP/1.1 405 ") {
		t.Fatalf("wire = %q", wire)
	}
	if !strings.Contains(wire, "Allow: GET, POST\r\n") {
		t.Fatalf("missing Allow header: %q", wire)
	}
}

func TestEndToEndNotFoundIsProblemJSON(t *testing.T) {
	h := newHarness(testRouter().Dispatch)
	wire := h.runRaw(t, "GET /missing HTTP/1.1\r\nHost: x\r\n\r\n")
	if !strings.HasPrefix(wire, "HTTP/1.1 404 ") {
		t.Fatalf("wire = %q", wire)
	}
	if !strings.Contains(wire, "Content-Type: application/problem+json\r\n") {
		t.Fatalf("missing problem content type: %q", wire)
	}
}

func TestEndToEndKeepAliveSequence(t *testing.T) {
	h := newHarness(testRouter().Dispatch)

	// Two sequential requests through one harness: arena reset between
	// them, bounded memory.
	h.runRaw(t, "GET /users/me HTTP/1.1\r\nHost: x\r\n\r\n")
	high := h.arena.HighWater()
	wire := h.runRaw(t, "GET /users/me HTTP/1.1\r\nHost: x\r\n\r\n")
	if !strings.HasSuffix(wire, "me") {
		t.Fatalf("second response = %q", wire)
	}
	if h.arena.HighWater() != high {
		t.Fatalf("arena grew across keep-alive requests: %d -> %d", high, h.arena.HighWater())
	}
}
