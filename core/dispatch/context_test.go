//go:build linux

package dispatch

import (
	"runtime"
	"testing"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/router"
)

func TestHandlerContextScope(t *testing.T) {
	// The reactor locks its goroutine to its thread; mirror that here so
	// the thread id stays stable across the scope.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if _, ok := Current(); ok {
		t.Fatal("context present outside any scope")
	}
	if Req() != nil || Ctx() != nil || CurrentArena() != nil {
		t.Fatal("accessors returned non-nil outside a scope")
	}

	req := &http.Request{Method: http.MethodGet, URI: "/x"}
	ctx := router.NewContext(arena.New(0))

	scope := PushScope(req, ctx)
	if Req() != req || Ctx() != ctx || CurrentArena() != ctx.Arena {
		t.Fatal("accessors do not see the pushed scope")
	}

	// Nested scopes stack.
	req2 := &http.Request{Method: http.MethodPost, URI: "/y"}
	inner := PushScope(req2, ctx)
	if Req() != req2 {
		t.Fatal("inner scope not current")
	}
	inner.Pop()
	if Req() != req {
		t.Fatal("outer scope not restored")
	}

	scope.Pop()
	if _, ok := Current(); ok {
		t.Fatal("scope leaked after Pop")
	}
}

func TestScopePopsOnPanicPath(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	func() {
		defer func() { recover() }()
		scope := PushScope(&http.Request{}, router.NewContext(arena.New(0)))
		defer scope.Pop()
		panic("handler blew up")
	}()

	if _, ok := Current(); ok {
		t.Fatal("scope survived a panic despite the deferred Pop")
	}
}
