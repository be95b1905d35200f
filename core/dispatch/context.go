package dispatch

import (
	"sync"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/cpuinfo"
	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/router"
)

// HandlerContext gives handlers with clean signatures a way back to the
// request and arena without widening every method. It is keyed by kernel
// thread id, which is stable because each reactor locks its goroutine to its
// OS thread and dispatch never hops threads.
type HandlerContext struct {
	Req *http.Request
	Ctx *router.Context
}

var contextStacks sync.Map // tid -> *[]HandlerContext

// Scope is a pushed handler context. The dispatch stub defers Pop so the
// stack unwinds on every exit path, panics included.
type Scope struct {
	tid int
}

// PushScope makes req/ctx the current handler context for this thread.
func PushScope(req *http.Request, ctx *router.Context) Scope {
	tid := cpuinfo.ThreadID()
	v, _ := contextStacks.LoadOrStore(tid, &[]HandlerContext{})
	stack := v.(*[]HandlerContext)
	*stack = append(*stack, HandlerContext{Req: req, Ctx: ctx})
	return Scope{tid: tid}
}

// Pop removes the scope. Must run on the pushing thread.
func (s Scope) Pop() {
	v, ok := contextStacks.Load(s.tid)
	if !ok {
		return
	}
	stack := v.(*[]HandlerContext)
	if n := len(*stack); n > 0 {
		(*stack)[n-1] = HandlerContext{}
		*stack = (*stack)[:n-1]
	}
}

// Current returns the innermost handler context for this thread.
func Current() (HandlerContext, bool) {
	v, ok := contextStacks.Load(cpuinfo.ThreadID())
	if !ok {
		return HandlerContext{}, false
	}
	stack := v.(*[]HandlerContext)
	if len(*stack) == 0 {
		return HandlerContext{}, false
	}
	return (*stack)[len(*stack)-1], true
}

// Req returns the current request, or nil outside a dispatch scope.
func Req() *http.Request {
	hc, ok := Current()
	if !ok {
		return nil
	}
	return hc.Req
}

// Ctx returns the current dispatch context, or nil outside a scope.
func Ctx() *router.Context {
	hc, ok := Current()
	if !ok {
		return nil
	}
	return hc.Ctx
}

// CurrentArena returns the request arena, or nil outside a scope.
func CurrentArena() *arena.Arena {
	hc, ok := Current()
	if !ok || hc.Ctx == nil {
		return nil
	}
	return hc.Ctx.Arena
}
