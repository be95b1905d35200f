package router

import (
	"errors"
	"sort"
	"strings"

	"github.com/katana-web/katana/core/http"
)

// Handler produces a response for a matched request.
type Handler func(req *http.Request, ctx *Context) (*http.Response, error)

// Next continues a middleware chain.
type Next func() (*http.Response, error)

// Middleware wraps a handler. Execution is strictly onion-ordered:
// m1 before, m2 before, handler, m2 after, m1 after. A middleware that never
// calls next short-circuits; the skipped inner middleware's after-code does
// not run.
type Middleware func(req *http.Request, ctx *Context, next Next) (*http.Response, error)

// RouteEntry is one immutable route registration.
type RouteEntry struct {
	Method     http.Method
	Pattern    PathPattern
	Handler    Handler
	Middleware []Middleware
	// Consumes and Produces carry the operation's media types for the
	// generated dispatch layer; the router itself does not consult them.
	Consumes []string
	Produces []string
}

// ErrNotFound reports that no route pattern matched the request path.
var ErrNotFound = errors.New("no route matches the request path")

// MethodNotAllowedError reports a path match with no method match. Allow
// lists the methods registered for the matched path in registration order.
type MethodNotAllowedError struct {
	Allow []http.Method
}

// Error implements error.
func (e *MethodNotAllowedError) Error() string {
	return "method not allowed; allowed: " + e.AllowHeader()
}

// AllowHeader renders the Allow header value: uppercase method names joined
// by comma-space, in registration order.
func (e *MethodNotAllowedError) AllowHeader() string {
	var b strings.Builder
	for i, m := range e.Allow {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.String())
	}
	return b.String()
}

type route struct {
	RouteEntry
	regIndex int
}

// Router dispatches requests against a sorted route table. Matching is
// O(segments x routes) worst case; the literal-first sort lets the scan take
// the first full match and guarantees literal precedence.
type Router struct {
	routes []route
}

// New builds a router from entries. The entries are copied and sorted; the
// router is immutable and safe for concurrent dispatch afterwards.
func New(entries []RouteEntry) *Router {
	r := &Router{routes: make([]route, len(entries))}
	for i, e := range entries {
		r.routes[i] = route{RouteEntry: e, regIndex: i}
	}
	sort.SliceStable(r.routes, func(i, j int) bool {
		return r.routes[i].Pattern.less(r.routes[j].Pattern)
	})
	return r
}

// Dispatch matches req and runs the route's middleware chain and handler.
// Returns ErrNotFound when no pattern matches the path, or a
// *MethodNotAllowedError when patterns match but no method does.
func (r *Router) Dispatch(req *http.Request, ctx *Context) (*http.Response, error) {
	path := req.Path()
	var allowed []route
	for i := range r.routes {
		rt := &r.routes[i]
		ctx.Params.Reset()
		if !rt.Pattern.match(path, &ctx.Params) {
			continue
		}
		if rt.Method == req.Method {
			return execute(rt, req, ctx)
		}
		allowed = append(allowed, *rt)
	}
	ctx.Params.Reset()
	if len(allowed) == 0 {
		return nil, ErrNotFound
	}
	sort.SliceStable(allowed, func(i, j int) bool {
		return allowed[i].regIndex < allowed[j].regIndex
	})
	e := &MethodNotAllowedError{}
	for _, rt := range allowed {
		dup := false
		for _, m := range e.Allow {
			if m == rt.Method {
				dup = true
				break
			}
		}
		if !dup {
			e.Allow = append(e.Allow, rt.Method)
		}
	}
	return nil, e
}

func execute(rt *route, req *http.Request, ctx *Context) (*http.Response, error) {
	if len(rt.Middleware) == 0 {
		return rt.Handler(req, ctx)
	}
	var run func(i int) (*http.Response, error)
	run = func(i int) (*http.Response, error) {
		if i == len(rt.Middleware) {
			return rt.Handler(req, ctx)
		}
		return rt.Middleware[i](req, ctx, func() (*http.Response, error) {
			return run(i + 1)
		})
	}
	return run(0)
}

// DispatchFunc is the pluggable dispatch surface the server drives. The
// generated fast router satisfies it, as does Router.Dispatch.
type DispatchFunc func(req *http.Request, ctx *Context) (*http.Response, error)

// DispatchOrProblem runs dispatch and converts its failure modes into
// problem-details responses: 404, 405 (with an accurate Allow header) or 500.
func DispatchOrProblem(dispatch DispatchFunc, req *http.Request, ctx *Context) *http.Response {
	resp, err := dispatch(req, ctx)
	if err == nil {
		if resp == nil {
			return http.Error(http.InternalServerError("handler returned no response"))
		}
		return resp
	}
	var mna *MethodNotAllowedError
	switch {
	case errors.As(err, &mna):
		resp := http.Error(http.MethodNotAllowed("method not allowed for this resource"))
		resp.Headers.AddField(http.FieldAllow, mna.AllowHeader())
		return resp
	case errors.Is(err, ErrNotFound):
		return http.Error(http.NotFound("resource not found"))
	default:
		return http.Error(http.InternalServerError(err.Error()))
	}
}
