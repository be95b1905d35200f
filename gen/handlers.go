package gen

import "strings"

// handlerArgs renders the typed argument list of one handler method:
// path params first, then query/header/cookie params, then the body.
func handlerArgs(m opModel) string {
	var args []string
	for _, p := range m.params {
		t := p.goType
		if p.optional {
			t = "*" + t
		}
		args = append(args, p.arg+" "+t)
	}
	if m.body != nil {
		args = append(args, "body "+m.body.typeExpr)
	}
	return strings.Join(args, ", ")
}

// emitHandlers writes the APIHandler interface: one method per operationId,
// signatures bound to the extracted parameter and body types. The server
// shares one handler instance across all reactors, so implementations must
// be safe for concurrent use.
func (g *Generator) emitHandlers() []byte {
	e := &emitter{}
	g.fileHeader(e, g.imp("core/http"))

	e.p("// APIHandler is the application-facing surface of the API. Parameter")
	e.p("// parsing, body validation and content negotiation have already run")
	e.p("// when a method is invoked; use the dispatch package's handler context")
	e.p("// to reach the raw request or the request arena.")
	e.p("type APIHandler interface {")
	for i, m := range g.ops {
		if i > 0 {
			e.p("")
		}
		e.pf("\t// %s %s\n", m.spec.Method, m.path)
		if m.spec.Summary != "" {
			e.pf("\t// %s\n", m.spec.Summary)
		}
		if m.spec.XCache != "" {
			e.pf("\t// @cache: %s\n", m.spec.XCache)
		}
		if m.spec.XAlloc != "" {
			e.pf("\t// @alloc: %s\n", m.spec.XAlloc)
		}
		if m.spec.XRateLimit != "" {
			e.pf("\t// @rate-limit: %s\n", m.spec.XRateLimit)
		}
		e.pf("\t%s(%s) *http.Response\n", m.methodName, handlerArgs(m))
	}
	e.p("}")
	e.p("")
	return e.bytes()
}
