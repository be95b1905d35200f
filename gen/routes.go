package gen

import "strings"

func methodConst(method string) string {
	switch method {
	case "GET":
		return "http.MethodGet"
	case "HEAD":
		return "http.MethodHead"
	case "POST":
		return "http.MethodPost"
	case "PUT":
		return "http.MethodPut"
	case "DELETE":
		return "http.MethodDelete"
	case "OPTIONS":
		return "http.MethodOptions"
	case "PATCH":
		return "http.MethodPatch"
	}
	return "http.MethodUnknown"
}

func stringSliceLit(values []string) string {
	if len(values) == 0 {
		return "nil"
	}
	var b strings.Builder
	b.WriteString("[]string{")
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"` + v + `"`)
	}
	b.WriteString("}")
	return b.String()
}

// emitRoutes writes the compile-time route table.
func (g *Generator) emitRoutes() []byte {
	e := &emitter{}
	g.fileHeader(e, g.imp("core/http"))

	e.p("// RouteInfo describes one operation of the API surface.")
	e.p("type RouteInfo struct {")
	e.p("\tPath        string")
	e.p("\tMethod      http.Method")
	e.p("\tOperationID string")
	e.p("\tConsumes    []string")
	e.p("\tProduces    []string")
	e.p("}")
	e.p("")
	e.p("// Routes lists every operation, ordered by path then method.")
	e.p("var Routes = []RouteInfo{")
	for _, m := range g.ops {
		consumes := "nil"
		if m.body != nil {
			consumes = stringSliceLit(m.body.consumes)
		}
		e.pf("\t{Path: %q, Method: %s, OperationID: %q, Consumes: %s, Produces: %s},\n",
			m.path, methodConst(m.spec.Method), m.spec.OperationID,
			consumes, stringSliceLit(m.produces))
	}
	e.p("}")
	e.p("")

	// Per-operation media type lists, referenced by the dispatch stubs.
	for _, m := range g.ops {
		op := argName(m.spec.OperationID)
		if len(m.produces) > 0 {
			e.pf("var %sProduces = %s\n", op, stringSliceLit(m.produces))
		}
		if m.body != nil {
			e.pf("var %sConsumes = %s\n", op, stringSliceLit(m.body.consumes))
		}
	}
	e.p("")
	return e.bytes()
}
