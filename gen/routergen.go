package gen

import (
	"fmt"

	"github.com/katana-web/katana/openapi"
)

var reservedArgs = map[string]bool{
	"req": true, "ctx": true, "h": true, "body": true, "resp": true,
	"scope": true, "negotiated": true, "ok": true, "parsed": true,
}

func (m opModel) safeArg(name string) string {
	if reservedArgs[name] {
		return name + "Arg"
	}
	return name
}

func parseFnFor(goType string) string {
	switch goType {
	case "int64":
		return "dispatch.ParseIntParam"
	case "float64":
		return "dispatch.ParseNumberParam"
	case "bool":
		return "dispatch.ParseBoolParam"
	}
	return ""
}

// emitRouter writes the per-operation dispatch stubs and the router factory.
// Each stub runs the fixed pipeline: negotiate, path params, other params,
// body content-type, parse, validate, handler-context scope, handler call,
// Content-Type backfill. Any failing step answers immediately with the
// matching problem response.
func (g *Generator) emitRouter() []byte {
	e := &emitter{}
	g.fileHeader(e,
		g.imp("core/dispatch"),
		g.imp("core/http"),
		g.imp("core/router"),
	)

	for _, m := range g.ops {
		g.emitDispatchStub(e, m)
	}

	e.p("// MakeRouter builds the general router over h. Prefer MakeFastRouter")
	e.p("// in production; it adds the static-route hash fast path.")
	e.p("func MakeRouter(h APIHandler) *router.Router {")
	e.p("\tentries := []router.RouteEntry{")
	for _, m := range g.ops {
		op := argName(m.spec.OperationID)
		consumes := "nil"
		if m.body != nil {
			consumes = op + "Consumes"
		}
		produces := "nil"
		if len(m.produces) > 0 {
			produces = op + "Produces"
		}
		e.p("\t\t{")
		e.pf("\t\t\tMethod:   %s,\n", methodConst(m.spec.Method))
		e.pf("\t\t\tPattern:  router.MustPattern(%q),\n", m.path)
		e.pf("\t\t\tConsumes: %s,\n", consumes)
		e.pf("\t\t\tProduces: %s,\n", produces)
		e.p("\t\t\tHandler: func(req *http.Request, ctx *router.Context) (*http.Response, error) {")
		e.pf("\t\t\t\treturn dispatch%s(req, ctx, h)\n", m.methodName)
		e.p("\t\t\t},")
		e.p("\t\t},")
	}
	e.p("\t}")
	e.p("\treturn router.New(entries)")
	e.p("}")
	e.p("")
	return e.bytes()
}

func (g *Generator) emitDispatchStub(e *emitter, m opModel) {
	op := argName(m.spec.OperationID)
	e.pf("func dispatch%s(req *http.Request, ctx *router.Context, h APIHandler) (*http.Response, error) {\n", m.methodName)

	if len(m.produces) > 0 {
		e.pf("\tnegotiated, ok := dispatch.Negotiate(req, %sProduces)\n", op)
		e.p("\tif !ok {")
		e.p("\t\treturn http.Error(http.NotAcceptable(\"unsupported Accept header\")), nil")
		e.p("\t}")
	}

	var callArgs []string
	for _, p := range m.params {
		arg := m.safeArg(p.arg)
		callArgs = append(callArgs, arg)
		raw := "raw" + exportedName(p.arg)
		switch p.spec.In {
		case openapi.InPath:
			e.pf("\t%s, ok := ctx.Params.Get(%q)\n", raw, p.spec.Name)
			e.p("\tif !ok {")
			e.pf("\t\treturn dispatch.BadParam(\"missing path\", %q), nil\n", p.spec.Name)
			e.p("\t}")
			if fn := parseFnFor(p.goType); fn != "" {
				e.pf("\t%s, ok := %s(%s)\n", arg, fn, raw)
				e.p("\tif !ok {")
				e.pf("\t\treturn dispatch.BadParam(\"invalid path\", %q), nil\n", p.spec.Name)
				e.p("\t}")
			} else {
				e.pf("\t%s := %s\n", arg, raw)
			}
		default:
			source := ""
			switch p.spec.In {
			case openapi.InQuery:
				source = fmt.Sprintf("dispatch.QueryParam(req.URI, %q)", p.spec.Name)
			case openapi.InHeader:
				source = fmt.Sprintf("dispatch.HeaderParam(req, %q)", p.spec.Name)
			case openapi.InCookie:
				source = fmt.Sprintf("dispatch.CookieParam(req, %q)", p.spec.Name)
			}
			if p.optional {
				e.pf("\tvar %s *%s\n", arg, p.goType)
				e.pf("\tif %s, ok := %s; ok {\n", raw, source)
				if fn := parseFnFor(p.goType); fn != "" {
					e.pf("\t\tparsed, ok := %s(%s)\n", fn, raw)
					e.p("\t\tif !ok {")
					e.pf("\t\t\treturn dispatch.BadParam(\"invalid\", %q), nil\n", p.spec.Name)
					e.p("\t\t}")
					e.pf("\t\t%s = &parsed\n", arg)
				} else {
					e.pf("\t\t%s = &%s\n", arg, raw)
				}
				e.p("\t}")
			} else {
				e.pf("\t%s, ok := %s\n", raw, source)
				e.p("\tif !ok {")
				e.pf("\t\treturn dispatch.BadParam(\"missing\", %q), nil\n", p.spec.Name)
				e.p("\t}")
				if fn := parseFnFor(p.goType); fn != "" {
					e.pf("\t%s, ok := %s(%s)\n", arg, fn, raw)
					e.p("\tif !ok {")
					e.pf("\t\treturn dispatch.BadParam(\"invalid\", %q), nil\n", p.spec.Name)
					e.p("\t}")
				} else {
					e.pf("\t%s := %s\n", arg, raw)
				}
			}
		}
	}

	if m.body != nil {
		b := m.body
		e.pf("\tctIdx, ok := dispatch.FindContentType(req, %sConsumes)\n", op)
		e.p("\tif !ok {")
		e.p("\t\treturn http.Error(http.UnsupportedMediaType(\"unsupported Content-Type\")), nil")
		e.p("\t}")
		e.pf("\tvar body %s\n", b.typeExpr)
		e.p("\tswitch ctIdx {")
		for i, media := range b.media {
			e.pf("\tcase %d:\n", i)
			e.pf("\t\tparsed, ok := %s(req.Body, ctx.Arena)\n", media.parseFn)
			e.p("\t\tif !ok {")
			e.p("\t\t\treturn http.Error(http.BadRequest(\"invalid request body\")), nil")
			e.p("\t\t}")
			if b.variant {
				e.pf("\t\tbody.%s = &parsed\n", exportedName(media.typeName))
			} else {
				e.p("\t\tbody = parsed")
			}
		}
		e.p("\t}")
		if b.variant {
			seenValidate := map[string]bool{}
			for _, media := range b.media {
				if media.validateFn == "" {
					continue
				}
				field := exportedName(media.typeName)
				if seenValidate[field] {
					continue
				}
				seenValidate[field] = true
				e.pf("\tif body.%s != nil {\n", field)
				e.pf("\t\tif verr := %s(body.%s); verr != nil {\n", media.validateFn, field)
				e.p("\t\t\treturn dispatch.FormatValidationError(verr), nil")
				e.p("\t\t}")
				e.p("\t}")
			}
		} else if fn := b.media[0].validateFn; fn != "" {
			if len(b.typeExpr) > 2 && b.typeExpr[:2] == "[]" {
				e.pf("\tif verr := %s(body); verr != nil {\n", fn)
			} else {
				e.pf("\tif verr := %s(&body); verr != nil {\n", fn)
			}
			e.p("\t\treturn dispatch.FormatValidationError(verr), nil")
			e.p("\t}")
		}
		callArgs = append(callArgs, "body")
	}

	e.p("\tscope := dispatch.PushScope(req, ctx)")
	e.p("\tdefer scope.Pop()")
	e.pf("\tresp := h.%s(%s)\n", m.methodName, joinArgs(callArgs))
	e.p("\tif resp == nil {")
	e.p("\t\treturn http.Error(http.InternalServerError(\"handler returned no response\")), nil")
	e.p("\t}")
	if len(m.produces) > 0 {
		e.p("\tif _, has := resp.Headers.Get(http.FieldContentType); !has {")
		e.p("\t\tresp.Headers.AddField(http.FieldContentType, negotiated)")
		e.p("\t}")
	}
	e.p("\treturn resp, nil")
	e.p("}")
	e.p("")
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
