package gen

// emitFastRouter writes the hash-switch front end: a pre-computed FNV-1a
// constant per static (parameter-free) path, a switch that verifies path and
// method before dispatching directly, and a fallthrough to the general
// router for dynamic paths, hash collisions and method mismatches.
func (g *Generator) emitFastRouter() []byte {
	e := &emitter{}
	g.fileHeader(e,
		g.imp("core/http"),
		g.imp("core/router"),
	)

	// Static routes grouped by hash, then by path; first-seen order keeps
	// output deterministic. Distinct paths sharing a hash (astronomically
	// unlikely, but not assumed away) share one case with per-path checks.
	type staticPath struct {
		path string
		ops  []opModel
	}
	type hashGroup struct {
		hash  uint64
		name  string
		paths []*staticPath
	}
	var groups []*hashGroup
	byHash := map[uint64]*hashGroup{}
	for _, m := range g.ops {
		if !m.static {
			continue
		}
		h := fnv1a(m.path)
		grp := byHash[h]
		if grp == nil {
			grp = &hashGroup{hash: h, name: "hash" + m.methodName}
			byHash[h] = grp
			groups = append(groups, grp)
		}
		var sp *staticPath
		for _, p := range grp.paths {
			if p.path == m.path {
				sp = p
				break
			}
		}
		if sp == nil {
			sp = &staticPath{path: m.path}
			grp.paths = append(grp.paths, sp)
		}
		sp.ops = append(sp.ops, m)
	}

	if len(groups) > 0 {
		e.p("// Pre-computed FNV-1a path hashes for static routes.")
		e.p("const (")
		for _, grp := range groups {
			e.pf("\t%s uint64 = %#x\n", grp.name, grp.hash)
		}
		e.p(")")
		e.p("")
	}

	e.p("func hashPath(path string) uint64 {")
	e.p("\thash := uint64(14695981039346656037)")
	e.p("\tfor i := 0; i < len(path); i++ {")
	e.p("\t\thash ^= uint64(path[i])")
	e.p("\t\thash *= 1099511628211")
	e.p("\t}")
	e.p("\treturn hash")
	e.p("}")
	e.p("")

	e.p("// FastRouter answers static routes through an O(1) hash switch and")
	e.p("// falls through to the general router otherwise.")
	e.p("type FastRouter struct {")
	e.p("\thandler  APIHandler")
	e.p("\tfallback *router.Router")
	e.p("}")
	e.p("")
	e.p("// MakeFastRouter builds the production dispatch surface over h.")
	e.p("func MakeFastRouter(h APIHandler) *FastRouter {")
	e.p("\treturn &FastRouter{handler: h, fallback: MakeRouter(h)}")
	e.p("}")
	e.p("")
	e.p("// Fallback exposes the general router behind the fast path.")
	e.p("func (f *FastRouter) Fallback() *router.Router {")
	e.p("\treturn f.fallback")
	e.p("}")
	e.p("")
	e.p("// Dispatch implements router.DispatchFunc.")
	e.p("func (f *FastRouter) Dispatch(req *http.Request, ctx *router.Context) (*http.Response, error) {")
	e.p("\tpath := req.Path()")
	if len(groups) > 0 {
		e.p("\tswitch hashPath(path) {")
		for _, grp := range groups {
			e.pf("\tcase %s:\n", grp.name)
			for _, sp := range grp.paths {
				e.pf("\t\tif path == %q {\n", sp.path)
				e.p("\t\t\tswitch req.Method {")
				for _, m := range sp.ops {
					e.pf("\t\t\tcase %s:\n", methodConst(m.spec.Method))
					e.pf("\t\t\t\treturn dispatch%s(req, ctx, f.handler)\n", m.methodName)
				}
				e.p("\t\t\t}")
				e.p("\t\t}")
			}
		}
		e.p("\t}")
	}
	e.p("\treturn f.fallback.Dispatch(req, ctx)")
	e.p("}")
	e.p("")

	return e.bytes()
}
