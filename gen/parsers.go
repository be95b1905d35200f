package gen

import (
	"sort"

	"github.com/katana-web/katana/openapi"
)

func cursorRead(goType string) string {
	switch goType {
	case "string":
		return "cur.String()"
	case "int64":
		return "cur.Int64()"
	case "float64":
		return "cur.Float64()"
	case "bool":
		return "cur.Bool()"
	}
	return ""
}

// sliceHelpers collects which element-slice parse helpers the document
// needs: one per primitive type and one per named schema used as an array
// element.
func (g *Generator) sliceHelpers() (prims []string, refs []string) {
	primSet := map[string]bool{}
	refSet := map[string]bool{}
	note := func(items *openapi.Schema) {
		if items == nil {
			return
		}
		if items.Kind == openapi.KindRef {
			refSet[items.Ref] = true
			return
		}
		if t, err := primitiveGoType(items); err == nil {
			primSet[t] = true
		}
	}
	for _, s := range g.doc.Schemas {
		switch s.Kind {
		case openapi.KindObject:
			for _, p := range s.Properties {
				if p.Schema.Kind == openapi.KindArray {
					note(p.Schema.Items)
				}
			}
		case openapi.KindArray:
			note(s.Items)
		}
	}
	for _, b := range g.inlineBodies {
		primSet[b.elemType] = true
	}
	for t := range primSet {
		prims = append(prims, t)
	}
	sort.Strings(prims)
	for n := range refSet {
		refs = append(refs, n)
	}
	sort.Strings(refs)
	return prims, refs
}

func primHelperName(goType string) string {
	switch goType {
	case "string":
		return "parseStringSlice"
	case "int64":
		return "parseInt64Slice"
	case "float64":
		return "parseFloat64Slice"
	case "bool":
		return "parseBoolSlice"
	}
	return ""
}

// emitParsers writes the generated JSON layer: one Parse/Serialize pair per
// named schema (plus the per-operation inline body wrappers), all driving
// the scalar cursor directly into typed fields.
func (g *Generator) emitParsers() []byte {
	e := &emitter{}
	needsJSON := false
	for _, s := range g.doc.Schemas {
		if s.Kind != openapi.KindUnion {
			needsJSON = true
			break
		}
	}
	var imports []string
	if needsJSON {
		imports = append(imports, `json "github.com/goccy/go-json"`, "")
	}
	if len(g.doc.Schemas) > 0 || len(g.inlineBodies) > 0 {
		imports = append(imports, g.imp("core/arena"), g.imp("core/jsoncursor"))
	}
	g.fileHeader(e, imports...)

	for _, s := range g.doc.Schemas {
		name := exportedName(s.Name)
		switch s.Kind {
		case openapi.KindObject:
			g.emitObjectParser(e, s, name)
		case openapi.KindUnion:
			g.emitUnionParser(e, s, name)
		case openapi.KindArray:
			g.emitNamedArrayParser(e, s, name)
		default:
			g.emitNamedPrimitiveParser(e, s, name)
		}
		g.emitSerialize(e, s, name)
	}

	for _, b := range g.inlineBodies {
		e.pf("// Parse%s parses the inline array body of %s.\n", b.name, b.name[:len(b.name)-len("Body")])
		e.pf("func Parse%s(data []byte, a *arena.Arena) ([]%s, bool) {\n", b.name, b.elemType)
		e.p("\tcur := jsoncursor.New(data, a)")
		e.pf("\tv, ok := %s(&cur)\n", primHelperName(b.elemType))
		e.p("\tif !ok || !cur.AtEnd() {")
		e.p("\t\treturn nil, false")
		e.p("\t}")
		e.p("\treturn v, true")
		e.p("}")
		e.p("")
	}

	prims, refs := g.sliceHelpers()
	for _, t := range prims {
		fn := primHelperName(t)
		e.pf("func %s(cur *jsoncursor.Cursor) ([]%s, bool) {\n", fn, t)
		e.p("\tif !cur.Expect('[') {")
		e.p("\t\treturn nil, false")
		e.p("\t}")
		e.pf("\tout := []%s{}\n", t)
		e.p("\tif cur.Expect(']') {")
		e.p("\t\treturn out, true")
		e.p("\t}")
		e.p("\tfor {")
		e.pf("\t\tx, ok := %s\n", cursorRead(t))
		e.p("\t\tif !ok {")
		e.p("\t\t\treturn nil, false")
		e.p("\t\t}")
		e.p("\t\tout = append(out, x)")
		e.p("\t\tif cur.Expect(',') {")
		e.p("\t\t\tcontinue")
		e.p("\t\t}")
		e.p("\t\tif cur.Expect(']') {")
		e.p("\t\t\treturn out, true")
		e.p("\t\t}")
		e.p("\t\treturn nil, false")
		e.p("\t}")
		e.p("}")
		e.p("")
	}
	for _, n := range refs {
		name := exportedName(n)
		e.pf("func parse%sSlice(cur *jsoncursor.Cursor) ([]%s, bool) {\n", name, name)
		e.p("\tif !cur.Expect('[') {")
		e.p("\t\treturn nil, false")
		e.p("\t}")
		e.pf("\tout := []%s{}\n", name)
		e.p("\tif cur.Expect(']') {")
		e.p("\t\treturn out, true")
		e.p("\t}")
		e.p("\tfor {")
		e.pf("\t\tx, ok := parse%sValue(cur)\n", name)
		e.p("\t\tif !ok {")
		e.p("\t\t\treturn nil, false")
		e.p("\t\t}")
		e.p("\t\tout = append(out, x)")
		e.p("\t\tif cur.Expect(',') {")
		e.p("\t\t\tcontinue")
		e.p("\t\t}")
		e.p("\t\tif cur.Expect(']') {")
		e.p("\t\t\treturn out, true")
		e.p("\t\t}")
		e.p("\t\treturn nil, false")
		e.p("\t}")
		e.p("}")
		e.p("")
	}

	return e.bytes()
}

func (g *Generator) emitParseWrapper(e *emitter, name string) {
	e.pf("// Parse%s parses one %s document, allocating into a.\n", name, name)
	e.pf("func Parse%s(data []byte, a *arena.Arena) (%s, bool) {\n", name, name)
	e.p("\tcur := jsoncursor.New(data, a)")
	e.pf("\tv, ok := parse%sValue(&cur)\n", name)
	e.p("\tif !ok || !cur.AtEnd() {")
	e.pf("\t\treturn %s{}, false\n", name)
	e.p("\t}")
	e.p("\treturn v, true")
	e.p("}")
	e.p("")
}

func (g *Generator) emitObjectParser(e *emitter, s *openapi.Schema, name string) {
	g.emitParseWrapper(e, name)

	e.pf("func parse%sValue(cur *jsoncursor.Cursor) (%s, bool) {\n", name, name)
	e.pf("\tvar v %s\n", name)
	e.p("\tif !cur.Expect('{') {")
	e.p("\t\treturn v, false")
	e.p("\t}")
	e.p("\tif cur.Expect('}') {")
	e.p("\t\treturn v, true")
	e.p("\t}")
	e.p("\tfor {")
	e.p("\t\tkey, ok := cur.String()")
	e.p("\t\tif !ok || !cur.Expect(':') {")
	e.p("\t\t\treturn v, false")
	e.p("\t\t}")
	e.p("\t\tswitch key {")
	for _, prop := range s.Properties {
		optional := !s.IsRequired(prop.Name)
		field := exportedName(prop.Name)
		e.pf("\t\tcase %q:\n", prop.Name)
		g.emitFieldRead(e, prop.Schema, field, optional)
	}
	e.p("\t\tdefault:")
	e.p("\t\t\tif !cur.SkipValue() {")
	e.p("\t\t\t\treturn v, false")
	e.p("\t\t\t}")
	e.p("\t\t}")
	e.p("\t\tif cur.Expect(',') {")
	e.p("\t\t\tcontinue")
	e.p("\t\t}")
	e.p("\t\tif cur.Expect('}') {")
	e.p("\t\t\treturn v, true")
	e.p("\t\t}")
	e.p("\t\treturn v, false")
	e.p("\t}")
	e.p("}")
	e.p("")
}

// emitFieldRead writes the switch-case body that reads one object member
// into v.<field>, at two tab depth inside the key switch.
func (g *Generator) emitFieldRead(e *emitter, s *openapi.Schema, field string, optional bool) {
	readExpr := ""
	switch s.Kind {
	case openapi.KindRef:
		readExpr = "parse" + exportedName(s.Ref) + "Value(cur)"
	case openapi.KindArray:
		if s.Items.Kind == openapi.KindRef {
			readExpr = "parse" + exportedName(s.Items.Ref) + "Slice(cur)"
		} else if t, err := primitiveGoType(s.Items); err == nil {
			readExpr = primHelperName(t) + "(cur)"
		}
	default:
		if t, err := primitiveGoType(s); err == nil {
			readExpr = cursorRead(t)
		}
	}
	if readExpr == "" {
		e.p("\t\t\tif !cur.SkipValue() {")
		e.p("\t\t\t\treturn v, false")
		e.p("\t\t\t}")
		return
	}
	isSlice := s.Kind == openapi.KindArray
	if optional && !isSlice {
		e.p("\t\t\tif !cur.Null() {")
		e.pf("\t\t\t\tx, ok := %s\n", readExpr)
		e.p("\t\t\t\tif !ok {")
		e.p("\t\t\t\t\treturn v, false")
		e.p("\t\t\t\t}")
		e.pf("\t\t\t\tv.%s = &x\n", field)
		e.p("\t\t\t}")
		return
	}
	if optional && isSlice {
		e.p("\t\t\tif !cur.Null() {")
		e.pf("\t\t\t\tx, ok := %s\n", readExpr)
		e.p("\t\t\t\tif !ok {")
		e.p("\t\t\t\t\treturn v, false")
		e.p("\t\t\t\t}")
		e.pf("\t\t\t\tv.%s = x\n", field)
		e.p("\t\t\t}")
		return
	}
	e.pf("\t\t\tx, ok := %s\n", readExpr)
	e.p("\t\t\tif !ok {")
	e.p("\t\t\t\treturn v, false")
	e.p("\t\t\t}")
	e.pf("\t\t\tv.%s = x\n", field)
}

func (g *Generator) emitUnionParser(e *emitter, s *openapi.Schema, name string) {
	e.pf("// Parse%s reads the %q discriminator and parses the matching variant.\n", name, s.Discriminator)
	e.pf("func Parse%s(data []byte, a *arena.Arena) (%s, bool) {\n", name, name)
	e.pf("\ttag, ok := jsoncursor.ObjectStringField(data, %q)\n", s.Discriminator)
	e.p("\tif !ok {")
	e.pf("\t\treturn %s{}, false\n", name)
	e.p("\t}")
	e.p("\tswitch tag {")
	for _, v := range s.Variants {
		vn := exportedName(v.Ref)
		e.pf("\tcase %q:\n", v.Ref)
		e.pf("\t\tx, ok := Parse%s(data, a)\n", vn)
		e.p("\t\tif !ok {")
		e.pf("\t\t\treturn %s{}, false\n", name)
		e.p("\t\t}")
		e.pf("\t\treturn %s{Kind: tag, %s: &x}, true\n", name, vn)
	}
	e.p("\t}")
	e.pf("\treturn %s{}, false\n", name)
	e.p("}")
	e.p("")
}

func (g *Generator) emitNamedArrayParser(e *emitter, s *openapi.Schema, name string) {
	g.emitParseWrapper(e, name)
	var helper string
	if s.Items.Kind == openapi.KindRef {
		helper = "parse" + exportedName(s.Items.Ref) + "Slice(cur)"
	} else if t, err := primitiveGoType(s.Items); err == nil {
		helper = primHelperName(t) + "(cur)"
	}
	e.pf("func parse%sValue(cur *jsoncursor.Cursor) (%s, bool) {\n", name, name)
	e.pf("\tx, ok := %s\n", helper)
	e.pf("\treturn %s(x), ok\n", name)
	e.p("}")
	e.p("")
}

func (g *Generator) emitNamedPrimitiveParser(e *emitter, s *openapi.Schema, name string) {
	g.emitParseWrapper(e, name)
	t, err := primitiveGoType(s)
	if err != nil {
		return
	}
	e.pf("func parse%sValue(cur *jsoncursor.Cursor) (%s, bool) {\n", name, name)
	e.pf("\tx, ok := %s\n", cursorRead(t))
	e.pf("\treturn %s(x), ok\n", name)
	e.p("}")
	e.p("")
}

func (g *Generator) emitSerialize(e *emitter, s *openapi.Schema, name string) {
	if s.Kind == openapi.KindUnion {
		e.pf("// Serialize%s marshals the active variant.\n", name)
		e.pf("func Serialize%s(v *%s) []byte {\n", name, name)
		e.p("\tswitch {")
		for _, variant := range s.Variants {
			vn := exportedName(variant.Ref)
			e.pf("\tcase v.%s != nil:\n", vn)
			e.pf("\t\treturn Serialize%s(v.%s)\n", vn, vn)
		}
		e.p("\t}")
		e.p("\treturn []byte(\"null\")")
		e.p("}")
		e.p("")
		return
	}
	e.pf("// Serialize%s marshals v; Parse%s round-trips its output.\n", name, name)
	e.pf("func Serialize%s(v *%s) []byte {\n", name, name)
	e.p("\tdata, err := json.Marshal(v)")
	e.p("\tif err != nil {")
	e.p("\t\treturn []byte(\"null\")")
	e.p("\t}")
	e.p("\treturn data")
	e.p("}")
	e.p("")
}
