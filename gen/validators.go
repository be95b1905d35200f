package gen

import (
	"strconv"

	"github.com/katana-web/katana/openapi"
)

// emitValidators writes one ValidateT per constrained schema. Validators are
// total and allocate only when they fail; pattern constraints compile their
// regexps once at package init.
//
// Required-field checking is limited by representation: required strings
// must be non-empty and required arrays non-nil; required numerics cannot be
// distinguished from their zero value and are not checked.
func (g *Generator) emitValidators() []byte {
	e := &emitter{}

	var constrained []*openapi.Schema
	for _, s := range g.doc.Schemas {
		if schemaHasConstraints(g.doc, s) {
			constrained = append(constrained, s)
		}
	}

	var imports []string
	needsRegexp := false
	for _, s := range constrained {
		if schemaUsesPattern(g.doc, s) {
			needsRegexp = true
		}
	}
	if needsRegexp {
		imports = append(imports, `"regexp"`, "")
	}
	if len(constrained) > 0 || len(g.inlineBodies) > 0 {
		imports = append(imports, g.imp("core/dispatch"))
	}
	g.fileHeader(e, imports...)

	// Pattern regexps, hoisted so the success path never compiles.
	for _, s := range constrained {
		g.emitPatternVars(e, s)
	}

	for _, s := range constrained {
		name := exportedName(s.Name)
		switch s.Kind {
		case openapi.KindObject:
			g.emitObjectValidator(e, s, name)
		case openapi.KindUnion:
			g.emitUnionValidator(e, s, name)
		case openapi.KindArray:
			g.emitNamedArrayValidator(e, s, name)
		}
	}

	for _, b := range g.inlineBodies {
		if b.schema.MinItems == nil && b.schema.MaxItems == nil {
			continue
		}
		e.pf("// Validate%s checks the inline array body constraints.\n", b.name)
		e.pf("func Validate%s(v []%s) *dispatch.ValidationError {\n", b.name, b.elemType)
		if b.schema.MinItems != nil {
			e.pf("\tif len(v) < %d {\n", *b.schema.MinItems)
			e.pf("\t\treturn &dispatch.ValidationError{Field: \"body\", Message: \"must have at least %d items\"}\n", *b.schema.MinItems)
			e.p("\t}")
		}
		if b.schema.MaxItems != nil {
			e.pf("\tif len(v) > %d {\n", *b.schema.MaxItems)
			e.pf("\t\treturn &dispatch.ValidationError{Field: \"body\", Message: \"must have at most %d items\"}\n", *b.schema.MaxItems)
			e.p("\t}")
		}
		e.p("\treturn nil")
		e.p("}")
		e.p("")
	}

	return e.bytes()
}

func schemaUsesPattern(doc *openapi.Document, s *openapi.Schema) bool {
	if s == nil {
		return false
	}
	if s.Pattern != "" {
		return true
	}
	for _, p := range s.Properties {
		if p.Schema.Pattern != "" {
			return true
		}
	}
	return false
}

func (g *Generator) emitPatternVars(e *emitter, s *openapi.Schema) {
	for _, p := range s.Properties {
		if p.Schema.Pattern == "" {
			continue
		}
		e.pf("var %sPattern = regexp.MustCompile(%q)\n", patternVar(s, p.Name), p.Schema.Pattern)
		e.p("")
	}
}

func patternVar(s *openapi.Schema, prop string) string {
	return argName(s.Name) + exportedName(prop)
}

func (g *Generator) emitObjectValidator(e *emitter, s *openapi.Schema, name string) {
	e.pf("// Validate%s reports the first violated constraint of %q, or nil.\n", name, s.Name)
	e.pf("func Validate%s(v *%s) *dispatch.ValidationError {\n", name, name)

	for _, prop := range s.Properties {
		field := exportedName(prop.Name)
		optional := !s.IsRequired(prop.Name)
		ps := prop.Schema
		resolved := g.doc.Resolve(ps)

		// Required checks, where the representation can express absence.
		if !optional {
			switch {
			case ps.Kind == openapi.KindString || (resolved != nil && resolved.Kind == openapi.KindString && ps.Kind == openapi.KindRef):
				e.pf("\tif v.%s == \"\" {\n", field)
				e.pf("\t\treturn &dispatch.ValidationError{Field: %q, Message: \"is required\"}\n", prop.Name)
				e.p("\t}")
			case ps.Kind == openapi.KindArray:
				e.pf("\tif v.%s == nil {\n", field)
				e.pf("\t\treturn &dispatch.ValidationError{Field: %q, Message: \"is required\"}\n", prop.Name)
				e.p("\t}")
			}
		}

		access := "v." + field
		deref := access
		if optional && ps.Kind != openapi.KindArray {
			deref = "*" + access
		}
		guard := func(emitChecks func()) {
			if optional && ps.Kind != openapi.KindArray {
				e.pf("\tif %s != nil {\n", access)
				emitChecks()
				e.p("\t}")
			} else {
				emitChecks()
			}
		}
		indent := "\t"
		if optional && ps.Kind != openapi.KindArray {
			indent = "\t\t"
		}

		switch ps.Kind {
		case openapi.KindString:
			guard(func() {
				if ps.MinLength != nil {
					e.pf("%sif len(%s) < %d {\n", indent, deref, *ps.MinLength)
					e.pf("%s\treturn &dispatch.ValidationError{Field: %q, Message: \"must be at least %d characters\"}\n", indent, prop.Name, *ps.MinLength)
					e.pf("%s}\n", indent)
				}
				if ps.MaxLength != nil {
					e.pf("%sif len(%s) > %d {\n", indent, deref, *ps.MaxLength)
					e.pf("%s\treturn &dispatch.ValidationError{Field: %q, Message: \"must be at most %d characters\"}\n", indent, prop.Name, *ps.MaxLength)
					e.pf("%s}\n", indent)
				}
				if ps.Pattern != "" {
					e.pf("%sif !%sPattern.MatchString(%s) {\n", indent, patternVar(s, prop.Name), deref)
					e.pf("%s\treturn &dispatch.ValidationError{Field: %q, Message: \"does not match the required pattern\"}\n", indent, prop.Name)
					e.pf("%s}\n", indent)
				}
				if len(ps.Enum) > 0 {
					e.pf("%sswitch %s {\n", indent, deref)
					e.pf("%scase ", indent)
					for i, v := range ps.Enum {
						if i > 0 {
							e.pf(", ")
						}
						e.pf("%q", v)
					}
					e.pf(":\n")
					e.pf("%sdefault:\n", indent)
					e.pf("%s\treturn &dispatch.ValidationError{Field: %q, Message: \"must be one of the allowed values\"}\n", indent, prop.Name)
					e.pf("%s}\n", indent)
				}
			})
		case openapi.KindInteger, openapi.KindNumber:
			guard(func() {
				if ps.Minimum != nil {
					e.pf("%sif %s < %s {\n", indent, deref, numLit(ps.Kind, *ps.Minimum))
					e.pf("%s\treturn &dispatch.ValidationError{Field: %q, Message: \"must be >= %s\"}\n", indent, prop.Name, trimFloat(*ps.Minimum))
					e.pf("%s}\n", indent)
				}
				if ps.Maximum != nil {
					e.pf("%sif %s > %s {\n", indent, deref, numLit(ps.Kind, *ps.Maximum))
					e.pf("%s\treturn &dispatch.ValidationError{Field: %q, Message: \"must be <= %s\"}\n", indent, prop.Name, trimFloat(*ps.Maximum))
					e.pf("%s}\n", indent)
				}
			})
		case openapi.KindArray:
			if ps.MinItems != nil {
				e.pf("\tif len(v.%s) < %d {\n", field, *ps.MinItems)
				e.pf("\t\treturn &dispatch.ValidationError{Field: %q, Message: \"must have at least %d items\"}\n", prop.Name, *ps.MinItems)
				e.p("\t}")
			}
			if ps.MaxItems != nil {
				e.pf("\tif len(v.%s) > %d {\n", field, *ps.MaxItems)
				e.pf("\t\treturn &dispatch.ValidationError{Field: %q, Message: \"must have at most %d items\"}\n", prop.Name, *ps.MaxItems)
				e.p("\t}")
			}
			if ps.Items.Kind == openapi.KindRef && schemaHasConstraints(g.doc, g.doc.SchemaByName(ps.Items.Ref)) {
				elem := exportedName(ps.Items.Ref)
				e.pf("\tfor i := range v.%s {\n", field)
				e.pf("\t\tif err := Validate%s(&v.%s[i]); err != nil {\n", elem, field)
				e.p("\t\t\treturn err")
				e.p("\t\t}")
				e.p("\t}")
			}
		case openapi.KindRef:
			if resolved != nil && resolved.Kind == openapi.KindObject && schemaHasConstraints(g.doc, resolved) {
				target := exportedName(ps.Ref)
				if optional {
					e.pf("\tif v.%s != nil {\n", field)
					e.pf("\t\tif err := Validate%s(v.%s); err != nil {\n", target, field)
					e.p("\t\t\treturn err")
					e.p("\t\t}")
					e.p("\t}")
				} else {
					e.pf("\tif err := Validate%s(&v.%s); err != nil {\n", target, field)
					e.p("\t\treturn err")
					e.p("\t}")
				}
			}
		}
	}

	e.p("\treturn nil")
	e.p("}")
	e.p("")
}

func (g *Generator) emitUnionValidator(e *emitter, s *openapi.Schema, name string) {
	e.pf("// Validate%s validates the active variant.\n", name)
	e.pf("func Validate%s(v *%s) *dispatch.ValidationError {\n", name, name)
	e.p("\tswitch {")
	for _, variant := range s.Variants {
		vn := exportedName(variant.Ref)
		if !schemaHasConstraints(g.doc, g.doc.SchemaByName(variant.Ref)) {
			continue
		}
		e.pf("\tcase v.%s != nil:\n", vn)
		e.pf("\t\treturn Validate%s(v.%s)\n", vn, vn)
	}
	e.p("\t}")
	e.p("\treturn nil")
	e.p("}")
	e.p("")
}

func (g *Generator) emitNamedArrayValidator(e *emitter, s *openapi.Schema, name string) {
	e.pf("// Validate%s checks the array constraints of %q.\n", name, s.Name)
	e.pf("func Validate%s(v *%s) *dispatch.ValidationError {\n", name, name)
	if s.MinItems != nil {
		e.pf("\tif len(*v) < %d {\n", *s.MinItems)
		e.pf("\t\treturn &dispatch.ValidationError{Field: %q, Message: \"must have at least %d items\"}\n", s.Name, *s.MinItems)
		e.p("\t}")
	}
	if s.MaxItems != nil {
		e.pf("\tif len(*v) > %d {\n", *s.MaxItems)
		e.pf("\t\treturn &dispatch.ValidationError{Field: %q, Message: \"must have at most %d items\"}\n", s.Name, *s.MaxItems)
		e.p("\t}")
	}
	e.p("\treturn nil")
	e.p("}")
	e.p("")
}

func numLit(kind openapi.SchemaKind, v float64) string {
	if kind == openapi.KindInteger {
		return strconv.FormatInt(int64(v), 10)
	}
	return trimFloat(v)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
