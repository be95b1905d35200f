package gen

import (
	"fmt"

	"github.com/katana-web/katana/openapi"
)

// validateSchemas rejects document shapes the emitters cannot express:
// unions anywhere but at body top level, and inline object properties.
func (g *Generator) validateSchemas() error {
	for _, s := range g.doc.Schemas {
		if s.Kind != openapi.KindObject {
			continue
		}
		for _, p := range s.Properties {
			t := g.doc.Resolve(p.Schema)
			if t != nil && t.Kind == openapi.KindUnion {
				return fmt.Errorf("schema %s.%s: unions are supported only as request body schemas", s.Name, p.Name)
			}
			if p.Schema.Kind == openapi.KindObject {
				return fmt.Errorf("schema %s.%s: inline object properties are unsupported; use a $ref", s.Name, p.Name)
			}
			if p.Schema.Kind == openapi.KindArray {
				it := g.doc.Resolve(p.Schema.Items)
				if it != nil && it.Kind == openapi.KindUnion {
					return fmt.Errorf("schema %s.%s: arrays of unions are unsupported", s.Name, p.Name)
				}
				if p.Schema.Items.Kind == openapi.KindObject {
					return fmt.Errorf("schema %s.%s: arrays of inline objects are unsupported; use a $ref", s.Name, p.Name)
				}
			}
		}
	}
	return nil
}

// emitDTOs writes one typed carrier per named schema, plus the per-operation
// sum-type body wrappers for multi-schema request bodies.
func (g *Generator) emitDTOs() []byte {
	e := &emitter{}
	g.fileHeader(e)

	for _, s := range g.doc.Schemas {
		name := exportedName(s.Name)
		switch s.Kind {
		case openapi.KindObject:
			e.pf("// %s corresponds to schema %q.\n", name, s.Name)
			e.pf("type %s struct {\n", name)
			for _, p := range s.Properties {
				optional := !s.IsRequired(p.Name)
				goType, err := g.fieldGoType(p.Schema, optional)
				if err != nil {
					// validateSchemas already rejected these shapes.
					continue
				}
				tag := p.Name
				if optional {
					tag += ",omitempty"
				}
				e.pf("\t%s %s `json:%q`\n", exportedName(p.Name), goType, tag)
			}
			e.p("}")
			e.p("")
		case openapi.KindUnion:
			e.pf("// %s is the tagged union over discriminator %q; exactly one\n", name, s.Discriminator)
			e.p("// variant pointer is set.")
			e.pf("type %s struct {\n", name)
			e.pf("\tKind string\n")
			for _, v := range s.Variants {
				vn := exportedName(v.Ref)
				e.pf("\t%s *%s\n", vn, vn)
			}
			e.p("}")
			e.p("")
		case openapi.KindArray:
			goType, err := g.valueGoType(s)
			if err != nil {
				continue
			}
			e.pf("// %s corresponds to schema %q.\n", name, s.Name)
			e.pf("type %s %s\n", name, goType)
			e.p("")
		default:
			goType, err := primitiveGoType(s)
			if err != nil {
				continue
			}
			e.pf("// %s corresponds to schema %q.\n", name, s.Name)
			e.pf("type %s %s\n", name, goType)
			e.p("")
		}
	}

	for _, m := range g.ops {
		if m.body == nil || !m.body.variant {
			continue
		}
		e.pf("// %s carries the request body of %s; the media type selects\n", m.body.variantName, m.methodName)
		e.p("// which field is set.")
		e.pf("type %s struct {\n", m.body.variantName)
		seen := map[string]bool{}
		for _, media := range m.body.media {
			fieldName := exportedName(media.typeName)
			if seen[fieldName] {
				continue
			}
			seen[fieldName] = true
			e.pf("\t%s *%s\n", fieldName, media.typeName)
		}
		e.p("}")
		e.p("")
	}

	return e.bytes()
}
