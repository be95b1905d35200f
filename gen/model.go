package gen

import (
	"fmt"
	"strings"

	"github.com/katana-web/katana/openapi"
)

// paramModel is one resolved operation parameter.
type paramModel struct {
	spec     openapi.Parameter
	arg      string // Go argument name
	goType   string // int64, float64, bool, string
	optional bool   // pointer-wrapped (non-path, not required)
}

// bodyMedia is one consumed media type with its parse target.
type bodyMedia struct {
	contentType string
	typeName    string // Go type of the parsed value
	parseFn     string // Parse function name
	validateFn  string // Validate function name, "" if the schema is unconstrained
}

// bodyModel resolves an operation's request body.
type bodyModel struct {
	consumes []string
	media    []bodyMedia
	// variant is set when distinct media types parse into distinct schemas;
	// the handler then receives the generated sum-type wrapper.
	variant     bool
	variantName string // wrapper struct name, e.g. ImportDataBody
	typeExpr    string // handler argument type
}

// opModel is one operation resolved for emission.
type opModel struct {
	spec       openapi.Operation
	path       string
	methodName string // exported Go method name from operationId
	static     bool   // no {param} in path
	params     []paramModel
	body       *bodyModel
	produces   []string
}

// buildModel resolves the document into emission models, ordered by path
// then method (the loader already sorted both).
func (g *Generator) buildModel() error {
	for _, pi := range g.doc.Paths {
		for _, op := range pi.Operations {
			if op.OperationID == "" {
				continue
			}
			m, err := g.buildOp(pi.Path, op)
			if err != nil {
				return err
			}
			g.ops = append(g.ops, m)
		}
	}
	return nil
}

func (g *Generator) buildOp(path string, op openapi.Operation) (opModel, error) {
	m := opModel{
		spec:       op,
		path:       path,
		methodName: exportedName(op.OperationID),
		static:     !strings.Contains(path, "{"),
	}

	// Path params first, then query/header/cookie, preserving declaration
	// order within each group; this is also the handler argument order.
	for _, pass := range []bool{true, false} {
		for _, p := range op.Parameters {
			if (p.In == openapi.InPath) != pass {
				continue
			}
			if p.Schema == nil {
				continue
			}
			goType, err := paramGoType(g.doc.Resolve(p.Schema))
			if err != nil {
				return m, fmt.Errorf("operation %s parameter %s: %w", op.OperationID, p.Name, err)
			}
			m.params = append(m.params, paramModel{
				spec:     p,
				arg:      argName(p.Name),
				goType:   goType,
				optional: p.In != openapi.InPath && !p.Required,
			})
		}
	}

	for _, r := range op.Responses {
		for _, mt := range r.Content {
			if !contains(m.produces, mt.ContentType) {
				m.produces = append(m.produces, mt.ContentType)
			}
		}
	}

	if op.Body != nil && len(op.Body.Content) > 0 {
		body, err := g.buildBody(&m, op)
		if err != nil {
			return m, err
		}
		m.body = body
	}
	return m, nil
}

func (g *Generator) buildBody(m *opModel, op openapi.Operation) (*bodyModel, error) {
	b := &bodyModel{}
	seenTypes := map[string]bool{}
	for _, mt := range op.Body.Content {
		b.consumes = append(b.consumes, mt.ContentType)
		tn, parseFn, validateFn, err := g.bodyTarget(m, mt.Schema)
		if err != nil {
			return nil, fmt.Errorf("operation %s body %s: %w", op.OperationID, mt.ContentType, err)
		}
		b.media = append(b.media, bodyMedia{
			contentType: mt.ContentType,
			typeName:    tn,
			parseFn:     parseFn,
			validateFn:  validateFn,
		})
		seenTypes[tn] = true
	}
	if len(seenTypes) > 1 {
		for tn := range seenTypes {
			if strings.HasPrefix(tn, "[]") {
				return nil, fmt.Errorf("operation %s: multi-schema bodies must use named schemas", op.OperationID)
			}
		}
		b.variant = true
		b.variantName = m.methodName + "Body"
		b.typeExpr = b.variantName
	} else {
		b.typeExpr = b.media[0].typeName
	}
	return b, nil
}

// bodyTarget resolves a body media schema to (Go type, parse fn, validate fn).
func (g *Generator) bodyTarget(m *opModel, s *openapi.Schema) (string, string, string, error) {
	if s == nil {
		return "", "", "", fmt.Errorf("media type without a schema is unsupported")
	}
	if s.Kind == openapi.KindRef {
		target := g.doc.SchemaByName(s.Ref)
		tn := exportedName(target.Name)
		validateFn := ""
		if schemaHasConstraints(g.doc, target) {
			validateFn = "Validate" + tn
		}
		return tn, "Parse" + tn, validateFn, nil
	}
	if s.Kind == openapi.KindArray {
		elem := g.doc.Resolve(s.Items)
		elemType, err := primitiveGoType(elem)
		if err != nil {
			return "", "", "", fmt.Errorf("inline body arrays must hold primitives: %w", err)
		}
		// Inline array body gets a per-operation parse wrapper.
		name := m.methodName + "Body"
		w := inlineArrayBody{name: name, elemType: elemType, schema: s}
		g.inlineBodies = append(g.inlineBodies, w)
		validateFn := ""
		if s.MinItems != nil || s.MaxItems != nil {
			validateFn = "Validate" + name
		}
		return "[]" + elemType, "Parse" + name, validateFn, nil
	}
	return "", "", "", fmt.Errorf("inline body schemas of this shape are unsupported; use a $ref")
}

// inlineArrayBody is an operation body of inline array-of-primitive shape.
type inlineArrayBody struct {
	name     string
	elemType string
	schema   *openapi.Schema
}

func paramGoType(s *openapi.Schema) (string, error) {
	if s == nil {
		return "string", nil
	}
	switch s.Kind {
	case openapi.KindString:
		return "string", nil
	case openapi.KindInteger:
		return "int64", nil
	case openapi.KindNumber:
		return "float64", nil
	case openapi.KindBoolean:
		return "bool", nil
	}
	return "", fmt.Errorf("parameters must be primitive")
}

func primitiveGoType(s *openapi.Schema) (string, error) {
	if s == nil {
		return "", fmt.Errorf("missing schema")
	}
	switch s.Kind {
	case openapi.KindString:
		return "string", nil
	case openapi.KindInteger:
		return "int64", nil
	case openapi.KindNumber:
		return "float64", nil
	case openapi.KindBoolean:
		return "bool", nil
	}
	return "", fmt.Errorf("expected a primitive schema")
}

// fieldGoType maps an object property schema to its Go field type.
func (g *Generator) fieldGoType(s *openapi.Schema, optional bool) (string, error) {
	base, err := g.valueGoType(s)
	if err != nil {
		return "", err
	}
	if optional && !strings.HasPrefix(base, "[]") {
		return "*" + base, nil
	}
	return base, nil
}

func (g *Generator) valueGoType(s *openapi.Schema) (string, error) {
	switch s.Kind {
	case openapi.KindRef:
		return exportedName(s.Ref), nil
	case openapi.KindArray:
		elem, err := g.valueGoType(s.Items)
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil
	default:
		return primitiveGoType(s)
	}
}

func (g *Generator) unref(s *openapi.Schema) *openapi.Schema {
	return g.doc.Resolve(s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// schemaHasConstraints reports whether a validator is worth emitting.
func schemaHasConstraints(doc *openapi.Document, s *openapi.Schema) bool {
	if s == nil {
		return false
	}
	switch s.Kind {
	case openapi.KindRef:
		return schemaHasConstraints(doc, doc.SchemaByName(s.Ref))
	case openapi.KindUnion:
		for _, v := range s.Variants {
			if schemaHasConstraints(doc, v) {
				return true
			}
		}
		return false
	case openapi.KindObject:
		if len(s.Required) > 0 {
			return true
		}
		for _, p := range s.Properties {
			if schemaHasConstraints(doc, p.Schema) {
				return true
			}
		}
		return false
	case openapi.KindArray:
		if s.MinItems != nil || s.MaxItems != nil {
			return true
		}
		return schemaHasConstraints(doc, s.Items)
	default:
		return len(s.Enum) > 0 || s.Pattern != "" ||
			s.MinLength != nil || s.MaxLength != nil ||
			s.Minimum != nil || s.Maximum != nil
	}
}
