package openapi

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// LoadError is a loader failure with the line it points at and the JSON path
// of the offending construct.
type LoadError struct {
	Line int
	Path string
	Msg  string
}

// Error implements error.
func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Path, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type loader struct {
	text    string
	offsets map[string]int64
	doc     *Document
}

func (l *loader) errAt(path, format string, args ...any) error {
	line := 1
	if off, ok := l.offsets[path]; ok {
		line = lineOf(l.text, off)
	}
	return &LoadError{Line: line, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func lineOf(text string, offset int64) int {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	line := 1
	for i := int64(0); i < offset; i++ {
		if text[i] == '\n' {
			line++
		}
	}
	return line
}

// buildOffsets walks the token stream once and records the byte offset of
// every object key, keyed by its JSON path, so later subset errors can be
// reported with a line number.
func buildOffsets(text string) map[string]int64 {
	offsets := make(map[string]int64)
	dec := json.NewDecoder(strings.NewReader(text))
	type frame struct {
		path    string
		isArray bool
		index   int
		key     string
		hasKey  bool
	}
	var stack []frame

	parentPath := func() string {
		if len(stack) == 0 {
			return ""
		}
		top := &stack[len(stack)-1]
		if top.isArray {
			return fmt.Sprintf("%s[%d]", top.path, top.index)
		}
		if top.hasKey {
			if top.path == "" {
				return top.key
			}
			return top.path + "." + top.key
		}
		return top.path
	}
	afterValue := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.isArray {
			top.index++
		} else {
			top.hasKey = false
		}
	}

	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return offsets
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				stack = append(stack, frame{path: parentPath(), isArray: t == '['})
			case '}', ']':
				stack = stack[:len(stack)-1]
				afterValue()
			}
		case string:
			if len(stack) > 0 && !stack[len(stack)-1].isArray && !stack[len(stack)-1].hasKey {
				top := &stack[len(stack)-1]
				top.key = t
				top.hasKey = true
				p := t
				if top.path != "" {
					p = top.path + "." + t
				}
				offsets[p] = off
			} else {
				afterValue()
			}
		default:
			afterValue()
		}
	}
}

type rawSchema struct {
	Ref           string                     `json:"$ref"`
	Type          string                     `json:"type"`
	Properties    map[string]json.RawMessage `json:"properties"`
	Required      []string                   `json:"required"`
	Items         json.RawMessage            `json:"items"`
	Enum          []any                      `json:"enum"`
	Pattern       string                     `json:"pattern"`
	Format        string                     `json:"format"`
	MinLength     *int                       `json:"minLength"`
	MaxLength     *int                       `json:"maxLength"`
	Minimum       *float64                   `json:"minimum"`
	Maximum       *float64                   `json:"maximum"`
	MinItems      *int                       `json:"minItems"`
	MaxItems      *int                       `json:"maxItems"`
	OneOf         []json.RawMessage          `json:"oneOf"`
	Discriminator *struct {
		PropertyName string `json:"propertyName"`
	} `json:"discriminator"`
}

type rawMedia struct {
	Schema json.RawMessage `json:"schema"`
}

type rawParameter struct {
	Name     string          `json:"name"`
	In       string          `json:"in"`
	Required bool            `json:"required"`
	Schema   json.RawMessage `json:"schema"`
}

type rawOperation struct {
	OperationID string         `json:"operationId"`
	Summary     string         `json:"summary"`
	Parameters  []rawParameter `json:"parameters"`
	RequestBody *struct {
		Required bool                `json:"required"`
		Content  map[string]rawMedia `json:"content"`
	} `json:"requestBody"`
	Responses map[string]struct {
		Content map[string]rawMedia `json:"content"`
	} `json:"responses"`
	XCache     string `json:"x-katana-cache"`
	XAlloc     string `json:"x-katana-alloc"`
	XRateLimit string `json:"x-katana-rate-limit"`
}

type rawDocument struct {
	OpenAPI string `json:"openapi"`
	Info    struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"info"`
	Paths      map[string]map[string]json.RawMessage `json:"paths"`
	Components struct {
		Schemas map[string]json.RawMessage `json:"schemas"`
	} `json:"components"`
}

var operationMethods = map[string]string{
	"delete":  "DELETE",
	"get":     "GET",
	"head":    "HEAD",
	"options": "OPTIONS",
	"patch":   "PATCH",
	"post":    "POST",
	"put":     "PUT",
}

// LoadFromString parses the supported OpenAPI 3.x subset. Unsupported
// constructs fail with a *LoadError carrying the line they appear on.
func LoadFromString(text string) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return nil, &LoadError{Line: lineOf(text, syn.Offset), Msg: err.Error()}
		}
		return nil, &LoadError{Line: 1, Msg: err.Error()}
	}

	l := &loader{text: text, offsets: buildOffsets(text), doc: &Document{}}
	l.doc.Title = raw.Info.Title
	l.doc.Version = raw.Info.Version

	if !strings.HasPrefix(raw.OpenAPI, "3.") {
		return nil, l.errAt("openapi", "unsupported OpenAPI version %q (need 3.x)", raw.OpenAPI)
	}

	// Named schemas, sorted by name for deterministic output.
	names := make([]string, 0, len(raw.Components.Schemas))
	for name := range raw.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := "components.schemas." + name
		s, err := l.parseSchema(raw.Components.Schemas[name], path)
		if err != nil {
			return nil, err
		}
		s.Name = name
		l.doc.Schemas = append(l.doc.Schemas, s)
	}

	// Paths, sorted by path then method.
	paths := make([]string, 0, len(raw.Paths))
	for p := range raw.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		item, err := l.parsePathItem(p, raw.Paths[p])
		if err != nil {
			return nil, err
		}
		l.doc.Paths = append(l.doc.Paths, item)
	}

	if err := l.checkRefs(); err != nil {
		return nil, err
	}
	return l.doc, nil
}

// LoadFromFile reads path and loads it.
func LoadFromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadFromString(string(data))
}

func (l *loader) parsePathItem(path string, item map[string]json.RawMessage) (PathItem, error) {
	basePath := "paths." + path
	var shared []Parameter
	if rawShared, ok := item["parameters"]; ok {
		var params []rawParameter
		if err := json.Unmarshal(rawShared, &params); err != nil {
			return PathItem{}, l.errAt(basePath+".parameters", "invalid parameters: %v", err)
		}
		for i, rp := range params {
			p, err := l.parseParameter(rp, fmt.Sprintf("%s.parameters[%d]", basePath, i))
			if err != nil {
				return PathItem{}, err
			}
			shared = append(shared, p)
		}
	}

	pi := PathItem{Path: path}
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "parameters" || k == "summary" || k == "description" {
			continue
		}
		method, ok := operationMethods[k]
		if !ok {
			return PathItem{}, l.errAt(basePath+"."+k, "unsupported path item member %q", k)
		}
		op, err := l.parseOperation(method, item[k], basePath+"."+k)
		if err != nil {
			return PathItem{}, err
		}
		op.Parameters = append(append([]Parameter{}, shared...), op.Parameters...)
		pi.Operations = append(pi.Operations, op)
	}
	return pi, nil
}

func (l *loader) parseOperation(method string, data json.RawMessage, path string) (Operation, error) {
	var raw rawOperation
	if err := json.Unmarshal(data, &raw); err != nil {
		return Operation{}, l.errAt(path, "invalid operation object: %v", err)
	}
	op := Operation{
		Method:      method,
		OperationID: raw.OperationID,
		Summary:     raw.Summary,
		XCache:      raw.XCache,
		XAlloc:      raw.XAlloc,
		XRateLimit:  raw.XRateLimit,
	}
	for i, rp := range raw.Parameters {
		p, err := l.parseParameter(rp, fmt.Sprintf("%s.parameters[%d]", path, i))
		if err != nil {
			return Operation{}, err
		}
		op.Parameters = append(op.Parameters, p)
	}
	if raw.RequestBody != nil {
		body := &RequestBody{Required: raw.RequestBody.Required}
		media, err := l.parseContent(raw.RequestBody.Content, path+".requestBody.content")
		if err != nil {
			return Operation{}, err
		}
		body.Content = media
		op.Body = body
	}
	statuses := make([]string, 0, len(raw.Responses))
	for st := range raw.Responses {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		media, err := l.parseContent(raw.Responses[st].Content, path+".responses."+st+".content")
		if err != nil {
			return Operation{}, err
		}
		op.Responses = append(op.Responses, ResponseSpec{Status: st, Content: media})
	}
	return op, nil
}

func (l *loader) parseContent(content map[string]rawMedia, path string) ([]MediaType, error) {
	types := make([]string, 0, len(content))
	for ct := range content {
		types = append(types, ct)
	}
	sort.Strings(types)
	var out []MediaType
	for _, ct := range types {
		var schema *Schema
		if len(content[ct].Schema) > 0 {
			s, err := l.parseSchema(content[ct].Schema, path+"."+ct+".schema")
			if err != nil {
				return nil, err
			}
			schema = s
		}
		out = append(out, MediaType{ContentType: ct, Schema: schema})
	}
	return out, nil
}

func (l *loader) parseParameter(rp rawParameter, path string) (Parameter, error) {
	p := Parameter{Name: rp.Name, Required: rp.Required}
	switch rp.In {
	case "path":
		p.In = InPath
		p.Required = true
	case "query":
		p.In = InQuery
	case "header":
		p.In = InHeader
	case "cookie":
		p.In = InCookie
	default:
		return Parameter{}, l.errAt(path+".in", "unsupported parameter location %q", rp.In)
	}
	if len(rp.Schema) > 0 {
		s, err := l.parseSchema(rp.Schema, path+".schema")
		if err != nil {
			return Parameter{}, err
		}
		p.Schema = s
	}
	return p, nil
}

const refPrefix = "#/components/schemas/"

func (l *loader) parseSchema(data json.RawMessage, path string) (*Schema, error) {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, l.errAt(path, "invalid schema object: %v", err)
	}

	if raw.Ref != "" {
		if !strings.HasPrefix(raw.Ref, refPrefix) {
			return nil, l.errAt(path+".$ref", "unsupported $ref target %q (only %s* is supported)", raw.Ref, refPrefix)
		}
		return &Schema{Kind: KindRef, Ref: raw.Ref[len(refPrefix):]}, nil
	}

	if len(raw.OneOf) > 0 {
		if raw.Discriminator == nil || raw.Discriminator.PropertyName == "" {
			return nil, l.errAt(path+".oneOf", "oneOf without a discriminator is unsupported")
		}
		s := &Schema{Kind: KindUnion, Discriminator: raw.Discriminator.PropertyName}
		for i, v := range raw.OneOf {
			variant, err := l.parseSchema(v, fmt.Sprintf("%s.oneOf[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if variant.Kind != KindRef {
				return nil, l.errAt(fmt.Sprintf("%s.oneOf[%d]", path, i), "union variants must be $refs to named schemas")
			}
			s.Variants = append(s.Variants, variant)
		}
		return s, nil
	}

	s := &Schema{
		Pattern:   raw.Pattern,
		Format:    raw.Format,
		MinLength: raw.MinLength,
		MaxLength: raw.MaxLength,
		Minimum:   raw.Minimum,
		Maximum:   raw.Maximum,
		MinItems:  raw.MinItems,
		MaxItems:  raw.MaxItems,
		Required:  raw.Required,
	}
	for _, e := range raw.Enum {
		str, ok := e.(string)
		if !ok {
			return nil, l.errAt(path+".enum", "only string enums are supported")
		}
		s.Enum = append(s.Enum, str)
	}

	switch raw.Type {
	case "string":
		s.Kind = KindString
	case "integer":
		s.Kind = KindInteger
	case "number":
		s.Kind = KindNumber
	case "boolean":
		s.Kind = KindBoolean
	case "array":
		s.Kind = KindArray
		if len(raw.Items) == 0 {
			return nil, l.errAt(path, "array schema requires items")
		}
		items, err := l.parseSchema(raw.Items, path+".items")
		if err != nil {
			return nil, err
		}
		s.Items = items
	case "object", "":
		if raw.Type == "" && len(raw.Properties) == 0 {
			return nil, l.errAt(path, "schema without type or properties is unsupported")
		}
		s.Kind = KindObject
		names := make([]string, 0, len(raw.Properties))
		for n := range raw.Properties {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			prop, err := l.parseSchema(raw.Properties[n], path+".properties."+n)
			if err != nil {
				return nil, err
			}
			s.Properties = append(s.Properties, Property{Name: n, Schema: prop})
		}
	default:
		return nil, l.errAt(path+".type", "unsupported schema type %q", raw.Type)
	}
	return s, nil
}

// checkRefs verifies every $ref resolves to a named schema and no ref chains
// to another ref.
func (l *loader) checkRefs() error {
	var walk func(s *Schema, path string) error
	walk = func(s *Schema, path string) error {
		if s == nil {
			return nil
		}
		if s.Kind == KindRef {
			target := l.doc.SchemaByName(s.Ref)
			if target == nil {
				return l.errAt(path, "unresolved $ref %q", s.Ref)
			}
			if target.Kind == KindRef {
				return l.errAt(path, "$ref to $ref %q is unsupported", s.Ref)
			}
			return nil
		}
		for _, p := range s.Properties {
			if err := walk(p.Schema, path+".properties."+p.Name); err != nil {
				return err
			}
		}
		if err := walk(s.Items, path+".items"); err != nil {
			return err
		}
		for i, v := range s.Variants {
			if err := walk(v, fmt.Sprintf("%s.oneOf[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, s := range l.doc.Schemas {
		if err := walk(s, "components.schemas."+s.Name); err != nil {
			return err
		}
	}
	for _, pi := range l.doc.Paths {
		for _, op := range pi.Operations {
			base := "paths." + pi.Path + "." + strings.ToLower(op.Method)
			for i, p := range op.Parameters {
				if err := walk(p.Schema, fmt.Sprintf("%s.parameters[%d].schema", base, i)); err != nil {
					return err
				}
			}
			if op.Body != nil {
				for _, m := range op.Body.Content {
					if err := walk(m.Schema, base+".requestBody.content."+m.ContentType); err != nil {
						return err
					}
				}
			}
			for _, r := range op.Responses {
				for _, m := range r.Content {
					if err := walk(m.Schema, base+".responses."+r.Status+".content."+m.ContentType); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
