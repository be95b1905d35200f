package openapi

import (
	"strings"
	"testing"
)

const petstore = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "summary": "List all pets",
        "parameters": [
          {"name": "limit", "in": "query", "required": false, "schema": {"type": "integer"}}
        ],
        "responses": {
          "200": {"content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Pet"}}}}}
        }
      },
      "post": {
        "operationId": "createPet",
        "x-katana-rate-limit": "100/s",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
        },
        "responses": {
          "201": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}}
        }
      }
    },
    "/pets/{petId}": {
      "get": {
        "operationId": "getPet",
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "schema": {"type": "integer"}}
        ],
        "responses": {
          "200": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string", "minLength": 1, "maxLength": 64},
          "tag": {"type": "string"}
        }
      }
    }
  }
}`

func TestLoadPetstore(t *testing.T) {
	doc, err := LoadFromString(petstore)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Title != "Petstore" || doc.Version != "1.0.0" {
		t.Fatalf("info = %q %q", doc.Title, doc.Version)
	}
	if len(doc.Paths) != 2 {
		t.Fatalf("paths = %d", len(doc.Paths))
	}
	// Paths sorted; methods sorted within a path.
	if doc.Paths[0].Path != "/pets" || doc.Paths[1].Path != "/pets/{petId}" {
		t.Fatalf("path order: %q, %q", doc.Paths[0].Path, doc.Paths[1].Path)
	}
	ops := doc.Paths[0].Operations
	if len(ops) != 2 || ops[0].Method != "GET" || ops[1].Method != "POST" {
		t.Fatalf("operation order: %+v", ops)
	}
	if ops[1].XRateLimit != "100/s" {
		t.Fatalf("x-katana-rate-limit = %q", ops[1].XRateLimit)
	}

	pet := doc.SchemaByName("Pet")
	if pet == nil || pet.Kind != KindObject {
		t.Fatal("Pet schema missing")
	}
	if !pet.IsRequired("name") || pet.IsRequired("id") {
		t.Fatal("required list wrong")
	}
	// Properties sorted by name.
	if pet.Properties[0].Name != "id" || pet.Properties[1].Name != "name" || pet.Properties[2].Name != "tag" {
		t.Fatalf("property order: %+v", pet.Properties)
	}
	if pet.Properties[1].Schema.MinLength == nil || *pet.Properties[1].Schema.MinLength != 1 {
		t.Fatal("minLength lost")
	}

	// Path param is implicitly required.
	getPet := doc.Paths[1].Operations[0]
	if len(getPet.Parameters) != 1 || !getPet.Parameters[0].Required || getPet.Parameters[0].In != InPath {
		t.Fatalf("petId parameter: %+v", getPet.Parameters)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	_, err := LoadFromString(`{"openapi": "2.0", "info": {"title": "x", "version": "1"}, "paths": {}}`)
	if err == nil || !strings.Contains(err.Error(), "unsupported OpenAPI version") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadUnsupportedConstructHasLine(t *testing.T) {
	spec := `{
  "openapi": "3.0.0",
  "info": {"title": "x", "version": "1"},
  "paths": {
    "/a": {
      "get": {
        "operationId": "getA",
        "parameters": [
          {"name": "m", "in": "matrix", "schema": {"type": "string"}}
        ],
        "responses": {}
      }
    }
  }
}`
	_, err := LoadFromString(spec)
	if err == nil {
		t.Fatal("matrix parameter accepted")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("err type %T", err)
	}
	if !strings.Contains(le.Msg, "unsupported parameter location") {
		t.Fatalf("msg = %q", le.Msg)
	}
	if le.Line < 1 {
		t.Fatalf("line = %d", le.Line)
	}
}

func TestLoadSyntaxErrorHasLine(t *testing.T) {
	spec := "{\n  \"openapi\": \"3.0.0\",\n  \"info\": oops\n}"
	_, err := LoadFromString(spec)
	if err == nil {
		t.Fatal("syntax error accepted")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("err type %T", err)
	}
	if le.Line < 1 {
		t.Fatalf("line = %d", le.Line)
	}
}

func TestLoadRejectsUnresolvedRef(t *testing.T) {
	spec := `{
  "openapi": "3.0.0",
  "info": {"title": "x", "version": "1"},
  "paths": {
    "/a": {
      "post": {
        "operationId": "makeA",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Ghost"}}}},
        "responses": {}
      }
    }
  }
}`
	_, err := LoadFromString(spec)
	if err == nil || !strings.Contains(err.Error(), "unresolved $ref") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadUnion(t *testing.T) {
	spec := `{
  "openapi": "3.0.0",
  "info": {"title": "x", "version": "1"},
  "paths": {},
  "components": {
    "schemas": {
      "Circle": {"type": "object", "properties": {"kind": {"type": "string"}, "radius": {"type": "number"}}},
      "Square": {"type": "object", "properties": {"kind": {"type": "string"}, "side": {"type": "number"}}},
      "Shape": {
        "oneOf": [{"$ref": "#/components/schemas/Circle"}, {"$ref": "#/components/schemas/Square"}],
        "discriminator": {"propertyName": "kind"}
      }
    }
  }
}`
	doc, err := LoadFromString(spec)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	shape := doc.SchemaByName("Shape")
	if shape == nil || shape.Kind != KindUnion || shape.Discriminator != "kind" {
		t.Fatalf("shape = %+v", shape)
	}
	if len(shape.Variants) != 2 || shape.Variants[0].Ref != "Circle" {
		t.Fatalf("variants = %+v", shape.Variants)
	}
}

func TestLoadRejectsOneOfWithoutDiscriminator(t *testing.T) {
	spec := `{
  "openapi": "3.0.0",
  "info": {"title": "x", "version": "1"},
  "paths": {},
  "components": {
    "schemas": {
      "A": {"type": "object", "properties": {"x": {"type": "string"}}},
      "Bad": {"oneOf": [{"$ref": "#/components/schemas/A"}]}
    }
  }
}`
	_, err := LoadFromString(spec)
	if err == nil || !strings.Contains(err.Error(), "discriminator") {
		t.Fatalf("err = %v", err)
	}
}
