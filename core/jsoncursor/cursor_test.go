package jsoncursor

import (
	"testing"

	"github.com/katana-web/katana/core/arena"
)

func newCursor(s string) (Cursor, *arena.Arena) {
	a := arena.New(0)
	return New([]byte(s), a), a
}

func TestScalars(t *testing.T) {
	cur, _ := newCursor(`  42 `)
	if v, ok := cur.Int64(); !ok || v != 42 {
		t.Fatalf("int = %d, %v", v, ok)
	}
	if !cur.AtEnd() {
		t.Fatal("trailing input")
	}

	cur, _ = newCursor(`-3.5e2`)
	if v, ok := cur.Float64(); !ok || v != -350 {
		t.Fatalf("float = %v, %v", v, ok)
	}

	cur, _ = newCursor(`true`)
	if v, ok := cur.Bool(); !ok || !v {
		t.Fatal("true not read")
	}

	cur, _ = newCursor(`null`)
	if !cur.Null() {
		t.Fatal("null not read")
	}
}

func TestStringPlainAndEscaped(t *testing.T) {
	cur, _ := newCursor(`"hello"`)
	if s, ok := cur.String(); !ok || s != "hello" {
		t.Fatalf("string = %q, %v", s, ok)
	}

	cur, _ = newCursor(`"a\"b\nA"`)
	if s, ok := cur.String(); !ok || s != "a\"b\nA" {
		t.Fatalf("escaped string = %q, %v", s, ok)
	}

	cur, _ = newCursor(`"unterminated`)
	if _, ok := cur.String(); ok {
		t.Fatal("unterminated string accepted")
	}
}

func TestNumberArraySingleRead(t *testing.T) {
	// The scalar is read once, straight into the typed element; the arena
	// holds only string materializations, so numbers cost it nothing.
	cur, a := newCursor(`[1.0, 2.0, 3.0, 4.0, 5.0]`)
	if !cur.Expect('[') {
		t.Fatal("missing [")
	}
	var out []float64
	for {
		v, ok := cur.Float64()
		if !ok {
			t.Fatal("element read failed")
		}
		out = append(out, v)
		if cur.Expect(',') {
			continue
		}
		if cur.Expect(']') {
			break
		}
		t.Fatal("malformed array")
	}
	if len(out) != 5 || out[0] != 1 || out[4] != 5 {
		t.Fatalf("out = %v", out)
	}
	if a.Used() != 0 {
		t.Fatalf("number parsing touched the arena: %d bytes", a.Used())
	}

	// Re-parsing after a reset works against the same input.
	a.Reset()
	cur2 := New([]byte(`[1.0, 2.0]`), a)
	if !cur2.Expect('[') {
		t.Fatal("re-parse failed")
	}
}

func TestSkipValue(t *testing.T) {
	cases := []string{
		`{"a": [1, 2, {"b": "c"}], "d": null}`,
		`[[[]]]`,
		`"str with ] and }"`,
		`-12.5`,
		`true`,
	}
	for _, src := range cases {
		cur, _ := newCursor(src + ` 7`)
		if !cur.SkipValue() {
			t.Fatalf("SkipValue(%q) failed", src)
		}
		if v, ok := cur.Int64(); !ok || v != 7 {
			t.Fatalf("cursor misplaced after skipping %q", src)
		}
	}
}

func TestWhitespaceSkipping(t *testing.T) {
	// More than 8 bytes of spaces exercises the wide path.
	cur, _ := newCursor("                \t\r\n  123")
	if v, ok := cur.Int64(); !ok || v != 123 {
		t.Fatalf("int after long whitespace = %d, %v", v, ok)
	}
}

func TestObjectStringField(t *testing.T) {
	data := []byte(`{"size": 3, "kind": "circle", "radius": 1.5}`)
	if v, ok := ObjectStringField(data, "kind"); !ok || v != "circle" {
		t.Fatalf("kind = %q, %v", v, ok)
	}
	if _, ok := ObjectStringField(data, "missing"); ok {
		t.Fatal("missing field found")
	}
	if _, ok := ObjectStringField([]byte(`[1, 2]`), "kind"); ok {
		t.Fatal("non-object accepted")
	}
}

func TestMalformedNumbers(t *testing.T) {
	for _, src := range []string{`-`, `abc`, `--1`} {
		cur, _ := newCursor(src)
		if _, ok := cur.Float64(); ok {
			t.Fatalf("%q accepted as number", src)
		}
	}
}

func BenchmarkFloatArray(b *testing.B) {
	data := []byte(`[1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0]`)
	a := arena.New(0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Reset()
		cur := New(data, a)
		cur.Expect('[')
		for {
			if _, ok := cur.Float64(); !ok {
				b.Fatal("read failed")
			}
			if cur.Expect(',') {
				continue
			}
			break
		}
	}
}
