package http

import "testing"

func TestHeaderMapFieldLookup(t *testing.T) {
	var m HeaderMap
	m.Add("Content-Type", "application/json")
	m.Add("X-Custom", "1")

	if v, ok := m.Get(FieldContentType); !ok || v != "application/json" {
		t.Fatalf("Get(FieldContentType) = %q, %v", v, ok)
	}
	if _, ok := m.Get(FieldAccept); ok {
		t.Fatal("Accept should be absent")
	}
}

func TestHeaderMapCaseInsensitiveName(t *testing.T) {
	var m HeaderMap
	m.Add("content-type", "text/plain")
	m.Add("x-trace-id", "abc")

	if v, ok := m.GetName("CONTENT-TYPE"); !ok || v != "text/plain" {
		t.Fatalf("GetName = %q, %v", v, ok)
	}
	if v, ok := m.GetName("X-Trace-Id"); !ok || v != "abc" {
		t.Fatalf("GetName custom = %q, %v", v, ok)
	}
	if _, ok := m.GetName("X-Missing"); ok {
		t.Fatal("missing header found")
	}
}

func TestHeaderMapInsertionOrder(t *testing.T) {
	var m HeaderMap
	m.Add("B", "2")
	m.Add("A", "1")
	m.Add("Host", "x")

	wantNames := []string{"B", "A", "Host"}
	for i, want := range wantNames {
		name, _ := m.EntryAt(i)
		if name != want {
			t.Fatalf("entry %d = %q, want %q", i, name, want)
		}
	}
}

func TestHeaderMapSetReplaces(t *testing.T) {
	var m HeaderMap
	m.AddField(FieldConnection, "keep-alive")
	m.Set("Connection", "close")
	if m.Len() != 1 {
		t.Fatalf("len = %d", m.Len())
	}
	if v, _ := m.Get(FieldConnection); v != "close" {
		t.Fatalf("value = %q", v)
	}
}

func TestHeaderMapCountField(t *testing.T) {
	var m HeaderMap
	m.Add("Content-Length", "3")
	m.Add("Content-Length", "3")
	if n := m.CountField(FieldContentLength); n != 2 {
		t.Fatalf("count = %d", n)
	}
}

func TestFieldOf(t *testing.T) {
	if FieldOf("transfer-encoding") != FieldTransferEncoding {
		t.Fatal("case-insensitive field resolution failed")
	}
	if FieldOf("X-Whatever") != FieldUnknown {
		t.Fatal("unknown header resolved to a field")
	}
}
