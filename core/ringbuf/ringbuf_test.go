package ringbuf

import (
	"bytes"
	"testing"
)

func TestCommitConsume(t *testing.T) {
	b := New(16)
	if !b.Empty() {
		t.Fatal("new buffer not empty")
	}

	span := b.WritableSpan(5)
	copy(span, "hello")
	b.Commit(5)

	if b.Len() != 5 {
		t.Fatalf("len = %d, want 5", b.Len())
	}
	if !bytes.Equal(b.ReadableSpan(), []byte("hello")) {
		t.Fatalf("readable = %q", b.ReadableSpan())
	}

	b.Consume(2)
	if !bytes.Equal(b.ReadableSpan(), []byte("llo")) {
		t.Fatalf("after consume = %q", b.ReadableSpan())
	}

	b.Consume(3)
	if !b.Empty() {
		t.Fatal("buffer should be empty")
	}
}

func TestCompaction(t *testing.T) {
	b := New(8)
	b.AppendString("abcdef")
	b.Consume(4)

	// Needs compaction: only 2 bytes free at the tail, 4 reclaimable at
	// the head.
	span := b.WritableSpan(5)
	if len(span) < 5 {
		t.Fatalf("writable span too small: %d", len(span))
	}
	copy(span, "ghijk")
	b.Commit(5)
	if string(b.ReadableSpan()) != "efghijk" {
		t.Fatalf("readable = %q", b.ReadableSpan())
	}
}

func TestGrowth(t *testing.T) {
	b := New(4)
	payload := bytes.Repeat([]byte("x"), 100)
	b.Append(payload)
	if !bytes.Equal(b.ReadableSpan(), payload) {
		t.Fatal("payload mismatch after growth")
	}
	if b.Cap() < 100 {
		t.Fatalf("cap = %d", b.Cap())
	}
}

func TestConsumeToEmptyRewinds(t *testing.T) {
	b := New(8)
	b.AppendString("abc")
	b.Consume(3)
	// Fully consumed buffers rewind so the next write reuses the front.
	span := b.WritableSpan(8)
	if len(span) != 8 {
		t.Fatalf("span = %d, want full capacity", len(span))
	}
}

func TestClear(t *testing.T) {
	b := New(8)
	b.AppendString("abc")
	b.Clear()
	if !b.Empty() || b.Len() != 0 {
		t.Fatal("clear did not empty the buffer")
	}
}

func TestOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	b := New(8)
	b.Consume(1)
}
