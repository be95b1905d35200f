package arena

import "testing"

func TestAllocAndCopy(t *testing.T) {
	a := New(64)

	b := a.Alloc(10, 1)
	if len(b) != 10 {
		t.Fatalf("expected 10 bytes, got %d", len(b))
	}

	c := a.Copy([]byte("hello"))
	if string(c) != "hello" {
		t.Fatalf("copy mismatch: %q", c)
	}

	s := a.CopyString("world")
	if s != "world" {
		t.Fatalf("copy string mismatch: %q", s)
	}
}

func TestAlignment(t *testing.T) {
	a := New(256)
	a.Alloc(3, 1)
	for _, align := range []int{2, 4, 8, 16} {
		b := a.Alloc(8, align)
		if len(b) != 8 {
			t.Fatalf("align %d: got %d bytes", align, len(b))
		}
	}
}

func TestGrowBeyondChunk(t *testing.T) {
	a := New(16)
	big := a.Alloc(100, 1)
	if len(big) != 100 {
		t.Fatalf("expected 100 bytes, got %d", len(big))
	}
}

func TestResetReclaimsAndKeepsCapacity(t *testing.T) {
	a := New(32)
	a.Alloc(100, 1) // forces growth
	if a.Used() != 100 {
		t.Fatalf("used = %d, want 100", a.Used())
	}

	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("used after reset = %d", a.Used())
	}

	// After reset the grown chunk is retained, so the same allocation
	// pattern must not grow again.
	before := a.HighWater()
	a.Alloc(100, 1)
	if a.HighWater() != before {
		t.Fatalf("high water moved on repeat allocation: %d -> %d", before, a.HighWater())
	}
}

func TestHighWaterTracksPeak(t *testing.T) {
	a := New(1024)
	a.Alloc(300, 1)
	a.Reset()
	a.Alloc(50, 1)
	if a.HighWater() != 300 {
		t.Fatalf("high water = %d, want 300", a.HighWater())
	}
}

func BenchmarkAllocReset(b *testing.B) {
	a := New(4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Alloc(64, 8)
		a.Alloc(128, 1)
		a.Reset()
	}
}
