// Package arena provides a monotonic bump allocator for request-scoped memory.
//
// An Arena hands out byte slices from a contiguously-growing region and frees
// them all at once with Reset. The serving plane allocates one arena per
// connection and resets it between requests, so header maps, parsed bodies and
// response scratch never hit the garbage collector on the hot path.
//
// Contract: no slice obtained from an Arena may be retained past the Reset
// that follows the response write.
package arena

const defaultChunkSize = 64 * 1024

// Arena is a monotonic bump allocator. Not safe for concurrent use; each
// connection owns its arena exclusively.
type Arena struct {
	chunks    [][]byte
	cur       []byte
	off       int
	chunkSize int
	highWater int
	used      int
}

// New creates an arena with the given chunk size. chunkSize <= 0 selects the
// default (64 KiB).
func New(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	a := &Arena{chunkSize: chunkSize}
	a.grow(chunkSize)
	return a
}

func (a *Arena) grow(minSize int) {
	size := a.chunkSize
	if minSize > size {
		size = minSize
	}
	chunk := make([]byte, size)
	a.chunks = append(a.chunks, chunk)
	a.cur = chunk
	a.off = 0
}

// Alloc returns a zeroed slice of n bytes aligned to align (which must be a
// power of two; 0 or 1 means unaligned).
func (a *Arena) Alloc(n, align int) []byte {
	if n < 0 {
		panic("arena: negative allocation")
	}
	if align > 1 {
		a.off = (a.off + align - 1) &^ (align - 1)
	}
	if a.off+n > len(a.cur) {
		a.grow(n)
	}
	s := a.cur[a.off : a.off+n : a.off+n]
	a.off += n
	a.used += n
	if a.used > a.highWater {
		a.highWater = a.used
	}
	return s
}

// Copy allocates a slice and fills it with b.
func (a *Arena) Copy(b []byte) []byte {
	s := a.Alloc(len(b), 1)
	copy(s, b)
	return s
}

// CopyString copies s into the arena and returns it as a string. The string
// conversion copies the bytes once more, so the returned string does not
// alias arena memory and is not affected by Reset.
func (a *Arena) CopyString(s string) string {
	b := a.Alloc(len(s), 1)
	copy(b, s)
	return string(b)
}

// Reset makes the full capacity available again. Existing slices become
// invalid; their contents may be overwritten by subsequent allocations.
// Capacity is retained so steady-state requests allocate nothing.
func (a *Arena) Reset() {
	// Keep only the largest chunk to bound reuse at the high-water shape.
	if len(a.chunks) > 1 {
		largest := a.chunks[0]
		for _, c := range a.chunks[1:] {
			if len(c) > len(largest) {
				largest = c
			}
		}
		a.chunks = a.chunks[:1]
		a.chunks[0] = largest
	}
	a.cur = a.chunks[0]
	a.off = 0
	a.used = 0
}

// HighWater reports the peak number of bytes allocated between resets.
func (a *Arena) HighWater() int { return a.highWater }

// Used reports bytes allocated since the last Reset.
func (a *Arena) Used() int { return a.used }
