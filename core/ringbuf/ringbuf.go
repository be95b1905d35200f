// Package ringbuf implements the byte staging buffer used between sockets and
// the HTTP parser/serializer. Readers see a contiguous readable span, writers
// request a contiguous writable span; compaction and growth happen only inside
// WritableSpan so previously returned readable spans stay valid until the next
// WritableSpan or Consume call.
package ringbuf

// Buffer is a linear read/write buffer with commit/consume semantics.
// Invariant: 0 <= read <= write <= cap(buf).
type Buffer struct {
	buf   []byte
	read  int
	write int
}

// New creates a buffer with the given initial capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// ReadableSpan returns the bytes committed but not yet consumed.
func (b *Buffer) ReadableSpan() []byte {
	return b.buf[b.read:b.write]
}

// WritableSpan returns a span of at least min writable bytes, compacting or
// growing the buffer as needed. Data written there becomes readable only
// after Commit.
func (b *Buffer) WritableSpan(min int) []byte {
	if min <= 0 {
		min = 1
	}
	if len(b.buf)-b.write < min {
		// Compact first: shift unread bytes to the front.
		if b.read > 0 {
			copy(b.buf, b.buf[b.read:b.write])
			b.write -= b.read
			b.read = 0
		}
		if len(b.buf)-b.write < min {
			size := len(b.buf) * 2
			for size-b.write < min {
				size *= 2
			}
			grown := make([]byte, size)
			copy(grown, b.buf[:b.write])
			b.buf = grown
		}
	}
	return b.buf[b.write:]
}

// Commit marks n bytes of the last WritableSpan as readable.
func (b *Buffer) Commit(n int) {
	if n < 0 || b.write+n > len(b.buf) {
		panic("ringbuf: commit out of range")
	}
	b.write += n
}

// Consume discards n readable bytes.
func (b *Buffer) Consume(n int) {
	if n < 0 || b.read+n > b.write {
		panic("ringbuf: consume out of range")
	}
	b.read += n
	if b.read == b.write {
		b.read = 0
		b.write = 0
	}
}

// Clear discards all content, keeping capacity.
func (b *Buffer) Clear() {
	b.read = 0
	b.write = 0
}

// Empty reports whether no readable bytes remain.
func (b *Buffer) Empty() bool { return b.read == b.write }

// Len reports the number of readable bytes.
func (b *Buffer) Len() int { return b.write - b.read }

// Cap reports the current capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Append copies p into the buffer through WritableSpan+Commit.
func (b *Buffer) Append(p []byte) {
	span := b.WritableSpan(len(p))
	copy(span, p)
	b.Commit(len(p))
}

// AppendString copies s into the buffer.
func (b *Buffer) AppendString(s string) {
	span := b.WritableSpan(len(s))
	copy(span, s)
	b.Commit(len(s))
}
