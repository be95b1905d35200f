// Package jsoncursor is the scalar JSON cursor the generated parsers drive.
// It reads typed scalars straight out of the input — no intermediate token
// tree — and materializes strings into the request arena. Whitespace
// skipping takes an 8-byte SWAR path on CPUs where unaligned loads are cheap.
package jsoncursor

import (
	"encoding/binary"
	"strconv"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/cpuinfo"
)

var wideWhitespace = cpuinfo.HasFastUnalignedLoads()

// Cursor walks a JSON document left to right.
type Cursor struct {
	data  []byte
	pos   int
	arena *arena.Arena
}

// New creates a cursor over data, materializing strings into a.
func New(data []byte, a *arena.Arena) Cursor {
	return Cursor{data: data, arena: a}
}

// Pos returns the current byte offset.
func (c *Cursor) Pos() int { return c.pos }

// AtEnd reports whether all input (ignoring trailing whitespace) was
// consumed.
func (c *Cursor) AtEnd() bool {
	c.SkipWhitespace()
	return c.pos >= len(c.data)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// SkipWhitespace advances past JSON whitespace. On capable CPUs it checks
// eight bytes per step: a word that is all spaces is skipped in one go.
func (c *Cursor) SkipWhitespace() {
	data, pos := c.data, c.pos
	if wideWhitespace {
		const allSpaces = 0x2020202020202020
		for pos+8 <= len(data) {
			if binary.LittleEndian.Uint64(data[pos:]) == allSpaces {
				pos += 8
				continue
			}
			break
		}
	}
	for pos < len(data) && isSpace(data[pos]) {
		pos++
	}
	c.pos = pos
}

// Peek returns the next significant byte without consuming it.
func (c *Cursor) Peek() (byte, bool) {
	c.SkipWhitespace()
	if c.pos >= len(c.data) {
		return 0, false
	}
	return c.data[c.pos], true
}

// Expect consumes the next significant byte if it equals b.
func (c *Cursor) Expect(b byte) bool {
	c.SkipWhitespace()
	if c.pos < len(c.data) && c.data[c.pos] == b {
		c.pos++
		return true
	}
	return false
}

func (c *Cursor) literal(s string) bool {
	if c.pos+len(s) > len(c.data) {
		return false
	}
	if string(c.data[c.pos:c.pos+len(s)]) != s {
		return false
	}
	c.pos += len(s)
	return true
}

// Null consumes a null literal.
func (c *Cursor) Null() bool {
	c.SkipWhitespace()
	return c.literal("null")
}

// Bool reads a boolean.
func (c *Cursor) Bool() (bool, bool) {
	c.SkipWhitespace()
	if c.literal("true") {
		return true, true
	}
	if c.literal("false") {
		return false, true
	}
	return false, false
}

func (c *Cursor) numberSpan() (int, int, bool) {
	c.SkipWhitespace()
	start := c.pos
	pos := c.pos
	if pos < len(c.data) && c.data[pos] == '-' {
		pos++
	}
	digits := 0
	for pos < len(c.data) {
		b := c.data[pos]
		if b >= '0' && b <= '9' {
			digits++
			pos++
			continue
		}
		if b == '.' || b == 'e' || b == 'E' || b == '+' || b == '-' {
			pos++
			continue
		}
		break
	}
	if digits == 0 {
		return 0, 0, false
	}
	c.pos = pos
	return start, pos, true
}

// Int64 reads an integer scalar once, directly into the typed value.
func (c *Cursor) Int64() (int64, bool) {
	start, end, ok := c.numberSpan()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(string(c.data[start:end]), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float64 reads a number scalar once, locale-independently.
func (c *Cursor) Float64() (float64, bool) {
	start, end, ok := c.numberSpan()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(c.data[start:end]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String reads a JSON string. Escape-free strings are copied into the arena
// directly; escaped ones are decoded into a scratch slice first and then
// copied into the arena. The returned string is a further copy of those
// arena bytes.
func (c *Cursor) String() (string, bool) {
	if !c.Expect('"') {
		return "", false
	}
	start := c.pos
	for i := c.pos; i < len(c.data); i++ {
		b := c.data[i]
		if b == '"' {
			c.pos = i + 1
			return string(c.arena.Copy(c.data[start:i])), true
		}
		if b == '\\' {
			return c.stringEscaped(start, i)
		}
		if b < 0x20 {
			return "", false
		}
	}
	return "", false
}

func (c *Cursor) stringEscaped(start, firstEscape int) (string, bool) {
	out := c.arena.Alloc(0, 1)
	out = append(out, c.data[start:firstEscape]...)
	i := firstEscape
	for i < len(c.data) {
		b := c.data[i]
		switch {
		case b == '"':
			c.pos = i + 1
			return string(c.arena.Copy(out)), true
		case b == '\\':
			i++
			if i >= len(c.data) {
				return "", false
			}
			switch c.data[i] {
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case '/':
				out = append(out, '/')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'u':
				if i+4 >= len(c.data) {
					return "", false
				}
				v, err := strconv.ParseUint(string(c.data[i+1:i+5]), 16, 32)
				if err != nil {
					return "", false
				}
				out = appendRune(out, rune(v))
				i += 4
			default:
				return "", false
			}
			i++
		case b < 0x20:
			return "", false
		default:
			out = append(out, b)
			i++
		}
	}
	return "", false
}

func appendRune(b []byte, r rune) []byte {
	if r < 0x80 {
		return append(b, byte(r))
	}
	if r < 0x800 {
		return append(b, byte(0xC0|r>>6), byte(0x80|r&0x3F))
	}
	return append(b, byte(0xE0|r>>12), byte(0x80|r>>6&0x3F), byte(0x80|r&0x3F))
}

// skipString consumes a string without materializing it; SkipValue and the
// composite skipper use it so skipping never touches the arena.
func (c *Cursor) skipString() bool {
	if !c.Expect('"') {
		return false
	}
	for c.pos < len(c.data) {
		switch c.data[c.pos] {
		case '"':
			c.pos++
			return true
		case '\\':
			c.pos += 2
		default:
			c.pos++
		}
	}
	return false
}

// SkipValue consumes one value of any type. Generated parsers call it for
// unknown object members.
func (c *Cursor) SkipValue() bool {
	b, ok := c.Peek()
	if !ok {
		return false
	}
	switch b {
	case '{':
		return c.skipComposite('{', '}')
	case '[':
		return c.skipComposite('[', ']')
	case '"':
		return c.skipString()
	case 't', 'f':
		_, ok := c.Bool()
		return ok
	case 'n':
		return c.Null()
	default:
		_, _, ok := c.numberSpan()
		return ok
	}
}

func (c *Cursor) skipComposite(open, close byte) bool {
	if !c.Expect(open) {
		return false
	}
	depth := 1
	for c.pos < len(c.data) {
		b := c.data[c.pos]
		switch b {
		case open:
			depth++
			c.pos++
		case close:
			depth--
			c.pos++
			if depth == 0 {
				return true
			}
		case '"':
			if !c.skipString() {
				return false
			}
		default:
			c.pos++
		}
	}
	return false
}
