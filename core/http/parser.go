package http

import (
	"github.com/katana-web/katana/core/arena"
)

// ParseStatus is the outcome of one Parse call.
type ParseStatus uint8

const (
	// ParseOK means no error so far; check IsComplete for whether a full
	// request is available.
	ParseOK ParseStatus = iota
	// ParseNeedMore means the input ends mid-request; feed more bytes.
	ParseNeedMore
	// ParseInvalid means the input is malformed. Terminal: the parser stays
	// invalid until Reset, and BytesParsed reports the offset of the
	// offending byte.
	ParseInvalid
)

const (
	maxRequestLine = 8 * 1024
	maxHeaderBytes = 16 * 1024
	maxHeaderCount = 128
	maxBodyBytes   = 16 * 1024 * 1024
)

type headerSpan struct {
	nameStart, nameEnd int
	valStart, valEnd   int
}

// Parser incrementally parses one HTTP/1.1 request. Each Parse call receives
// the buffered stream prefix starting at the current request; the parser
// rescans from the top, so callers must not consume input until IsComplete.
// Header names, values, the URI and the (dechunked) body are copied into the
// bound arena when the request completes.
type Parser struct {
	arena       *arena.Arena
	req         Request
	complete    bool
	invalid     bool
	bytesParsed int
	spans       []headerSpan
}

// NewParser creates a parser bound to a.
func NewParser(a *arena.Arena) *Parser {
	return &Parser{arena: a}
}

// Reset rebinds the parser to a (typically the same arena, freshly reset)
// and clears all per-request state.
func (p *Parser) Reset(a *arena.Arena) {
	p.arena = a
	p.req.Reset()
	p.complete = false
	p.invalid = false
	p.bytesParsed = 0
	p.spans = p.spans[:0]
}

// IsComplete reports whether a full request has been parsed.
func (p *Parser) IsComplete() bool { return p.complete }

// BytesParsed reports how many input bytes the completed request occupied,
// or, after ParseInvalid, the offset of the offending byte.
func (p *Parser) BytesParsed() int { return p.bytesParsed }

// Request returns the parsed request. Valid only after IsComplete.
func (p *Parser) Request() *Request { return &p.req }

func (p *Parser) fail(offset int) ParseStatus {
	p.invalid = true
	p.bytesParsed = offset
	return ParseInvalid
}

// Parse consumes data, which must start at the first byte of the request.
func (p *Parser) Parse(data []byte) ParseStatus {
	if p.invalid {
		return ParseInvalid
	}
	if p.complete {
		return ParseOK
	}
	return p.scan(data)
}

func findCRLF(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			return i
		}
	}
	return -1
}

func trimOWS(data []byte, start, end int) (int, int) {
	for start < end && (data[start] == ' ' || data[start] == '\t') {
		start++
	}
	for end > start && (data[end-1] == ' ' || data[end-1] == '\t') {
		end--
	}
	return start, end
}

func (p *Parser) scan(data []byte) ParseStatus {
	// Request line.
	lineEnd := findCRLF(data, 0)
	if lineEnd < 0 {
		if len(data) > maxRequestLine {
			return p.fail(maxRequestLine)
		}
		return ParseNeedMore
	}
	line := data[:lineEnd]
	sp1 := -1
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' {
			sp1 = i
			break
		}
	}
	if sp1 <= 0 {
		return p.fail(0)
	}
	sp2 := -1
	for i := sp1 + 1; i < len(line); i++ {
		if line[i] == ' ' {
			sp2 = i
			break
		}
	}
	if sp2 < 0 || sp2 == sp1+1 {
		return p.fail(sp1)
	}
	method := ParseMethod(line[:sp1])
	if method == MethodUnknown {
		return p.fail(0)
	}
	versionBytes := line[sp2+1:]
	var proto string
	switch string(versionBytes) {
	case "HTTP/1.1":
		proto = "HTTP/1.1"
	case "HTTP/1.0":
		proto = "HTTP/1.0"
	default:
		return p.fail(sp2 + 1)
	}

	// Headers.
	p.spans = p.spans[:0]
	pos := lineEnd + 2
	contentLength := -1
	contentLengthSeen := 0
	transferEncoding := ""
	transferEncodingAt := -1
	for {
		if pos-lineEnd > maxHeaderBytes {
			return p.fail(pos)
		}
		he := findCRLF(data, pos)
		if he < 0 {
			if len(data)-pos > maxHeaderBytes {
				return p.fail(pos)
			}
			return ParseNeedMore
		}
		if he == pos {
			pos += 2
			break
		}
		if data[pos] == ' ' || data[pos] == '\t' {
			// Obsolete line folding is rejected outright.
			return p.fail(pos)
		}
		if len(p.spans) >= maxHeaderCount {
			return p.fail(pos)
		}
		colon := -1
		for i := pos; i < he; i++ {
			if data[i] == ':' {
				colon = i
				break
			}
		}
		if colon <= pos {
			return p.fail(pos)
		}
		// No whitespace is allowed between field name and colon.
		if data[colon-1] == ' ' || data[colon-1] == '\t' {
			return p.fail(colon - 1)
		}
		vs, ve := trimOWS(data, colon+1, he)
		span := headerSpan{nameStart: pos, nameEnd: colon, valStart: vs, valEnd: ve}
		p.spans = append(p.spans, span)

		name := data[pos:colon]
		value := data[vs:ve]
		if equalFold(string(name), "Content-Length") {
			contentLengthSeen++
			if contentLengthSeen > 1 {
				return p.fail(pos)
			}
			n := 0
			if len(value) == 0 {
				return p.fail(vs)
			}
			for i := 0; i < len(value); i++ {
				c := value[i]
				if c < '0' || c > '9' {
					return p.fail(vs + i)
				}
				n = n*10 + int(c-'0')
				if n > maxBodyBytes {
					return p.fail(vs)
				}
			}
			contentLength = n
		} else if equalFold(string(name), "Transfer-Encoding") {
			if transferEncodingAt >= 0 {
				return p.fail(pos)
			}
			transferEncoding = string(value)
			transferEncodingAt = pos
		}
		pos = he + 2
	}
	headerEnd := pos

	// A request carrying both framing mechanisms is rejected as invalid.
	if transferEncodingAt >= 0 && contentLengthSeen > 0 {
		return p.fail(transferEncodingAt)
	}
	if transferEncodingAt >= 0 && !equalFold(transferEncoding, "chunked") {
		return p.fail(transferEncodingAt)
	}

	var body []byte
	total := headerEnd
	switch {
	case transferEncodingAt >= 0:
		decoded, consumed, st := p.dechunk(data, headerEnd)
		if st != ParseOK {
			if st == ParseInvalid {
				return ParseInvalid
			}
			return ParseNeedMore
		}
		body = decoded
		total = consumed
	case contentLength > 0:
		if len(data) < headerEnd+contentLength {
			return ParseNeedMore
		}
		body = p.arena.Copy(data[headerEnd : headerEnd+contentLength])
		total = headerEnd + contentLength
	default:
		// Absent framing means an empty body.
	}

	// Materialize: the URI and header bytes are copied into the arena and
	// then converted to strings (a second copy), and the body is already an
	// arena copy, so nothing the request references points into the read
	// buffer and read-buffer compaction cannot move it.
	p.req.Method = method
	p.req.Proto = proto
	p.req.URI = string(p.arena.Copy(line[sp1+1 : sp2]))
	for _, s := range p.spans {
		name := string(p.arena.Copy(data[s.nameStart:s.nameEnd]))
		value := string(p.arena.Copy(data[s.valStart:s.valEnd]))
		p.req.Headers.Add(name, value)
	}
	p.req.Body = body
	p.complete = true
	p.bytesParsed = total
	return ParseOK
}

// dechunk decodes a chunked body starting at off into one contiguous arena
// buffer. Returns the decoded body, the stream offset one past the
// terminating blank line, and a status.
func (p *Parser) dechunk(data []byte, off int) ([]byte, int, ParseStatus) {
	// First pass sizes and validates; second pass copies.
	pos := off
	totalSize := 0
	type chunk struct{ start, size int }
	var chunks []chunk
	for {
		le := findCRLF(data, pos)
		if le < 0 {
			return nil, 0, ParseNeedMore
		}
		size := 0
		digits := 0
		i := pos
		for ; i < le; i++ {
			c := data[i]
			var d int
			switch {
			case c >= '0' && c <= '9':
				d = int(c - '0')
			case c >= 'a' && c <= 'f':
				d = int(c-'a') + 10
			case c >= 'A' && c <= 'F':
				d = int(c-'A') + 10
			case c == ';':
				// Chunk extensions are ignored.
				i = le
			default:
				p.fail(i)
				return nil, 0, ParseInvalid
			}
			if i == le {
				break
			}
			size = size<<4 | d
			digits++
			if size > maxBodyBytes {
				p.fail(pos)
				return nil, 0, ParseInvalid
			}
		}
		if digits == 0 {
			p.fail(pos)
			return nil, 0, ParseInvalid
		}
		pos = le + 2
		if size == 0 {
			// Trailer section: skip lines until the blank one.
			for {
				te := findCRLF(data, pos)
				if te < 0 {
					return nil, 0, ParseNeedMore
				}
				if te == pos {
					pos += 2
					body := p.arena.Alloc(totalSize, 1)
					w := 0
					for _, c := range chunks {
						w += copy(body[w:], data[c.start:c.start+c.size])
					}
					return body, pos, ParseOK
				}
				pos = te + 2
			}
		}
		if len(data) < pos+size+2 {
			return nil, 0, ParseNeedMore
		}
		if data[pos+size] != '\r' || data[pos+size+1] != '\n' {
			p.fail(pos + size)
			return nil, 0, ParseInvalid
		}
		chunks = append(chunks, chunk{start: pos, size: size})
		totalSize += size
		if totalSize > maxBodyBytes {
			p.fail(pos)
			return nil, 0, ParseInvalid
		}
		pos += size + 2
	}
}
