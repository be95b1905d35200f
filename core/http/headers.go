package http

// Field identifies a well-known header so hot-path lookups skip string
// comparison entirely. Generated dispatch code uses field constants for the
// headers it touches; anything else goes through the by-name scan.
type Field uint8

// Known header fields.
const (
	FieldUnknown Field = iota
	FieldAccept
	FieldAcceptEncoding
	FieldAllow
	FieldAuthorization
	FieldConnection
	FieldContentEncoding
	FieldContentLength
	FieldContentType
	FieldCookie
	FieldDate
	FieldHost
	FieldLocation
	FieldServer
	FieldSetCookie
	FieldTransferEncoding
	FieldUserAgent
	fieldCount
)

var fieldNames = [...]string{
	FieldUnknown:          "",
	FieldAccept:           "Accept",
	FieldAcceptEncoding:   "Accept-Encoding",
	FieldAllow:            "Allow",
	FieldAuthorization:    "Authorization",
	FieldConnection:       "Connection",
	FieldContentEncoding:  "Content-Encoding",
	FieldContentLength:    "Content-Length",
	FieldContentType:      "Content-Type",
	FieldCookie:           "Cookie",
	FieldDate:             "Date",
	FieldHost:             "Host",
	FieldLocation:         "Location",
	FieldServer:           "Server",
	FieldSetCookie:        "Set-Cookie",
	FieldTransferEncoding: "Transfer-Encoding",
	FieldUserAgent:        "User-Agent",
}

// String returns the canonical header name.
func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return ""
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerByte(a[i]) != lowerByte(b[i]) {
			return false
		}
	}
	return true
}

// FieldOf resolves a header name to its Field, case-insensitively.
func FieldOf(name string) Field {
	for f := Field(1); f < fieldCount; f++ {
		if equalFold(fieldNames[f], name) {
			return f
		}
	}
	return FieldUnknown
}

type headerEntry struct {
	field Field
	name  string
	value string
}

// HeaderMap preserves insertion order and supports O(1) lookup by known
// field and linear case-insensitive lookup by name.
type HeaderMap struct {
	entries []headerEntry
	// known[f] holds index+1 of the first entry with field f.
	known [fieldCount]int16
}

// Len reports the number of header entries.
func (m *HeaderMap) Len() int { return len(m.entries) }

// EntryAt returns the i-th header name and value in insertion order.
func (m *HeaderMap) EntryAt(i int) (name, value string) {
	e := m.entries[i]
	if e.name == "" {
		return e.field.String(), e.value
	}
	return e.name, e.value
}

// Add appends a header without replacing existing entries.
func (m *HeaderMap) Add(name, value string) {
	f := FieldOf(name)
	m.addEntry(headerEntry{field: f, name: name, value: value})
}

// AddField appends a known-field header.
func (m *HeaderMap) AddField(f Field, value string) {
	m.addEntry(headerEntry{field: f, value: value})
}

func (m *HeaderMap) addEntry(e headerEntry) {
	m.entries = append(m.entries, e)
	if e.field != FieldUnknown && m.known[e.field] == 0 && len(m.entries) <= 32767 {
		m.known[e.field] = int16(len(m.entries))
	}
}

// Set replaces the first entry with the same name, or appends.
func (m *HeaderMap) Set(name, value string) {
	f := FieldOf(name)
	if f != FieldUnknown {
		if idx := m.known[f]; idx > 0 {
			m.entries[idx-1].value = value
			return
		}
	} else {
		for i := range m.entries {
			if equalFold(m.entries[i].name, name) {
				m.entries[i].value = value
				return
			}
		}
	}
	m.addEntry(headerEntry{field: f, name: name, value: value})
}

// Get returns the first value for a known field.
func (m *HeaderMap) Get(f Field) (string, bool) {
	if f == FieldUnknown {
		return "", false
	}
	if idx := m.known[f]; idx > 0 {
		return m.entries[idx-1].value, true
	}
	return "", false
}

// GetName returns the first value for name, matched case-insensitively.
func (m *HeaderMap) GetName(name string) (string, bool) {
	if f := FieldOf(name); f != FieldUnknown {
		return m.Get(f)
	}
	for i := range m.entries {
		if equalFold(m.entries[i].name, name) {
			return m.entries[i].value, true
		}
	}
	return "", false
}

// CountField reports how many entries carry field f.
func (m *HeaderMap) CountField(f Field) int {
	n := 0
	for i := range m.entries {
		if m.entries[i].field == f {
			n++
		}
	}
	return n
}

// Reset clears the map for reuse, keeping capacity.
func (m *HeaderMap) Reset() {
	m.entries = m.entries[:0]
	m.known = [fieldCount]int16{}
}
