package jsoncursor

// ObjectStringField scans a top-level JSON object for a string-valued member
// and returns its raw value. Generated union parsers use it to read the
// discriminator before dispatching to the variant parser; the returned
// string is a copy and does not alias data.
func ObjectStringField(data []byte, key string) (string, bool) {
	c := Cursor{data: data}
	if !c.Expect('{') {
		return "", false
	}
	if c.Expect('}') {
		return "", false
	}
	for {
		// Member name, scanned without arena materialization.
		if !c.Expect('"') {
			return "", false
		}
		nameStart := c.pos
		for c.pos < len(c.data) && c.data[c.pos] != '"' {
			if c.data[c.pos] == '\\' {
				c.pos++
			}
			c.pos++
		}
		if c.pos >= len(c.data) {
			return "", false
		}
		name := string(c.data[nameStart:c.pos])
		c.pos++
		if !c.Expect(':') {
			return "", false
		}
		if name == key {
			if !c.Expect('"') {
				return "", false
			}
			start := c.pos
			for c.pos < len(c.data) && c.data[c.pos] != '"' {
				if c.data[c.pos] == '\\' {
					// Escaped discriminators are not a thing; bail out.
					return "", false
				}
				c.pos++
			}
			if c.pos >= len(c.data) {
				return "", false
			}
			return string(c.data[start:c.pos]), true
		}
		if !c.SkipValue() {
			return "", false
		}
		if c.Expect(',') {
			continue
		}
		return "", false
	}
}
