package http

// Request is one parsed HTTP/1.1 request. Header and body storage is backed
// by the connection's arena; none of it survives the arena reset that
// follows the response write.
type Request struct {
	Method  Method
	URI     string
	Proto   string
	Headers HeaderMap
	Body    []byte
}

// Path returns the request-target with any query string stripped.
func (r *Request) Path() string {
	for i := 0; i < len(r.URI); i++ {
		if r.URI[i] == '?' {
			return r.URI[:i]
		}
	}
	return r.URI
}

// Query returns the raw query string, without the '?', or "".
func (r *Request) Query() string {
	for i := 0; i < len(r.URI); i++ {
		if r.URI[i] == '?' {
			return r.URI[i+1:]
		}
	}
	return ""
}

// WantsClose reports whether the client asked for the connection to be
// closed after this response.
func (r *Request) WantsClose() bool {
	v, ok := r.Headers.Get(FieldConnection)
	if !ok {
		return r.Proto == "HTTP/1.0"
	}
	return v == "close" || v == "Close"
}

// Reset clears the request for reuse.
func (r *Request) Reset() {
	r.Method = MethodUnknown
	r.URI = ""
	r.Proto = ""
	r.Headers.Reset()
	r.Body = nil
}
