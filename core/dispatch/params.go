package dispatch

import (
	"strconv"
	"strings"

	"github.com/katana-web/katana/core/http"
)

// QueryParam extracts a query parameter value from the request URI. Returns
// ("", true) for a key present without a value.
func QueryParam(uri, key string) (string, bool) {
	q := strings.IndexByte(uri, '?')
	if q < 0 {
		return "", false
	}
	query := uri[q+1:]
	for query != "" {
		var part string
		if i := strings.IndexByte(query, '&'); i >= 0 {
			part, query = query[:i], query[i+1:]
		} else {
			part, query = query, ""
		}
		eq := strings.IndexByte(part, '=')
		name := part
		if eq >= 0 {
			name = part[:eq]
		}
		if name == key {
			if eq < 0 {
				return "", true
			}
			return part[eq+1:], true
		}
	}
	return "", false
}

// CookieParam extracts a cookie value: split the Cookie header on ';', trim
// whitespace, split on '='. Names match case-sensitively.
func CookieParam(req *http.Request, key string) (string, bool) {
	cookie, ok := req.Headers.Get(http.FieldCookie)
	if !ok {
		return "", false
	}
	rest := cookie
	for rest != "" {
		var token string
		if i := strings.IndexByte(rest, ';'); i >= 0 {
			token, rest = rest[:i], rest[i+1:]
		} else {
			token, rest = rest, ""
		}
		eq := strings.IndexByte(token, '=')
		if eq < 0 {
			continue
		}
		name := trimOWS(token[:eq])
		if name == key {
			return trimOWS(token[eq+1:]), true
		}
	}
	return "", false
}

// HeaderParam extracts a header parameter.
func HeaderParam(req *http.Request, name string) (string, bool) {
	return req.Headers.GetName(name)
}

// ParseIntParam parses a declared-integer parameter value.
func ParseIntParam(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// ParseNumberParam parses a declared-number parameter value,
// locale-independently.
func ParseNumberParam(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// ParseBoolParam accepts exactly the literals "true" and "false".
func ParseBoolParam(s string) (bool, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// ValidationError reports the first schema constraint a parsed body
// violates.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// FormatValidationError renders a validation failure as a 400 problem
// response with "field: message" detail.
func FormatValidationError(e *ValidationError) *http.Response {
	var b strings.Builder
	b.Grow(len(e.Field) + len(e.Message) + 2)
	b.WriteString(e.Field)
	b.WriteString(": ")
	b.WriteString(e.Message)
	return http.Error(http.BadRequest(b.String()))
}

// BadParam renders the 400 problem for an unparseable or missing parameter.
func BadParam(kind, name string) *http.Response {
	return http.Error(http.BadRequest(kind + " param " + name))
}
