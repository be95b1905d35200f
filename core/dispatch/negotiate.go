// Package dispatch is the runtime support layer for generated dispatch
// stubs: content negotiation, typed parameter extraction, request-body
// content-type matching, validation-error formatting and the scoped handler
// context. Generated code calls into this package; applications normally
// never import it directly.
package dispatch

import (
	"strings"

	"github.com/katana-web/katana/core/http"
)

func trimOWS(s string) string {
	return strings.Trim(s, " \t")
}

// Negotiate selects the response media type for an operation producing the
// given types, honoring the request's Accept header.
//
// Fast paths: missing/empty Accept or */* selects produces[0]; a single
// produced type matching exactly; a single-token Accept (no ',' or ';')
// scanned for an exact match. The slow path splits on commas, strips
// parameters and handles type/* wildcards. Reports false when nothing
// matches (the caller answers 406).
func Negotiate(req *http.Request, produces []string) (string, bool) {
	if len(produces) == 0 {
		return "", false
	}
	accept, ok := req.Headers.Get(http.FieldAccept)
	if !ok || accept == "" || accept == "*/*" {
		return produces[0], true
	}
	if len(produces) == 1 && accept == produces[0] {
		return produces[0], true
	}
	if !strings.ContainsAny(accept, ",;") {
		for _, ct := range produces {
			if ct == accept {
				return ct, true
			}
		}
		// A single unmatched token still gets the wildcard check below.
	}
	remaining := accept
	for remaining != "" {
		var token string
		if i := strings.IndexByte(remaining, ','); i >= 0 {
			token, remaining = remaining[:i], remaining[i+1:]
		} else {
			token, remaining = remaining, ""
		}
		token = trimOWS(token)
		if token == "" {
			continue
		}
		if i := strings.IndexByte(token, ';'); i >= 0 {
			token = trimOWS(token[:i])
		}
		if token == "*/*" {
			return produces[0], true
		}
		if strings.HasSuffix(token, "/*") && len(token) > 2 {
			prefix := token[:len(token)-1] // keep the trailing '/'
			for _, ct := range produces {
				if strings.HasPrefix(ct, prefix) {
					return ct, true
				}
			}
			continue
		}
		for _, ct := range produces {
			if ct == token {
				return ct, true
			}
		}
	}
	return "", false
}

// FindContentType matches the request's Content-Type against the operation's
// consumed media types by prefix on the media-type token (parameters such as
// charset are ignored). Returns the index of the matched type.
func FindContentType(req *http.Request, allowed []string) (int, bool) {
	if len(allowed) == 0 {
		return 0, false
	}
	header, ok := req.Headers.Get(http.FieldContentType)
	if !ok {
		return 0, false
	}
	for i, ct := range allowed {
		if strings.HasPrefix(header, ct) {
			return i, true
		}
	}
	return 0, false
}
