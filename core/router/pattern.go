// Package router matches request paths against a fixed route table and runs
// the matched route's middleware chain and handler. The table is sorted once
// at construction so that literal segments always win over parameter
// segments at equal depth; matching then takes the first full match.
package router

import (
	"fmt"
	"strings"
)

type segment struct {
	literal string
	param   string
}

func (s segment) isParam() bool { return s.param != "" }

// PathPattern is a decomposed route path: a sequence of literal segments and
// {name} parameters.
type PathPattern struct {
	raw      string
	segments []segment
}

// ParsePattern decomposes a route path like /orders/{orderId}/items/{itemId}.
func ParsePattern(path string) (PathPattern, error) {
	if path == "" || path[0] != '/' {
		return PathPattern{}, fmt.Errorf("route path %q must begin with '/'", path)
	}
	p := PathPattern{raw: path}
	for _, seg := range strings.Split(path[1:], "/") {
		switch {
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			name := seg[1 : len(seg)-1]
			if name == "" {
				return PathPattern{}, fmt.Errorf("route path %q has an unnamed parameter", path)
			}
			p.segments = append(p.segments, segment{param: name})
		case strings.ContainsAny(seg, "{}"):
			return PathPattern{}, fmt.Errorf("route path %q mixes literal and parameter in one segment", path)
		default:
			p.segments = append(p.segments, segment{literal: seg})
		}
	}
	return p, nil
}

// MustPattern is ParsePattern that panics on error; generated route tables
// use it because the generator already validated every path.
func MustPattern(path string) PathPattern {
	p, err := ParsePattern(path)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original path.
func (p PathPattern) String() string { return p.raw }

// NumSegments returns the segment count.
func (p PathPattern) NumSegments() int { return len(p.segments) }

// HasParams reports whether any segment is a parameter.
func (p PathPattern) HasParams() bool {
	for _, s := range p.segments {
		if s.isParam() {
			return true
		}
	}
	return false
}

// match walks path (query already stripped) against the pattern, recording
// parameter values into params as zero-copy substrings. Reports whether the
// whole path matched.
func (p PathPattern) match(path string, params *ParamMap) bool {
	if path == "" || path[0] != '/' {
		return false
	}
	rest := path[1:]
	for i, seg := range p.segments {
		var part string
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			part, rest = rest[:j], rest[j+1:]
		} else {
			part, rest = rest, ""
		}
		if seg.isParam() {
			if part == "" {
				return false
			}
			params.Set(seg.param, part)
		} else if part != seg.literal {
			return false
		}
		if rest == "" {
			return i == len(p.segments)-1
		}
	}
	return rest == ""
}

// less orders patterns so a table scan prefers literals: at the first
// differing depth a literal segment sorts before a parameter one.
func (p PathPattern) less(other PathPattern) bool {
	n := len(p.segments)
	if len(other.segments) < n {
		n = len(other.segments)
	}
	for i := 0; i < n; i++ {
		a, b := p.segments[i], other.segments[i]
		if a.isParam() != b.isParam() {
			return !a.isParam()
		}
		if !a.isParam() && a.literal != b.literal {
			return a.literal < b.literal
		}
	}
	return len(p.segments) < len(other.segments)
}
