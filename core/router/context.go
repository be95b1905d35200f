package router

import (
	"github.com/katana-web/katana/core/arena"
)

const inlineParams = 4

// ParamMap carries extracted path parameters. The common case (a handful of
// parameters) lives in a fixed array; deeper patterns spill into a slice.
// Values are zero-copy views into the request URI.
type ParamMap struct {
	keys     [inlineParams]string
	values   [inlineParams]string
	count    int
	overflow []pathParam
}

type pathParam struct {
	key   string
	value string
}

// Set records a parameter.
func (m *ParamMap) Set(key, value string) {
	if m.count < inlineParams {
		m.keys[m.count] = key
		m.values[m.count] = value
		m.count++
		return
	}
	m.overflow = append(m.overflow, pathParam{key: key, value: value})
}

// Get looks a parameter up by pattern name.
func (m *ParamMap) Get(key string) (string, bool) {
	for i := 0; i < m.count; i++ {
		if m.keys[i] == key {
			return m.values[i], true
		}
	}
	for _, p := range m.overflow {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// Len reports the number of parameters.
func (m *ParamMap) Len() int { return m.count + len(m.overflow) }

// Reset clears the map.
func (m *ParamMap) Reset() {
	m.count = 0
	m.overflow = m.overflow[:0]
}

// Context is the per-request dispatch context: the request arena plus the
// extracted path parameters.
type Context struct {
	Arena  *arena.Arena
	Params ParamMap
}

// NewContext creates a context over a.
func NewContext(a *arena.Arena) *Context {
	return &Context{Arena: a}
}
