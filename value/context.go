package value

import (
	"errors"
	"fmt"
	"sort"
)

// ErrAlreadyBound is returned when a name is written twice to the same Context.
var ErrAlreadyBound = errors.New("name already bound")

// Context binds names to values for a single evaluation.
// Each name may be written at most once; names are case-sensitive.
// A Context is not safe for concurrent writes. A nil *Context reads as empty.
type Context struct {
	vals  map[string]Value
	order []string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{vals: map[string]Value{}}
}

// ContextOf converts a map of Go values into a context, binding names in
// sorted order.
func ContextOf(m map[string]any) (*Context, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := NewContext()
	for _, k := range keys {
		v, err := FromNative(m[k])
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
		c.vals[k] = v
		c.order = append(c.order, k)
	}
	return c, nil
}

// Get returns the value bound to name.
func (c *Context) Get(name string) (Value, bool) {
	if c == nil {
		return Null(), false
	}
	v, ok := c.vals[name]
	return v, ok
}

// Has reports whether name is bound.
func (c *Context) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Set binds name to v.
func (c *Context) Set(name string, v Value) error {
	if _, ok := c.vals[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrAlreadyBound)
	}
	if c.vals == nil {
		c.vals = map[string]Value{}
	}
	c.vals[name] = v
	c.order = append(c.order, name)
	return nil
}

// Names returns the bound names in the order they were bound.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Child returns a new context holding only the listed names that are bound
// in c. Names not bound in c are left out.
func (c *Context) Child(names ...string) *Context {
	child := NewContext()
	for _, n := range names {
		if v, ok := c.Get(n); ok && !child.Has(n) {
			child.vals[n] = v
			child.order = append(child.order, n)
		}
	}
	return child
}

// Map returns the bindings as native Go values.
func (c *Context) Map() map[string]any {
	out := make(map[string]any, c.Len())
	for _, n := range c.Names() {
		out[n] = c.vals[n].Native()
	}
	return out
}

// Value returns the bindings as a context value, in binding order.
func (c *Context) Value() Value {
	fields := make([]Field, 0, c.Len())
	for _, n := range c.Names() {
		fields = append(fields, Field{Name: n, Value: c.vals[n]})
	}
	return ContextValue(fields...)
}
