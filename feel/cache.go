package feel

import (
	"strings"
	"sync"

	"github.com/ezachrisen/dmn/evaluator"
	"github.com/ezachrisen/dmn/value"
)

// Cache holds parsed expressions keyed by their text. Parse results,
// including errors, are stored so each distinct text is parsed once.
// A Cache is safe for concurrent use. A nil *Cache parses without caching.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	node Node
	err  error
}

func NewCache() *Cache {
	return &Cache{entries: map[string]cacheEntry{}}
}

// Parse returns the parsed form of text, parsing it on first use.
func (c *Cache) Parse(text string) (Node, error) {
	if c == nil {
		return Parse(text)
	}
	c.mu.RLock()
	e, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		return e.node, e.err
	}

	n, err := Parse(text)
	c.mu.Lock()
	if c.entries == nil {
		c.entries = map[string]cacheEntry{}
	}
	c.entries[text] = cacheEntry{node: n, err: err}
	c.mu.Unlock()
	return n, err
}

// Len returns the number of cached texts.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Language compiles literal expressions written in the built-in expression
// language. Its programs evaluate in value mode.
type Language struct {
	Cache *Cache
}

// Compile parses text. References are not checked against names here;
// callers inspect Program.References.
func (l Language) Compile(text string, names []string) (evaluator.Program, error) {
	n, err := l.Cache.Parse(text)
	if err != nil {
		return nil, err
	}
	return &program{node: n, refs: Variables(n)}, nil
}

type program struct {
	node Node
	refs []string
}

func (p *program) Eval(ctx *value.Context) (value.Value, error) {
	return EvaluateValue(p.node, ctx)
}

func (p *program) References() []string {
	out := make([]string, len(p.refs))
	copy(out, p.refs)
	return out
}

// SplitTests splits text at top-level commas, ignoring commas inside
// quotes, parentheses, brackets and braces. Each part is trimmed.
// It is used to break a list of allowed output values into single entries.
func SplitTests(text string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"':
			if end := closingQuote(text, i); end > 0 {
				i = end
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(text[start:]); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts
}
