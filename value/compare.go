package value

import (
	"fmt"
	"strings"
)

// IncomparableError is returned when two values of kinds that have no
// ordering relative to each other are compared.
type IncomparableError struct {
	Left, Right Kind
}

func (e *IncomparableError) Error() string {
	return fmt.Sprintf("cannot compare %s with %s", e.Left, e.Right)
}

// Equal reports whether a and b are structurally equal.
// Numbers compare by decimal value, so 1.0 equals 1.
// Dates compare by instant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n.Equal(b.n)
	case KindString:
		return a.s == b.s
	case KindDateTime:
		return a.t.Equal(b.t)
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindRange:
		ra, rb := a.Range(), b.Range()
		return ra.LowInclusive == rb.LowInclusive && ra.HighInclusive == rb.HighInclusive &&
			Equal(ra.Low, rb.Low) && Equal(ra.High, rb.High)
	case KindContext:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Name != b.fields[i].Name || !Equal(a.fields[i].Value, b.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values of the same orderable kind (number, string,
// date and time). It returns -1, 0 or +1. Any other combination is an
// *IncomparableError.
func Compare(a, b Value) (int, error) {
	if a.kind != b.kind {
		return 0, &IncomparableError{Left: a.kind, Right: b.kind}
	}
	switch a.kind {
	case KindNumber:
		return a.n.Cmp(b.n), nil
	case KindString:
		return strings.Compare(a.s, b.s), nil
	case KindDateTime:
		return a.t.Compare(b.t), nil
	}
	return 0, &IncomparableError{Left: a.kind, Right: b.kind}
}

// Contains reports whether v lies within the range.
// A null bound leaves that side of the range open.
func (r Range) Contains(v Value) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	if !r.Low.IsNull() {
		c, err := Compare(v, r.Low)
		if err != nil {
			return false, err
		}
		if c < 0 || (c == 0 && !r.LowInclusive) {
			return false, nil
		}
	}
	if !r.High.IsNull() {
		c, err := Compare(v, r.High)
		if err != nil {
			return false, err
		}
		if c > 0 || (c == 0 && !r.HighInclusive) {
			return false, nil
		}
	}
	return true, nil
}
