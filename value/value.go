// Package value defines the values produced and consumed during decision
// evaluation, and the Context that binds names to them.
//
// A Value is a closed sum type. Inspect Kind to determine which accessor is
// meaningful; accessors called on the wrong kind return the zero value of
// their result type.
package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindDateTime
	KindList
	KindRange
	KindContext
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDateTime:
		return "date and time"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	case KindContext:
		return "context"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is an immutable decision value.
// The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	n      decimal.Decimal
	s      string
	t      time.Time
	items  []Value
	rng    *Range
	fields []Field
}

// Field is one named entry of a context value.
type Field struct {
	Name  string
	Value Value
}

// Range is an interval used as the operand of a comparison.
// It is never the result of a decision.
type Range struct {
	Low           Value
	LowInclusive  bool
	High          Value
	HighInclusive bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, n: d} }

// Int returns a numeric value holding i.
func Int(i int64) Value { return Number(decimal.NewFromInt(i)) }

// Float returns a numeric value holding f. Floats are converted through
// their shortest decimal representation, so Float(0.1) equals the decimal 0.1.
func Float(f float64) Value { return Number(decimal.NewFromFloat(f)) }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// DateTime returns a date and time value.
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// List returns a list value holding a copy of items.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, items: cp}
}

// RangeOf returns a range value.
func RangeOf(r Range) Value {
	cp := r
	return Value{kind: KindRange, rng: &cp}
}

// ContextValue returns a context value holding a copy of fields, in order.
func ContextValue(fields ...Field) Value {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Value{kind: KindContext, fields: cp}
}

// ParseNumber parses a decimal literal such as "-12.50".
func ParseNumber(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Number(d), nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.b }

func (v Value) Decimal() decimal.Decimal { return v.n }

func (v Value) Str() string { return v.s }

func (v Value) Time() time.Time { return v.t }

// Items returns a copy of the elements of a list value.
func (v Value) Items() []Value {
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	return cp
}

// Len is the number of elements of a list, or fields of a context.
func (v Value) Len() int {
	if v.kind == KindContext {
		return len(v.fields)
	}
	return len(v.items)
}

// Range returns the interval of a range value.
func (v Value) Range() Range {
	if v.rng == nil {
		return Range{}
	}
	return *v.rng
}

// Fields returns a copy of the fields of a context value.
func (v Value) Fields() []Field {
	cp := make([]Field, len(v.fields))
	copy(cp, v.fields)
	return cp
}

// Field returns the value of the named field of a context value.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Null(), false
}

// String renders the value the way it would be written in a cell.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.n.String()
	case KindString:
		return strconv.Quote(v.s)
	case KindDateTime:
		if isDate(v.t) {
			return fmt.Sprintf("date(%q)", v.t.Format(time.DateOnly))
		}
		return fmt.Sprintf("date and time(%q)", v.t.Format(time.RFC3339Nano))
	case KindList:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRange:
		r := v.Range()
		open, close := "(", ")"
		if r.LowInclusive {
			open = "["
		}
		if r.HighInclusive {
			close = "]"
		}
		return open + r.Low.String() + ".." + r.High.String() + close
	case KindContext:
		parts := make([]string, len(v.fields))
		for i, f := range v.fields {
			parts[i] = f.Name + ": " + f.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

func isDate(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC
}
