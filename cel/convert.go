package cel

// This file contains functions that convert between CEL's values and the
// values of a decision graph.
//
//  - toCEL converts a value to a Go value CEL accepts as input
//  - fromCEL converts a value produced by CEL back

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/ezachrisen/dmn/value"
)

// toCEL converts v to a Go value. Numbers become float64.
func toCEL(v value.Value) any {
	switch v.Kind() {
	case value.KindNull:
		return types.NullValue
	case value.KindBool:
		return v.Bool()
	case value.KindNumber:
		f, _ := v.Decimal().Float64()
		return f
	case value.KindString:
		return v.Str()
	case value.KindDateTime:
		return v.Time()
	case value.KindList:
		items := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = toCEL(it)
		}
		return out
	case value.KindContext:
		out := map[string]any{}
		for _, f := range v.Fields() {
			out[f.Name] = toCEL(f.Value)
		}
		return out
	}
	// Ranges have no CEL counterpart.
	return v.String()
}

// fromCEL converts a CEL result to a value.
func fromCEL(r ref.Val) (value.Value, error) {
	switch v := r.(type) {
	case types.Null:
		return value.Null(), nil
	case types.Bool:
		return value.Bool(bool(v)), nil
	case types.Int:
		return value.Int(int64(v)), nil
	case types.Uint:
		return value.Int(int64(v)), nil
	case types.Double:
		return value.Float(float64(v)), nil
	case types.String:
		return value.String(string(v)), nil
	case types.Timestamp:
		return value.DateTime(v.Time), nil
	}

	if m, ok := r.(traits.Mapper); ok {
		return fromMap(m)
	}
	if l, ok := r.(traits.Lister); ok {
		var items []value.Value
		it := l.Iterator()
		for it.HasNext() == types.True {
			item, err := fromCEL(it.Next())
			if err != nil {
				return value.Null(), err
			}
			items = append(items, item)
		}
		return value.List(items...), nil
	}
	return value.Null(), fmt.Errorf("unsupported CEL result type %s", r.Type())
}

func fromMap(m traits.Mapper) (value.Value, error) {
	type entry struct {
		key string
		val ref.Val
	}
	var entries []entry
	it := m.Iterator()
	for it.HasNext() == types.True {
		k := it.Next()
		ks, ok := k.(types.String)
		if !ok {
			return value.Null(), fmt.Errorf("map key %v is a %s, want string", k, k.Type())
		}
		entries = append(entries, entry{string(ks), m.Get(k)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	fields := make([]value.Field, 0, len(entries))
	for _, e := range entries {
		v, err := fromCEL(e.val)
		if err != nil {
			return value.Null(), fmt.Errorf("map key %q: %w", e.key, err)
		}
		fields = append(fields, value.Field{Name: e.key, Value: v})
	}
	return value.ContextValue(fields...), nil
}
