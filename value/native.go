package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Native converts v into a plain Go value: nil, bool, int64 (integral
// numbers), float64, string, time.Time, []any or map[string]any.
// Ranges convert to their String form.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		if v.n.IsInteger() && v.n.Abs().LessThan(decimal.NewFromInt(1<<62)) {
			return v.n.IntPart()
		}
		f, _ := v.n.Float64()
		return f
	case KindString:
		return v.s
	case KindDateTime:
		return v.t
	case KindList:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Native()
		}
		return out
	case KindRange:
		return v.String()
	case KindContext:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Name] = f.Value.Native()
		}
		return out
	}
	return nil
}

// FromNative converts a Go value into a Value.
// Maps become context values with their keys sorted.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(decimal.NewFromUint64(uint64(t))), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(decimal.NewFromUint64(t)), nil
	case float32:
		return Number(decimal.NewFromFloat32(t)), nil
	case float64:
		return Float(t), nil
	case decimal.Decimal:
		return Number(t), nil
	case json.Number:
		return ParseNumber(t.String())
	case string:
		return String(t), nil
	case time.Time:
		return DateTime(t), nil
	case []Value:
		return List(t...), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return Null(), fmt.Errorf("list element %d: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			v, err := FromNative(t[k])
			if err != nil {
				return Null(), fmt.Errorf("field %s: %w", k, err)
			}
			fields[i] = Field{Name: k, Value: v}
		}
		return ContextValue(fields...), nil
	}
	return Null(), fmt.Errorf("unsupported value type %T", x)
}
