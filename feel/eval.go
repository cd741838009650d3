package feel

import (
	"fmt"

	"github.com/ezachrisen/dmn/value"
)

// EvaluateTest evaluates n as a unary test against subject, the current
// value of the decision table column.
//
// A bare literal or name tests for equality with the subject, or for
// membership when it evaluates to a list or a range. Ordering comparisons
// against a null subject are false.
func EvaluateTest(n Node, subject value.Value, ctx *value.Context) (bool, error) {
	switch t := n.(type) {
	case *UnaryTest:
		return evalUnaryTest(t, subject, ctx)
	case *Range:
		r, err := evalRange(t, ctx)
		if err != nil {
			return false, err
		}
		return rangeContains(t, r, subject)
	case *Disjunction:
		for _, a := range t.Alternatives {
			ok, err := EvaluateTest(a, subject, ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *Negation:
		ok, err := EvaluateTest(t.Inner, subject, ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case *Literal, *Variable, *List:
		v, err := EvaluateValue(n, ctx)
		if err != nil {
			return false, err
		}
		return matches(n, v, subject)
	}
	return false, &EvaluationError{Text: fmt.Sprint(n), Message: "unsupported test"}
}

func evalUnaryTest(t *UnaryTest, subject value.Value, ctx *value.Context) (bool, error) {
	if t.Op == OpAny {
		return true, nil
	}
	if t.Op == OpIn {
		return EvaluateTest(t.Operand, subject, ctx)
	}

	operand, err := EvaluateValue(t.Operand, ctx)
	if err != nil {
		return false, err
	}
	switch t.Op {
	case OpEq:
		return value.Equal(subject, operand), nil
	case OpNe:
		return !value.Equal(subject, operand), nil
	}

	if subject.IsNull() || operand.IsNull() {
		return false, nil
	}
	c, err := value.Compare(subject, operand)
	if err != nil {
		return false, &EvaluationError{Text: t.String(), Message: "wrong operand type", Err: err}
	}
	switch t.Op {
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return false, &EvaluationError{Text: t.String(), Message: "unknown comparator " + t.Op.String()}
}

// matches tests subject against the value of a bare endpoint.
func matches(n Node, v, subject value.Value) (bool, error) {
	switch v.Kind() {
	case value.KindList:
		for _, it := range v.Items() {
			ok, err := matches(n, it, subject)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case value.KindRange:
		ok, err := v.Range().Contains(subject)
		if err != nil {
			return false, &EvaluationError{Text: n.String(), Message: "wrong operand type", Err: err}
		}
		return ok, nil
	}
	return value.Equal(subject, v), nil
}

func rangeContains(n *Range, r value.Range, subject value.Value) (bool, error) {
	ok, err := r.Contains(subject)
	if err != nil {
		return false, &EvaluationError{Text: n.String(), Message: "wrong operand type", Err: err}
	}
	return ok, nil
}

func evalRange(t *Range, ctx *value.Context) (value.Range, error) {
	low, err := EvaluateValue(t.Low, ctx)
	if err != nil {
		return value.Range{}, err
	}
	high, err := EvaluateValue(t.High, ctx)
	if err != nil {
		return value.Range{}, err
	}
	return value.Range{
		Low:           low,
		LowInclusive:  t.LowInclusive,
		High:          high,
		HighInclusive: t.HighInclusive,
	}, nil
}

// EvaluateValue evaluates n as an expression producing a value.
// "-" evaluates to null. Tests, disjunctions and negations have no value.
func EvaluateValue(n Node, ctx *value.Context) (value.Value, error) {
	switch t := n.(type) {
	case *Literal:
		return t.Value, nil
	case *Variable:
		v, ok := ctx.Get(t.Name)
		if !ok {
			return value.Null(), &EvaluationError{Text: t.Name, Variable: t.Name, Message: "undefined variable"}
		}
		return v, nil
	case *Range:
		r, err := evalRange(t, ctx)
		if err != nil {
			return value.Null(), err
		}
		return value.RangeOf(r), nil
	case *List:
		items := make([]value.Value, len(t.Items))
		for i, it := range t.Items {
			v, err := EvaluateValue(it, ctx)
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		return value.List(items...), nil
	case *UnaryTest:
		if t.Op == OpAny {
			return value.Null(), nil
		}
	}
	return value.Null(), &EvaluationError{Text: fmt.Sprint(n), Message: "not a value expression"}
}
