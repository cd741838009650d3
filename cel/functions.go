package cel

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/ezachrisen/dmn/value"
)

// BinaryFunction is a function of two arguments made available to
// expressions.
type BinaryFunction struct {
	Func func(lhs, rhs value.Value) (value.Value, error)
}

// binaryFunction creates a CEL declaration for a binary function (a function that takes
// two parameters and returns a value).
func binaryFunction(name string, f BinaryFunction) (celgo.EnvOption, error) {
	if f.Func == nil {
		return nil, fmt.Errorf("%q missing function", name)
	}

	return celgo.Function(name,
		celgo.Overload(fmt.Sprintf("%s_dyn_dyn", name),
			[]*celgo.Type{celgo.DynType, celgo.DynType},
			celgo.DynType,
			celgo.BinaryBinding(binaryWrapper(name, f)))), nil
}

// binaryWrapper wraps a binary function in a closure that converts its
// arguments from CEL values, and its result back.
func binaryWrapper(name string, f BinaryFunction) func(lhs, rhs ref.Val) ref.Val {
	return func(lhs, rhs ref.Val) ref.Val {
		l, err := fromCEL(lhs)
		if err != nil {
			return types.NewErr("function %s, first argument: %v", name, err)
		}
		r, err := fromCEL(rhs)
		if err != nil {
			return types.NewErr("function %s, second argument: %v", name, err)
		}

		x, err := f.Func(l, r)
		if err != nil {
			return types.NewErr("function %s: %v", name, err)
		}
		return types.DefaultTypeAdapter.NativeToValue(toCEL(x))
	}
}
