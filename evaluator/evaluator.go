// Package evaluator provides interfaces for compilation and evaluation of
// decision logic expressions.
//
// These interfaces are implemented by expression languages, such as the
// built-in FEEL subset and CEL.
package evaluator

import (
	"fmt"

	"github.com/ezachrisen/dmn/value"
)

// Program is a compiled expression, ready to be evaluated any number of
// times. Implementations must be safe for concurrent use.
type Program interface {
	// Eval evaluates the expression against the names bound in ctx.
	Eval(ctx *value.Context) (value.Value, error)

	// References lists the variable names the expression reads.
	References() []string
}

// ResourceLimitError is returned when an evaluation exceeds a guard rail,
// such as the maximum invocation depth or an expression cost limit.
type ResourceLimitError struct {
	Resource string
	Limit    int64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s (limit %d)", e.Resource, e.Limit)
}
