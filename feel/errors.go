package feel

import "fmt"

// ParseError reports malformed expression text.
// Offset is the byte offset in Text where the problem was found.
type ParseError struct {
	Text    string
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %q at offset %d: %s", e.Text, e.Offset, e.Message)
}

// EvaluationError reports a failure to evaluate a parsed expression, such as
// a reference to an unbound variable or an operand of the wrong type.
type EvaluationError struct {
	Text     string
	Variable string
	Message  string
	Err      error
}

func (e *EvaluationError) Error() string {
	msg := e.Message
	if e.Variable != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Variable)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("evaluating %q: %s", e.Text, msg)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
