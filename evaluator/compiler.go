package evaluator

// Compiler defines the protocol for pre-processing an expression and
// providing feedback on its correctness before any evaluation happens.
type Compiler interface {
	// Compile parses and checks the expression text. names lists every
	// variable the expression is allowed to reference; a compiler may reject
	// references outside that set, or leave the check to the caller via
	// Program.References.
	Compile(text string, names []string) (Program, error)
}
