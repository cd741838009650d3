// Package cel lets literal expressions in a decision graph be written in
// Google's Common Expression Language.
//
// See https://github.com/google/cel-go and https://opensource.google/projects/cel for more information
// about CEL. The expressions you write must conform to the CEL spec: https://github.com/google/cel-spec.
//
// Register the compiler with the graph and mark each expression with the
// language:
//
//	g := dmn.NewGraph("pricing", dmn.WithLanguage(cel.LanguageID, cel.NewCompiler()))
//	g.AddNode(dmn.NewDecision("total", "total", &dmn.LiteralExpression{
//		Text:     `price * quantity * (1.0 - discount)`,
//		Language: cel.LanguageID,
//	}))
//
// # Names
//
// Every name in scope of the decision is declared with the dynamic type.
// Names that are not valid CEL identifiers, such as names containing
// spaces, cannot be referenced from CEL. A reference to an undeclared name
// is a compilation error, reported when the graph is validated.
//
// # Numbers
//
// Numbers are passed to CEL as doubles, and comparisons between ints and
// doubles are allowed, so `amount > 100` works whether the value of amount
// is whole or not. Whole results come back as exact numbers.
//
// # Cost
//
// Each evaluation is limited by CEL's cost model; an expression exceeding
// the limit fails with a *evaluator.ResourceLimitError.
package cel
