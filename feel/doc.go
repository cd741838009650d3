// Package feel parses and evaluates the restricted expression language used
// in decision table cells: literals, comparisons, ranges, disjunctions,
// negation and variable references.
//
// Expressions are evaluated in one of two modes. EvaluateTest treats the
// expression as a unary test against the value of a table column and
// returns a boolean. EvaluateValue computes a value, as needed for output
// entries and input expressions.
package feel
