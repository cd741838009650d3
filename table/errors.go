package table

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// CellError wraps a problem with a single cell of a table.
// Rule and Column are zero-based; Rule is -1 for clause-level problems such
// as an input expression, and Column is -1 for whole-rule problems.
type CellError struct {
	Table  string
	Rule   int
	Column string
	Text   string
	Err    error
}

func (e *CellError) Error() string {
	var where string
	switch {
	case e.Rule < 0:
		where = fmt.Sprintf("column %s", e.Column)
	case e.Column == "":
		where = fmt.Sprintf("%s rule", humanize.Ordinal(e.Rule+1))
	default:
		where = fmt.Sprintf("%s rule, column %s", humanize.Ordinal(e.Rule+1), e.Column)
	}
	if e.Text != "" {
		return fmt.Sprintf("table %s: %s, %q: %v", e.Table, where, e.Text, e.Err)
	}
	return fmt.Sprintf("table %s: %s: %v", e.Table, where, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// MultipleMatchError is returned by a Unique table when more than one rule
// matches and the matched rules do not produce identical outputs.
type MultipleMatchError struct {
	Table string
	Rules []int
}

func (e *MultipleMatchError) Error() string {
	return fmt.Sprintf("table %s: unique hit policy violated, rules %s all match", e.Table, ruleList(e.Rules))
}

// ConflictingOutputsError is returned by an Any table when the matched rules
// produce different outputs.
type ConflictingOutputsError struct {
	Table string
	Rules []int
}

func (e *ConflictingOutputsError) Error() string {
	return fmt.Sprintf("table %s: any hit policy violated, rules %s match with different outputs", e.Table, ruleList(e.Rules))
}

// AggregationTypeError is returned when a Collect aggregation cannot be
// applied, because the table has several output clauses or a matched rule
// produced a non-numeric value. Rule is -1 when no single rule is at fault.
type AggregationTypeError struct {
	Table       string
	Aggregation Aggregation
	Rule        int
	Reason      string
}

func (e *AggregationTypeError) Error() string {
	if e.Rule >= 0 {
		return fmt.Sprintf("table %s: cannot %s: %s rule %s", e.Table, e.Aggregation, humanize.Ordinal(e.Rule+1), e.Reason)
	}
	return fmt.Sprintf("table %s: cannot %s: %s", e.Table, e.Aggregation, e.Reason)
}

// ruleList renders zero-based rule indexes as one-based rule numbers.
func ruleList(rules []int) string {
	s := make([]string, len(rules))
	for i, r := range rules {
		s[i] = fmt.Sprint(r + 1)
	}
	return strings.Join(s, ", ")
}
