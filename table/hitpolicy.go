package table

import (
	"fmt"
	"strings"
)

// HitPolicy determines how the outputs of several matching rules combine
// into the result of a table.
type HitPolicy int

const (
	Unique HitPolicy = iota
	Any
	Priority
	First
	Collect
	RuleOrder
	OutputOrder
)

var hitPolicies = []struct {
	symbol, name, description string
}{
	Unique:      {"U", "Unique", "Only a single rule can match"},
	Any:         {"A", "Any", "Multiple rules can match but must have the same output"},
	Priority:    {"P", "Priority", "Multiple rules can match with the output selected by rule priority"},
	First:       {"F", "First", "First matching rule determines the output"},
	Collect:     {"C", "Collect", "Aggregates outputs from all matching rules"},
	RuleOrder:   {"R", "Rule Order", "Outputs from all matching rules in rule order"},
	OutputOrder: {"O", "Output Order", "Outputs from all matching rules in output priority order"},
}

func (h HitPolicy) valid() bool {
	return h >= Unique && h <= OutputOrder
}

// Symbol is the single letter written in the table header, such as "U".
func (h HitPolicy) Symbol() string {
	if !h.valid() {
		return "?"
	}
	return hitPolicies[h].symbol
}

func (h HitPolicy) Name() string {
	if !h.valid() {
		return fmt.Sprintf("HitPolicy(%d)", int(h))
	}
	return hitPolicies[h].name
}

func (h HitPolicy) Description() string {
	if !h.valid() {
		return ""
	}
	return hitPolicies[h].description
}

func (h HitPolicy) String() string {
	return fmt.Sprintf("%s (%s)", h.Name(), h.Symbol())
}

// SingleHit reports whether the policy produces at most one row.
func (h HitPolicy) SingleHit() bool {
	switch h {
	case Unique, Any, Priority, First:
		return true
	}
	return false
}

// ParseHitPolicy accepts a symbol ("U") or a name ("UNIQUE", "Rule Order",
// "RULE_ORDER"), ignoring case.
func ParseHitPolicy(s string) (HitPolicy, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	for h, p := range hitPolicies {
		if norm == p.symbol || norm == strings.ToUpper(p.name) {
			return HitPolicy(h), nil
		}
	}
	return Unique, fmt.Errorf("unknown hit policy %q", s)
}

// Aggregation reduces the outputs of a Collect table to a single value.
// The zero value, AggList, keeps every row.
type Aggregation int

const (
	AggList Aggregation = iota
	AggSum
	AggMin
	AggMax
	AggCount
)

var aggregations = []string{
	AggList:  "LIST",
	AggSum:   "SUM",
	AggMin:   "MIN",
	AggMax:   "MAX",
	AggCount: "COUNT",
}

func (a Aggregation) String() string {
	if a < AggList || a > AggCount {
		return fmt.Sprintf("Aggregation(%d)", int(a))
	}
	return aggregations[a]
}

// Operator is the symbol used in the C+ notation: "+", "<", ">" or "#".
// AggList has no operator.
func (a Aggregation) Operator() string {
	switch a {
	case AggSum:
		return "+"
	case AggMin:
		return "<"
	case AggMax:
		return ">"
	case AggCount:
		return "#"
	}
	return ""
}

// ParseAggregation accepts an aggregation name, ignoring case.
// Empty text is AggList.
func ParseAggregation(s string) (Aggregation, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if norm == "" {
		return AggList, nil
	}
	for a, name := range aggregations {
		if norm == name {
			return Aggregation(a), nil
		}
	}
	return AggList, fmt.Errorf("unknown aggregation %q", s)
}
