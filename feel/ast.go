package feel

import (
	"strings"

	"github.com/ezachrisen/dmn/value"
)

// Node is a parsed expression. The set of node types is closed; the
// evaluation functions switch over all of them.
type Node interface {
	String() string
	node()
}

// Op is the comparator of a unary test.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpAny
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIn:
		return "in"
	case OpAny:
		return "-"
	}
	return "?"
}

// Literal is a constant value.
type Literal struct {
	Value value.Value
}

// Variable is a reference to a name bound in the evaluation context.
type Variable struct {
	Name string
}

// UnaryTest compares the subject of a decision table column with its
// operand. OpAny has no operand and matches everything.
type UnaryTest struct {
	Op      Op
	Operand Node
}

// Range is an interval with per-bound inclusivity.
type Range struct {
	Low           Node
	LowInclusive  bool
	High          Node
	HighInclusive bool
}

// Disjunction matches when any of its alternatives match.
type Disjunction struct {
	Alternatives []Node
}

// Negation inverts the result of the inner test.
type Negation struct {
	Inner Node
}

// List is a list literal.
type List struct {
	Items []Node
}

func (*Literal) node()     {}
func (*Variable) node()    {}
func (*UnaryTest) node()   {}
func (*Range) node()       {}
func (*Disjunction) node() {}
func (*Negation) node()    {}
func (*List) node()        {}

func (n *Literal) String() string  { return n.Value.String() }
func (n *Variable) String() string { return n.Name }

func (n *UnaryTest) String() string {
	switch n.Op {
	case OpAny:
		return "-"
	case OpIn:
		return n.Operand.String()
	}
	return n.Op.String() + " " + n.Operand.String()
}

func (n *Range) String() string {
	open, close := "(", ")"
	if n.LowInclusive {
		open = "["
	}
	if n.HighInclusive {
		close = "]"
	}
	return open + n.Low.String() + ".." + n.High.String() + close
}

func (n *Disjunction) String() string {
	return joinNodes(n.Alternatives)
}

func (n *Negation) String() string {
	return "not(" + n.Inner.String() + ")"
}

func (n *List) String() string {
	return "[" + joinNodes(n.Items) + "]"
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// Variables lists the names referenced by n, in order of first appearance.
func Variables(n Node) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case *Variable:
			if !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t.Name)
			}
		case *UnaryTest:
			if t.Operand != nil {
				walk(t.Operand)
			}
		case *Range:
			walk(t.Low)
			walk(t.High)
		case *Disjunction:
			for _, a := range t.Alternatives {
				walk(a)
			}
		case *Negation:
			walk(t.Inner)
		case *List:
			for _, it := range t.Items {
				walk(it)
			}
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}
