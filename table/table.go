// Package table evaluates DMN decision tables.
//
// A Table is built from plain cell text. Compile parses every cell once;
// after that the table may be evaluated concurrently against any number of
// contexts, as long as it is not modified.
package table

import (
	"errors"
	"fmt"
	"slices"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ezachrisen/dmn/feel"
	"github.com/ezachrisen/dmn/value"
)

// ErrNotCompiled is returned when a table is evaluated before Compile.
var ErrNotCompiled = errors.New("table not compiled")

// Input is an input clause. Expression is evaluated against the context to
// produce the subject that the rule cells of this column test.
type Input struct {
	Label      string
	Expression string
}

// Output is an output clause.
// AllowedValues lists the permitted values in priority order, highest
// first, each written as literal cell text such as `"High"`. The order is
// used by the Priority and Output Order hit policies.
type Output struct {
	Name          string
	AllowedValues []string
}

// Rule is one row of a table: one input entry per input clause and one
// output entry per output clause.
type Rule struct {
	Inputs     []string
	Outputs    []string
	Annotation string
}

// Table is a decision table. Rule order is significant.
type Table struct {
	Name        string
	HitPolicy   HitPolicy
	Aggregation Aggregation
	Inputs      []Input
	Outputs     []Output
	Rules       []Rule

	prog *program
}

// program holds the parsed form of every cell.
type program struct {
	inputs  []feel.Node
	tests   [][]feel.Node
	results [][]feel.Node
	allowed [][]value.Value
}

// Compiled reports whether the table has been compiled successfully.
func (t *Table) Compiled() bool {
	return t.prog != nil
}

// Compile parses all cell text, using cache when it is not nil.
// Every problem found is reported, each as a *CellError, joined into one error.
func (t *Table) Compile(cache *feel.Cache) error {
	t.prog = nil
	var errs []error
	cellErr := func(rule int, column, txt string, err error) {
		errs = append(errs, &CellError{Table: t.Name, Rule: rule, Column: column, Text: txt, Err: err})
	}

	if len(t.Outputs) == 0 {
		errs = append(errs, fmt.Errorf("table %s: no output clauses", t.Name))
	}
	if t.Aggregation != AggList && t.HitPolicy != Collect {
		errs = append(errs, fmt.Errorf("table %s: aggregation %s requires the collect hit policy", t.Name, t.Aggregation))
	}

	p := &program{
		inputs:  make([]feel.Node, len(t.Inputs)),
		tests:   make([][]feel.Node, len(t.Rules)),
		results: make([][]feel.Node, len(t.Rules)),
		allowed: make([][]value.Value, len(t.Outputs)),
	}

	for i, in := range t.Inputs {
		n, err := cache.Parse(in.Expression)
		if err != nil {
			cellErr(-1, t.inputName(i), in.Expression, err)
			continue
		}
		p.inputs[i] = n
	}

	for i, out := range t.Outputs {
		for _, txt := range out.AllowedValues {
			n, err := cache.Parse(txt)
			if err == nil {
				var v value.Value
				if v, err = feel.EvaluateValue(n, nil); err == nil {
					p.allowed[i] = append(p.allowed[i], v)
					continue
				}
			}
			cellErr(-1, t.outputName(i), txt, fmt.Errorf("allowed value: %w", err))
		}
	}

	for r, rule := range t.Rules {
		if len(rule.Inputs) != len(t.Inputs) || len(rule.Outputs) != len(t.Outputs) {
			cellErr(r, "", "", fmt.Errorf("has %d input and %d output entries, table has %d and %d clauses",
				len(rule.Inputs), len(rule.Outputs), len(t.Inputs), len(t.Outputs)))
			continue
		}
		p.tests[r] = make([]feel.Node, len(rule.Inputs))
		for c, txt := range rule.Inputs {
			n, err := cache.Parse(txt)
			if err != nil {
				cellErr(r, t.inputName(c), txt, err)
				continue
			}
			p.tests[r][c] = n
		}
		p.results[r] = make([]feel.Node, len(rule.Outputs))
		for c, txt := range rule.Outputs {
			n, err := cache.Parse(txt)
			if err != nil {
				cellErr(r, t.outputName(c), txt, err)
				continue
			}
			p.results[r][c] = n
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	t.prog = p
	return nil
}

func (t *Table) inputName(i int) string {
	if t.Inputs[i].Label != "" {
		return t.Inputs[i].Label
	}
	return t.Inputs[i].Expression
}

func (t *Table) outputName(i int) string {
	if t.Outputs[i].Name != "" {
		return t.Outputs[i].Name
	}
	return fmt.Sprintf("output %d", i+1)
}

// Variables lists the names the table reads: names in input expressions
// and in rule cells, in order of first appearance. Cells that do not parse
// are skipped.
func (t *Table) Variables() []string {
	var out []string
	add := func(txt string) {
		n, err := feel.Parse(txt)
		if err != nil {
			return
		}
		for _, v := range feel.Variables(n) {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	for _, in := range t.Inputs {
		add(in.Expression)
	}
	for _, r := range t.Rules {
		for _, c := range r.Inputs {
			add(c)
		}
		for _, c := range r.Outputs {
			add(c)
		}
	}
	return out
}

// Clone returns a deep copy of the table. The copy must be compiled
// before use.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:        t.Name,
		HitPolicy:   t.HitPolicy,
		Aggregation: t.Aggregation,
		Inputs:      slices.Clone(t.Inputs),
		Outputs:     make([]Output, len(t.Outputs)),
		Rules:       make([]Rule, len(t.Rules)),
	}
	for i, o := range t.Outputs {
		c.Outputs[i] = Output{Name: o.Name, AllowedValues: slices.Clone(o.AllowedValues)}
	}
	for i, r := range t.Rules {
		c.Rules[i] = Rule{Inputs: slices.Clone(r.Inputs), Outputs: slices.Clone(r.Outputs), Annotation: r.Annotation}
	}
	return c
}

// Header is the hit policy as written in the top left cell of the table:
// the symbol, followed by the aggregation operator for Collect tables.
func (t *Table) Header() string {
	return t.HitPolicy.Symbol() + t.Aggregation.Operator()
}

// String renders the table in a grid, with the hit policy in the
// top left corner.
func (t *Table) String() string {
	tw := pretty.NewWriter()
	tw.SetTitle(fmt.Sprintf("%s\nHit Policy: %s", t.Name, t.HitPolicy))

	header := pretty.Row{t.Header()}
	for i := range t.Inputs {
		header = append(header, t.inputName(i))
	}
	for i := range t.Outputs {
		header = append(header, t.outputName(i))
	}
	annotations := slices.ContainsFunc(t.Rules, func(r Rule) bool { return r.Annotation != "" })
	if annotations {
		header = append(header, "Annotation")
	}
	tw.AppendHeader(header)

	for i, r := range t.Rules {
		row := pretty.Row{i + 1}
		for _, c := range r.Inputs {
			row = append(row, cellText(c))
		}
		for _, c := range r.Outputs {
			row = append(row, cellText(c))
		}
		if annotations {
			row = append(row, r.Annotation)
		}
		tw.AppendRow(row)
	}

	style := pretty.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func cellText(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
