package table

import (
	"fmt"
	"strings"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ezachrisen/dmn/value"
)

// Binding is the value produced for one output clause.
type Binding struct {
	Name  string
	Value value.Value
}

// Row holds one binding per output clause, in clause order.
type Row []Binding

// Value returns the single value of a one-column row, or a context value
// with one field per output clause.
func (r Row) Value() value.Value {
	if len(r) == 1 {
		return r[0].Value
	}
	fields := make([]value.Field, len(r))
	for i, b := range r {
		fields[i] = value.Field{Name: b.Name, Value: b.Value}
	}
	return value.ContextValue(fields...)
}

// Result of evaluating a table.
type Result struct {
	Table       string
	HitPolicy   HitPolicy
	Aggregation Aggregation

	// Matched holds the zero-based indexes of the rules that matched, in
	// rule order.
	Matched []int

	// Rows holds the selected output rows. Single hit policies always
	// produce exactly one row, which is all null when nothing matched.
	Rows []Row

	aggregate  value.Value
	aggregated bool
}

// Value is the value of the decision the table implements.
// Single hit policies return the value of the row; multiple hit policies
// return a list of row values, or the aggregate for Collect with an
// aggregation.
func (r *Result) Value() value.Value {
	if r.aggregated {
		return r.aggregate
	}
	if r.HitPolicy.SingleHit() {
		if len(r.Rows) == 0 {
			return value.Null()
		}
		return r.Rows[0].Value()
	}
	items := make([]value.Value, len(r.Rows))
	for i, row := range r.Rows {
		items[i] = row.Value()
	}
	return value.List(items...)
}

// String renders the matched rules and the selected rows.
func (r *Result) String() string {
	tw := pretty.NewWriter()
	tw.SetTitle(fmt.Sprintf("%s\n%s", r.Table, r.HitPolicy))

	var header pretty.Row
	if len(r.Rows) > 0 {
		for _, b := range r.Rows[0] {
			header = append(header, b.Name)
		}
	}
	tw.AppendHeader(header)
	for _, row := range r.Rows {
		cells := pretty.Row{}
		for _, b := range row {
			cells = append(cells, b.Value.String())
		}
		tw.AppendRow(cells)
	}

	matched := make([]string, len(r.Matched))
	for i, m := range r.Matched {
		matched[i] = fmt.Sprint(m + 1)
	}
	footer := "Matched: " + strings.Join(matched, ", ")
	if r.aggregated {
		footer += fmt.Sprintf("   %s: %s", r.Aggregation, r.aggregate)
	}
	tw.SetCaption("%s", footer)

	style := pretty.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}
