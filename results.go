package dmn

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ezachrisen/dmn/value"
)

// Result of evaluating a graph.
type Result struct {
	// Values of the requested decisions, by decision name.
	// With the ReturnAll option, values of every decision computed.
	Outputs *value.Context

	// Ids of the decisions computed, in the order they were computed.
	Order []string

	// Diagnostic data; only available if you turn on diagnostics for the evaluation
	Diagnostics *Diagnostics

	// The evaluation options used
	EvalOptions EvalOptions
}

// Value returns the value of the decision with the given name.
func (r *Result) Value(name string) (value.Value, bool) {
	if r == nil {
		return value.Null(), false
	}
	return r.Outputs.Get(name)
}

// Map returns the outputs as Go values; see value.Value.Native.
func (r *Result) Map() map[string]any {
	if r == nil {
		return nil
	}
	return r.Outputs.Map()
}

// String lists the output decisions and their values.
func (r *Result) String() string {
	tw := table.NewWriter()
	tw.SetTitle("\nDMN RESULT SUMMARY\n")
	tw.AppendHeader(table.Row{"Decision", "Value", "Type"})
	for _, name := range r.Outputs.Names() {
		v, _ := r.Outputs.Get(name)
		tw.AppendRow(table.Row{name, v.String(), v.Kind().String()})
	}
	tw.SetCaption("Evaluated: %d decision(s)", len(r.Order))
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

// GoString is used by %#v.
func (r *Result) GoString() string {
	return fmt.Sprintf("dmn.Result{Outputs: %s, Order: %q}", r.Outputs.Value(), r.Order)
}
