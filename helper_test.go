package dmn_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/evaluator"
	"github.com/ezachrisen/dmn/table"
	"github.com/ezachrisen/dmn/value"
)

// discountTable prices orders of Silver customers.
func discountTable() *table.Table {
	return &table.Table{
		Name:      "Discount",
		HitPolicy: table.Unique,
		Inputs: []table.Input{
			{Label: "Customer Status", Expression: "CustomerStatus"},
			{Label: "Order Amount", Expression: "OrderAmount"},
		},
		Outputs: []table.Output{{Name: "Discount"}},
		Rules: []table.Rule{
			{Inputs: []string{`"Silver"`, `> 500`}, Outputs: []string{"0.08"}},
			{Inputs: []string{`"Silver"`, `<= 500`}, Outputs: []string{"0.05"}},
		},
	}
}

// discountGraph has two input data nodes and one decision that requires both.
func discountGraph(t *testing.T, opts ...dmn.GraphOption) *dmn.Graph {
	t.Helper()
	g := dmn.NewGraph("discounts", opts...)
	must(t, g.AddNode(dmn.NewInputData("i_status", "CustomerStatus")))
	must(t, g.AddNode(dmn.NewInputData("i_amount", "OrderAmount")))
	must(t, g.AddNode(dmn.NewDecision("d_discount", "Discount", &dmn.DecisionTable{Table: discountTable()})))
	must(t, g.AddInformationRequirement("i_status", "d_discount"))
	must(t, g.AddInformationRequirement("i_amount", "d_discount"))
	return g
}

// rateGraph has a decision that invokes a model to look up a discount rate
// for the customer's status.
func rateGraph(t *testing.T) *dmn.Graph {
	t.Helper()
	rates := &table.Table{
		Name:      "Rates",
		HitPolicy: table.First,
		Inputs:    []table.Input{{Expression: "status"}},
		Outputs:   []table.Output{{Name: "rate"}},
		Rules: []table.Rule{
			{Inputs: []string{`"Gold"`}, Outputs: []string{"0.1"}},
			{Inputs: []string{`-`}, Outputs: []string{"0"}},
		},
	}
	g := dmn.NewGraph("rates")
	must(t, g.AddNode(dmn.NewInputData("i_customer", "customer")))
	must(t, g.AddNode(dmn.NewBKM("b_rate", "rate", []string{"status"}, &dmn.DecisionTable{Table: rates})))
	must(t, g.AddNode(dmn.NewDecision("d_rate", "Rate", &dmn.LiteralExpression{Text: "rate"})))
	must(t, g.AddInformationRequirement("i_customer", "d_rate"))
	must(t, g.AddKnowledgeRequirement("b_rate", "d_rate", dmn.Binding{Parameter: "status", Expression: "customer"}))
	return g
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func literal(text string) *dmn.LiteralExpression {
	return &dmn.LiteralExpression{Text: text}
}

// -------------------------------------------------- MOCK LANGUAGE
// mockCompiler is used for testing.
// Its programs return the value of the first name they reference, or the
// expression text as a string, and count how often they were evaluated.
type mockCompiler struct {
	mu        sync.Mutex
	compiled  []string
	evaluated map[string]int
}

func newMockCompiler() *mockCompiler {
	return &mockCompiler{evaluated: map[string]int{}}
}

func (m *mockCompiler) Compile(text string, names []string) (evaluator.Program, error) {
	if text == "fail" {
		return nil, fmt.Errorf("mock compile failure")
	}
	m.mu.Lock()
	m.compiled = append(m.compiled, text)
	m.mu.Unlock()

	var refs []string
	for _, n := range names {
		if n == text {
			refs = append(refs, n)
		}
	}
	return &mockProgram{m: m, text: text, refs: refs}, nil
}

func (m *mockCompiler) count(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluated[text]
}

type mockProgram struct {
	m    *mockCompiler
	text string
	refs []string
}

func (p *mockProgram) Eval(ctx *value.Context) (value.Value, error) {
	p.m.mu.Lock()
	p.m.evaluated[p.text]++
	p.m.mu.Unlock()
	if len(p.refs) > 0 {
		v, _ := ctx.Get(p.refs[0])
		return v, nil
	}
	return value.String(p.text), nil
}

func (p *mockProgram) References() []string {
	return p.refs
}
