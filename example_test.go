package dmn_test

import (
	"context"
	"fmt"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/table"
)

// Build a graph with one decision table, then evaluate it.
func Example() {
	g := dmn.NewGraph("discounts")
	g.AddNode(dmn.NewInputData("i_status", "CustomerStatus"))
	g.AddNode(dmn.NewInputData("i_amount", "OrderAmount"))
	g.AddNode(dmn.NewDecision("d_discount", "Discount", &dmn.DecisionTable{
		Table: &table.Table{
			HitPolicy: table.Unique,
			Inputs:    []table.Input{{Expression: "CustomerStatus"}, {Expression: "OrderAmount"}},
			Outputs:   []table.Output{{Name: "Discount"}},
			Rules: []table.Rule{
				{Inputs: []string{`"Silver"`, `> 500`}, Outputs: []string{"0.08"}},
				{Inputs: []string{`"Silver"`, `<= 500`}, Outputs: []string{"0.05"}},
				{Inputs: []string{`"Gold"`, `-`}, Outputs: []string{"0.15"}},
			},
		},
	}))
	g.AddInformationRequirement("i_status", "d_discount")
	g.AddInformationRequirement("i_amount", "d_discount")

	if errs := g.Validate(); len(errs) > 0 {
		fmt.Println(errs)
		return
	}

	e := dmn.NewEngine()
	for _, amount := range []int{600, 120} {
		res, err := e.Evaluate(context.Background(), g, map[string]any{"CustomerStatus": "Silver", "OrderAmount": amount}, []string{"d_discount"})
		if err != nil {
			fmt.Println(err)
			return
		}
		v, _ := res.Value("Discount")
		fmt.Printf("Silver, %d: %s\n", amount, v)
	}
	// Output:
	// Silver, 600: 0.08
	// Silver, 120: 0.05
}

// Replace the logic of a decision while other goroutines keep evaluating.
func ExampleVault() {
	g := dmn.NewGraph("greeting")
	g.AddNode(dmn.NewInputData("i_name", "name"))
	g.AddNode(dmn.NewDecision("d_hello", "hello", &dmn.LiteralExpression{Text: `"hello"`}))
	g.AddInformationRequirement("i_name", "d_hello")

	v, err := dmn.NewVault(g)
	if err != nil {
		fmt.Println(err)
		return
	}

	e := dmn.NewEngine()
	show := func() {
		res, err := e.Evaluate(context.Background(), v.Current(), map[string]any{"name": "Ada"}, nil)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(res.Map()["hello"])
	}

	show()
	if err := v.Mutate(dmn.SetLogic("d_hello", &dmn.LiteralExpression{Text: "name"})); err != nil {
		fmt.Println(err)
		return
	}
	show()
	// Output:
	// hello
	// Ada
}
