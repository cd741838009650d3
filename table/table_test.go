package table_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/ezachrisen/dmn/feel"
	"github.com/ezachrisen/dmn/table"
	"github.com/ezachrisen/dmn/value"
)

// discountTable is the customer discount table used across these tests.
func discountTable(h table.HitPolicy, agg table.Aggregation) *table.Table {
	return &table.Table{
		Name:        "Discount",
		HitPolicy:   h,
		Aggregation: agg,
		Inputs: []table.Input{
			{Label: "Customer Status", Expression: "Customer Status"},
			{Label: "Order Amount", Expression: "Order Amount"},
		},
		Outputs: []table.Output{{Name: "Discount"}},
		Rules: []table.Rule{
			{Inputs: []string{`"Gold"`, "> 1000"}, Outputs: []string{"0.15"}},
			{Inputs: []string{`"Gold"`, "<= 1000"}, Outputs: []string{"0.10"}},
			{Inputs: []string{`"Silver"`, "> 500"}, Outputs: []string{"0.08"}},
			{Inputs: []string{`"Silver"`, "<= 500"}, Outputs: []string{"0.05"}},
			{Inputs: []string{`"Bronze"`, "> 300"}, Outputs: []string{"0.03"}},
			{Inputs: []string{`"Bronze"`, "<= 300"}, Outputs: []string{"0.01"}},
		},
	}
}

func order(t *testing.T, status string, amount int) *value.Context {
	t.Helper()
	ctx, err := value.ContextOf(map[string]any{"Customer Status": status, "Order Amount": amount})
	if err != nil {
		t.Fatal(err)
	}
	return ctx
}

func compiled(t *testing.T, tb *table.Table) *table.Table {
	t.Helper()
	if err := tb.Compile(feel.NewCache()); err != nil {
		t.Fatalf("compiling %s: %v", tb.Name, err)
	}
	return tb
}

func TestUniqueSingleMatch(t *testing.T) {
	is := is.New(t)
	tb := compiled(t, discountTable(table.Unique, table.AggList))

	cases := []struct {
		status string
		amount int
		want   float64
	}{
		{"Gold", 1200, 0.15},
		{"Gold", 1000, 0.10},
		{"Silver", 600, 0.08},
		{"Silver", 500, 0.05},
		{"Bronze", 301, 0.03},
		{"Bronze", 10, 0.01},
	}
	for _, c := range cases {
		res, err := tb.Evaluate(order(t, c.status, c.amount))
		is.NoErr(err)
		is.Equal(len(res.Matched), 1)
		is.True(value.Equal(res.Value(), value.Float(c.want)))
	}
}

func TestUniqueMultipleMatch(t *testing.T) {
	is := is.New(t)
	tb := discountTable(table.Unique, table.AggList)
	tb.Rules = append(tb.Rules, table.Rule{Inputs: []string{`"Gold"`, "-"}, Outputs: []string{"0.20"}})
	compiled(t, tb)

	_, err := tb.Evaluate(order(t, "Gold", 1200))
	var mm *table.MultipleMatchError
	is.True(errors.As(err, &mm))
	is.Equal(mm.Rules, []int{0, 6})
	is.Equal(mm.Table, "Discount")
	is.True(strings.Contains(err.Error(), "rules 1, 7"))
}

func TestUniqueCollapsesIdenticalRows(t *testing.T) {
	is := is.New(t)
	tb := discountTable(table.Unique, table.AggList)
	tb.Rules = append(tb.Rules, table.Rule{Inputs: []string{`"Gold"`, ">= 1100"}, Outputs: []string{"0.150"}})
	compiled(t, tb)

	res, err := tb.Evaluate(order(t, "Gold", 1200))
	is.NoErr(err)
	is.Equal(res.Matched, []int{0, 6})
	is.Equal(len(res.Rows), 1)
	is.True(value.Equal(res.Value(), value.Float(0.15)))
}

func TestNoMatch(t *testing.T) {
	is := is.New(t)

	for _, h := range []table.HitPolicy{table.Unique, table.Any, table.First, table.Priority} {
		tb := compiled(t, discountTable(h, table.AggList))
		res, err := tb.Evaluate(order(t, "Platinum", 5000))
		is.NoErr(err)
		is.Equal(len(res.Matched), 0)
		is.Equal(len(res.Rows), 1)
		is.True(res.Value().IsNull())
	}

	cases := map[table.Aggregation]value.Value{
		table.AggSum:   value.Int(0),
		table.AggCount: value.Int(0),
		table.AggMin:   value.Null(),
		table.AggMax:   value.Null(),
		table.AggList:  value.List(),
	}
	for agg, want := range cases {
		tb := compiled(t, discountTable(table.Collect, agg))
		res, err := tb.Evaluate(order(t, "Platinum", 5000))
		is.NoErr(err)
		if !value.Equal(res.Value(), want) {
			t.Errorf("collect %s: wanted %s, got %s", agg, want, res.Value())
		}
	}
}

func TestCollectSum(t *testing.T) {
	is := is.New(t)
	tb := discountTable(table.Collect, table.AggSum)
	tb.Rules = tb.Rules[:2]
	compiled(t, tb)

	res, err := tb.Evaluate(order(t, "Gold", 1200))
	is.NoErr(err)
	is.Equal(res.Matched, []int{0})
	is.True(value.Equal(res.Value(), value.Float(0.15)))
}

func TestCollectAggregations(t *testing.T) {
	is := is.New(t)

	tb := &table.Table{
		Name:      "Fees",
		HitPolicy: table.Collect,
		Inputs:    []table.Input{{Expression: "Amount"}},
		Outputs:   []table.Output{{Name: "Fee"}},
		Rules: []table.Rule{
			{Inputs: []string{"> 0"}, Outputs: []string{"1.5"}},
			{Inputs: []string{"> 100"}, Outputs: []string{"2.25"}},
			{Inputs: []string{"> 1000"}, Outputs: []string{"10"}},
			{Inputs: []string{"-"}, Outputs: []string{"-"}},
		},
	}
	ctx, _ := value.ContextOf(map[string]any{"Amount": 500})

	cases := map[table.Aggregation]value.Value{
		table.AggSum:   value.Float(3.75),
		table.AggMin:   value.Float(1.5),
		table.AggMax:   value.Float(2.25),
		table.AggCount: value.Int(3),
		table.AggList:  value.List(value.Float(1.5), value.Float(2.25), value.Null()),
	}
	for agg, want := range cases {
		tb.Aggregation = agg
		compiled(t, tb)
		res, err := tb.Evaluate(ctx)
		is.NoErr(err)
		if !value.Equal(res.Value(), want) {
			t.Errorf("%s: wanted %s, got %s", agg, want, res.Value())
		}
	}
}

func TestAggregationTypeError(t *testing.T) {
	is := is.New(t)

	tb := &table.Table{
		Name:        "Labels",
		HitPolicy:   table.Collect,
		Aggregation: table.AggSum,
		Inputs:      []table.Input{{Expression: "Amount"}},
		Outputs:     []table.Output{{Name: "Label"}},
		Rules: []table.Rule{
			{Inputs: []string{"> 0"}, Outputs: []string{"1"}},
			{Inputs: []string{"> 0"}, Outputs: []string{`"positive"`}},
		},
	}
	compiled(t, tb)
	ctx, _ := value.ContextOf(map[string]any{"Amount": 5})

	_, err := tb.Evaluate(ctx)
	var ae *table.AggregationTypeError
	is.True(errors.As(err, &ae))
	is.Equal(ae.Rule, 1)
	is.Equal(ae.Aggregation, table.AggSum)

	tb.Outputs = append(tb.Outputs, table.Output{Name: "Other"})
	for i := range tb.Rules {
		tb.Rules[i].Outputs = append(tb.Rules[i].Outputs, "1")
	}
	compiled(t, tb)
	_, err = tb.Evaluate(ctx)
	is.True(errors.As(err, &ae))
	is.Equal(ae.Rule, -1)
}

func riskTable(h table.HitPolicy) *table.Table {
	return &table.Table{
		Name:      "Risk",
		HitPolicy: h,
		Inputs:    []table.Input{{Expression: "Score"}},
		Outputs:   []table.Output{{Name: "Risk", AllowedValues: []string{`"High"`, `"Medium"`, `"Low"`}}},
		Rules: []table.Rule{
			{Inputs: []string{"< 50"}, Outputs: []string{`"Low"`}},
			{Inputs: []string{"> 10"}, Outputs: []string{`"Medium"`}},
			{Inputs: []string{"> 20"}, Outputs: []string{`"High"`}},
		},
	}
}

func TestPriority(t *testing.T) {
	is := is.New(t)
	tb := riskTable(table.Priority)
	tb.Rules = tb.Rules[1:]
	compiled(t, tb)

	ctx, _ := value.ContextOf(map[string]any{"Score": 30})
	res, err := tb.Evaluate(ctx)
	is.NoErr(err)
	is.Equal(res.Matched, []int{0, 1})
	is.True(value.Equal(res.Value(), value.String("High")))
}

func TestPriorityUnlistedValuesRankLast(t *testing.T) {
	is := is.New(t)
	tb := riskTable(table.Priority)
	tb.Rules[0].Outputs[0] = `"Unknown"`
	tb.Rules = tb.Rules[:2]
	compiled(t, tb)

	ctx, _ := value.ContextOf(map[string]any{"Score": 30})
	res, err := tb.Evaluate(ctx)
	is.NoErr(err)
	is.True(value.Equal(res.Value(), value.String("Medium")))
}

func TestOutputOrder(t *testing.T) {
	is := is.New(t)
	tb := compiled(t, riskTable(table.OutputOrder))

	ctx, _ := value.ContextOf(map[string]any{"Score": 30})
	res, err := tb.Evaluate(ctx)
	is.NoErr(err)
	is.Equal(res.Matched, []int{0, 1, 2})
	is.True(value.Equal(res.Value(), value.List(value.String("High"), value.String("Medium"), value.String("Low"))))
}

func TestRuleOrderAndFirst(t *testing.T) {
	is := is.New(t)
	ctx, _ := value.ContextOf(map[string]any{"Score": 30})

	res, err := compiled(t, riskTable(table.RuleOrder)).Evaluate(ctx)
	is.NoErr(err)
	is.True(value.Equal(res.Value(), value.List(value.String("Low"), value.String("Medium"), value.String("High"))))

	res, err = compiled(t, riskTable(table.First)).Evaluate(ctx)
	is.NoErr(err)
	is.True(value.Equal(res.Value(), value.String("Low")))
}

func TestAnyConflict(t *testing.T) {
	is := is.New(t)
	ctx, _ := value.ContextOf(map[string]any{"Score": 30})

	_, err := compiled(t, riskTable(table.Any)).Evaluate(ctx)
	var ce *table.ConflictingOutputsError
	is.True(errors.As(err, &ce))
	is.Equal(ce.Rules, []int{0, 1, 2})

	ctx, _ = value.ContextOf(map[string]any{"Score": 5})
	res, err := compiled(t, riskTable(table.Any)).Evaluate(ctx)
	is.NoErr(err)
	is.True(value.Equal(res.Value(), value.String("Low")))
}

func TestMultipleOutputs(t *testing.T) {
	is := is.New(t)

	tb := compiled(t, &table.Table{
		Name:      "Shipping",
		HitPolicy: table.First,
		Inputs:    []table.Input{{Expression: "Weight"}},
		Outputs:   []table.Output{{Name: "Carrier"}, {Name: "Cost"}},
		Rules: []table.Rule{
			{Inputs: []string{"[0..10]"}, Outputs: []string{`"Post"`, "4.50"}},
			{Inputs: []string{"> 10"}, Outputs: []string{`"Freight"`, "40"}},
		},
	})
	ctx, _ := value.ContextOf(map[string]any{"Weight": 10})

	res, err := tb.Evaluate(ctx)
	is.NoErr(err)
	v := res.Value()
	is.Equal(v.Kind(), value.KindContext)
	carrier, ok := v.Field("Carrier")
	is.True(ok)
	is.Equal(carrier.Str(), "Post")
	is.True(strings.Contains(res.String(), "Post"))
}

func TestCompileErrors(t *testing.T) {
	is := is.New(t)

	tb := discountTable(table.Unique, table.AggSum)
	tb.Rules[1].Inputs[1] = "<= (1000"
	tb.Rules[2].Outputs = nil
	err := tb.Compile(nil)
	is.True(err != nil)
	is.True(!tb.Compiled())

	var ce *table.CellError
	is.True(errors.As(err, &ce))
	is.Equal(ce.Rule, 1)
	is.Equal(ce.Column, "Order Amount")
	var pe *feel.ParseError
	is.True(errors.As(err, &pe))

	msg := err.Error()
	is.True(strings.Contains(msg, "2nd rule, column Order Amount"))
	is.True(strings.Contains(msg, "3rd rule"))
	is.True(strings.Contains(msg, "requires the collect hit policy"))

	_, err = tb.Evaluate(order(t, "Gold", 1))
	is.True(errors.Is(err, table.ErrNotCompiled))
}

func TestEvaluationErrorIsCellError(t *testing.T) {
	is := is.New(t)
	tb := compiled(t, discountTable(table.Unique, table.AggList))

	ctx, _ := value.ContextOf(map[string]any{"Customer Status": "Gold"})
	_, err := tb.Evaluate(ctx)
	var ce *table.CellError
	is.True(errors.As(err, &ce))
	is.Equal(ce.Rule, -1)
	var ee *feel.EvaluationError
	is.True(errors.As(err, &ee))
	is.Equal(ee.Variable, "Order Amount")

	ctx, _ = value.ContextOf(map[string]any{"Customer Status": "Gold", "Order Amount": "lots"})
	_, err = tb.Evaluate(ctx)
	is.True(errors.As(err, &ce))
	is.Equal(ce.Rule, 0)
	is.Equal(ce.Text, "> 1000")
}

func TestVariablesAndClone(t *testing.T) {
	is := is.New(t)

	tb := discountTable(table.Unique, table.AggList)
	tb.Rules[0].Inputs[1] = "> Threshold"
	is.Equal(tb.Variables(), []string{"Customer Status", "Order Amount", "Threshold"})

	compiled(t, tb)
	c := tb.Clone()
	is.True(!c.Compiled())
	c.Rules[0].Inputs[0] = `"Platinum"`
	is.Equal(tb.Rules[0].Inputs[0], `"Gold"`)
}

func TestHitPolicyParsing(t *testing.T) {
	is := is.New(t)

	for in, want := range map[string]table.HitPolicy{
		"U":            table.Unique,
		"unique":       table.Unique,
		"RULE ORDER":   table.RuleOrder,
		"RULE_ORDER":   table.RuleOrder,
		"Output Order": table.OutputOrder,
		"c":            table.Collect,
	} {
		h, err := table.ParseHitPolicy(in)
		is.NoErr(err)
		is.Equal(h, want)
	}
	_, err := table.ParseHitPolicy("X")
	is.True(err != nil)

	a, err := table.ParseAggregation("sum")
	is.NoErr(err)
	is.Equal(a, table.AggSum)
	a, err = table.ParseAggregation("")
	is.NoErr(err)
	is.Equal(a, table.AggList)

	is.Equal(table.Priority.String(), "Priority (P)")
	is.Equal(table.First.Description(), "First matching rule determines the output")
}

func TestString(t *testing.T) {
	is := is.New(t)

	tb := discountTable(table.Collect, table.AggSum)
	tb.Rules[0].Annotation = "best customers"
	s := tb.String()
	is.True(strings.Contains(s, "C+"))
	is.True(strings.Contains(s, "Hit Policy: Collect (C)"))
	is.True(strings.Contains(s, "best customers"))
	is.True(strings.Contains(s, "Customer Status"))
}
