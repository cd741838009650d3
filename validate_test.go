package dmn_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/feel"
	"github.com/ezachrisen/dmn/table"
)

// validationErrors returns the validation errors of g, which must not be
// valid.
func validationErrors(t *testing.T, g *dmn.Graph) []*dmn.ValidationError {
	t.Helper()
	errs := g.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation errors")
	}
	if g.Sealed() {
		t.Fatal("invalid graph was sealed")
	}
	var out []*dmn.ValidationError
	for _, err := range errs {
		var ve *dmn.ValidationError
		if errors.As(err, &ve) {
			out = append(out, ve)
		}
	}
	return out
}

func TestCycle(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("cycle")
	must(t, g.AddNode(dmn.NewDecision("A", "a", literal("b"))))
	must(t, g.AddNode(dmn.NewDecision("B", "b", literal("a"))))
	must(t, g.AddInformationRequirement("A", "B"))
	must(t, g.AddInformationRequirement("B", "A"))

	errs := g.Validate()
	is.True(!g.Sealed())

	var ce *dmn.CycleError
	is.True(errors.As(errs, &ce))
	is.Equal(ce.Path, []string{"A", "B", "A"})
	is.Equal(ce.Error(), "requirement cycle: A -> B -> A")

	// Evaluation is refused
	_, err := dmn.NewEngine().Evaluate(context.Background(), g, nil, []string{"A"})
	is.True(errors.As(err, &ce))
}

func TestAuthorityRequirementsDoNotFormCycles(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	must(t, g.AddNode(dmn.NewKnowledgeSource("ks1", "Pricing policy")))
	must(t, g.AddNode(dmn.NewKnowledgeSource("ks2", "Board decision")))
	must(t, g.AddAuthorityRequirement("ks1", "ks2"))
	must(t, g.AddAuthorityRequirement("ks2", "ks1"))
	must(t, g.AddAuthorityRequirement("ks1", "d_discount"))
	is.Equal(len(g.Validate()), 0)
}

func TestEdgeEndpoints(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	must(t, g.AddNode(dmn.NewKnowledgeSource("ks", "Policy")))
	must(t, g.AddEdge(dmn.Edge{ID: "e1", Type: dmn.InformationRequirement, Source: "d_discount", Target: "i_status"}))
	must(t, g.AddEdge(dmn.Edge{ID: "e2", Type: dmn.KnowledgeRequirement, Source: "i_status", Target: "d_discount"}))
	must(t, g.AddEdge(dmn.Edge{ID: "e3", Type: dmn.AuthorityRequirement, Source: "d_discount", Target: "ks"}))
	must(t, g.AddEdge(dmn.Edge{ID: "e4", Type: dmn.InformationRequirement, Source: "nowhere", Target: "d_discount"}))
	must(t, g.AddEdge(dmn.Edge{ID: "e5", Type: dmn.InformationRequirement, Source: "i_status", Target: "d_discount"}))
	must(t, g.AddEdge(dmn.Edge{ID: "e6", Type: dmn.AuthorityRequirement, Source: "ks", Target: "d_discount",
		Bindings: []dmn.Binding{{Parameter: "p", Expression: "1"}}}))

	got := map[string]string{}
	for _, ve := range validationErrors(t, g) {
		got[ve.EdgeID] = ve.Reason
	}
	is.True(strings.Contains(got["e1"], "cannot connect a decision to a input data"))
	is.True(strings.Contains(got["e2"], "cannot connect a input data to a decision"))
	is.True(strings.Contains(got["e3"], "cannot connect a decision to a knowledge source"))
	is.Equal(got["e4"], `unknown source "nowhere"`)
	is.Equal(got["e5"], "duplicate information requirement")
	is.Equal(got["e6"], "only knowledge requirements carry bindings")
}

func TestUnresolvedNameSuggestsCloseName(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	must(t, g.AddNode(dmn.NewDecision("d_total", "Total", literal("Discont"))))
	must(t, g.AddInformationRequirement("d_discount", "d_total"))

	errs := validationErrors(t, g)
	is.Equal(len(errs), 1)
	is.Equal(errs[0].NodeID, "d_total")
	is.Equal(errs[0].Reason, `unresolved name "Discont"`)
	is.Equal(errs[0].Suggestion, `did you mean "Discount"?`)
	is.True(strings.Contains(errs[0].Error(), "(did you mean"))
}

// Connecting a value is what brings it into scope: an input data node of
// the same name is not enough without the requirement.
func TestNamesNeedRequirements(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("g")
	must(t, g.AddNode(dmn.NewInputData("i", "x")))
	must(t, g.AddNode(dmn.NewDecision("d", "y", literal("x"))))

	errs := validationErrors(t, g)
	is.Equal(len(errs), 1)
	is.Equal(errs[0].Suggestion, "no names are in scope")
}

func TestNodeProblems(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("g")
	must(t, g.AddNode(dmn.NewInputData("i1", "x")))
	must(t, g.AddNode(dmn.NewInputData("i2", "x")))
	must(t, g.AddNode(dmn.NewDecision("d1", "y", nil)))
	must(t, g.AddNode(dmn.NewDecision("d2", "", literal("1"))))
	must(t, g.AddNode(dmn.NewBKM("b1", "f", []string{"a", "a"}, literal("a"))))
	must(t, g.AddNode(dmn.NewDecision("d3", "z", &dmn.DecisionTable{})))
	must(t, g.AddNode(dmn.NewDecision("d4", "w", &dmn.LiteralExpression{Text: "1", Language: "javascript"})))

	byNode := map[string][]string{}
	for _, ve := range validationErrors(t, g) {
		byNode[ve.NodeID] = append(byNode[ve.NodeID], ve.Reason)
	}
	is.Equal(byNode["i2"], []string{`name "x" is already used by node i1`})
	is.Equal(byNode["d1"], []string{"decision has no logic"})
	is.Equal(byNode["d2"], []string{"name is required"})
	is.Equal(byNode["b1"], []string{`duplicate parameter "a"`})
	is.Equal(byNode["d3"], []string{"decision table is empty"})
	is.Equal(byNode["d4"], []string{`unknown expression language "javascript"`})
}

func TestParseErrorsAreReported(t *testing.T) {
	is := is.New(t)
	tb := discountTable()
	tb.Rules[1].Inputs[1] = "<= (500"
	g := dmn.NewGraph("g")
	must(t, g.AddNode(dmn.NewInputData("i_status", "CustomerStatus")))
	must(t, g.AddNode(dmn.NewInputData("i_amount", "OrderAmount")))
	must(t, g.AddNode(dmn.NewDecision("d", "Discount", &dmn.DecisionTable{Table: tb})))
	must(t, g.AddNode(dmn.NewDecision("d2", "Other", literal("[1.."))))
	must(t, g.AddInformationRequirement("i_status", "d"))
	must(t, g.AddInformationRequirement("i_amount", "d"))

	errs := validationErrors(t, g)
	is.Equal(len(errs), 2)

	var ce *table.CellError
	is.True(errors.As(errs[0], &ce))
	is.Equal(ce.Rule, 1)
	is.Equal(ce.Column, "Order Amount")

	var pe *feel.ParseError
	is.True(errors.As(errs[1], &pe))
	is.Equal(errs[1].NodeID, "d2")
}

func TestBindings(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("g")
	must(t, g.AddNode(dmn.NewInputData("i", "x")))
	must(t, g.AddNode(dmn.NewBKM("b", "f", []string{"p", "q"}, literal("p"))))
	must(t, g.AddNode(dmn.NewDecision("d", "y", literal("f"))))
	must(t, g.AddInformationRequirement("i", "d"))
	must(t, g.AddEdge(dmn.Edge{ID: "k", Type: dmn.KnowledgeRequirement, Source: "b", Target: "d", Bindings: []dmn.Binding{
		{Parameter: "p", Expression: "x"},
		{Parameter: "r", Expression: "1"},
		{Parameter: "p", Expression: "2"},
	}}))

	var reasons []string
	for _, ve := range validationErrors(t, g) {
		is.Equal(ve.EdgeID, "k")
		reasons = append(reasons, ve.Reason)
	}
	is.Equal(reasons, []string{
		`f has no parameter "r"`,
		`parameter "p" is bound twice`,
		`parameter "q" of f is not bound`,
	})
}

func TestBindingExpressionsResolveInCallerScope(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("rates")
	must(t, g.AddNode(dmn.NewInputData("i_customer", "customer")))
	must(t, g.AddNode(dmn.NewInputData("i_other", "other")))
	must(t, g.AddNode(dmn.NewBKM("b_rate", "rate", []string{"status"}, literal("status"))))
	must(t, g.AddNode(dmn.NewDecision("d_rate", "Rate", literal("rate"))))
	must(t, g.AddInformationRequirement("i_customer", "d_rate"))
	// The decision does not require "other", so the argument cannot read it
	must(t, g.AddKnowledgeRequirement("b_rate", "d_rate", dmn.Binding{Parameter: "status", Expression: "other"}))

	errs := validationErrors(t, g)
	is.Equal(len(errs), 1)
	is.Equal(errs[0].EdgeID, "b_rate->d_rate")
	is.Equal(errs[0].Reason, `binding "status": unresolved name "other"`)
}

// Arguments are evaluated before the decision's models have produced
// results, so an argument cannot read another model's result, whichever
// order the requirements were added in.
func TestBindingsCannotReadModelResults(t *testing.T) {
	for _, gFirst := range []bool{false, true} {
		is := is.New(t)
		g := dmn.NewGraph("g")
		must(t, g.AddNode(dmn.NewInputData("i", "x")))
		must(t, g.AddNode(dmn.NewBKM("b1", "f", []string{"a"}, literal("a"))))
		must(t, g.AddNode(dmn.NewBKM("b2", "g", []string{"p"}, literal("p"))))
		must(t, g.AddNode(dmn.NewDecision("d", "y", literal("f"))))
		must(t, g.AddInformationRequirement("i", "d"))
		usesG := dmn.Binding{Parameter: "a", Expression: "g"}
		usesX := dmn.Binding{Parameter: "p", Expression: "x"}
		if gFirst {
			must(t, g.AddKnowledgeRequirement("b2", "d", usesX))
			must(t, g.AddKnowledgeRequirement("b1", "d", usesG))
		} else {
			must(t, g.AddKnowledgeRequirement("b1", "d", usesG))
			must(t, g.AddKnowledgeRequirement("b2", "d", usesX))
		}

		errs := validationErrors(t, g)
		is.Equal(len(errs), 1)
		is.Equal(errs[0].EdgeID, "b1->d")
		is.Equal(errs[0].Reason, `binding "a": unresolved name "g"`)
	}
}

func TestServiceReferences(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	must(t, g.AddDecisionService(dmn.DecisionService{
		ID:              "s",
		OutputDecisions: []string{"d_discount", "i_status"},
		InputData:       []string{"missing"},
	}))
	must(t, g.AddDecisionService(dmn.DecisionService{ID: "empty"}))
	must(t, g.AddDecisionService(dmn.DecisionService{ID: "d_discount", OutputDecisions: []string{"d_discount"}}))

	var reasons []string
	for _, ve := range validationErrors(t, g) {
		reasons = append(reasons, ve.NodeID+": "+ve.Error())
	}
	is.Equal(reasons, []string{
		`s: node s: output decision "i_status" is a input data, not a decision`,
		`s: node s: input data "missing": node not found`,
		`empty: node empty: decision service has no output decisions`,
		`d_discount: node d_discount: decision service id is also a node id: duplicate id`,
	})
}

func TestValidationErrorsMessage(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("g")
	must(t, g.AddNode(dmn.NewDecision("d1", "y", nil)))
	must(t, g.AddNode(dmn.NewDecision("d2", "z", nil)))

	errs := g.Validate()
	is.Equal(errs.Error(), "found 2 validation error(s):\n  1. node d1: decision has no logic\n  2. node d2: decision has no logic")
	is.True(errs.Err() != nil)
	is.NoErr(dmn.ValidationErrors(nil).Err())
}
