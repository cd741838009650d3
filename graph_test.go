package dmn_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/matryer/is"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/table"
	"github.com/ezachrisen/dmn/value"
)

func TestAddNode(t *testing.T) {
	is := is.New(t)
	g := dmn.NewGraph("g")

	is.NoErr(g.AddNode(dmn.NewInputData("a", "A")))
	is.True(errors.Is(g.AddNode(dmn.NewInputData("a", "Other")), dmn.ErrDuplicateID))
	is.True(g.AddNode(dmn.NewInputData(" ", "Blank")) != nil)
	is.True(g.AddNode(nil) != nil)

	n, ok := g.Node("a")
	is.True(ok)
	is.Equal(n.Name, "A")
	is.Equal(n.Kind, dmn.InputData)

	// The graph keeps its own copy
	n.Name = "changed"
	n2, _ := g.Node("a")
	is.Equal(n2.Name, "A")

	_, ok = g.Node("missing")
	is.True(!ok)
}

func TestNodesAndEdgesKeepInsertionOrder(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	is.Equal(ids, []string{"i_status", "i_amount", "d_discount"})

	edges := g.Edges()
	is.Equal(len(edges), 2)
	is.Equal(edges[0].Source, "i_status")
	is.Equal(edges[1].Type, dmn.InformationRequirement)
}

func TestSealedGraphRejectsChanges(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	is.Equal(len(g.Validate()), 0)
	is.True(g.Sealed())

	is.True(errors.Is(g.AddNode(dmn.NewInputData("x", "X")), dmn.ErrSealed))
	is.True(errors.Is(g.AddInformationRequirement("i_status", "d_discount"), dmn.ErrSealed))
	is.True(errors.Is(g.SetLogic("d_discount", literal("0")), dmn.ErrSealed))
	is.True(errors.Is(g.Remove("i_status"), dmn.ErrSealed))
	is.True(errors.Is(g.ReplaceNode(dmn.NewInputData("i_status", "S")), dmn.ErrSealed))
	is.True(errors.Is(g.AddDecisionService(dmn.DecisionService{ID: "s"}), dmn.ErrSealed))
}

func TestSetLogic(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)

	is.NoErr(g.SetLogic("d_discount", literal("0.5")))
	n, _ := g.Node("d_discount")
	is.Equal(n.Logic.LogicKind(), "literalExpression")

	is.True(errors.Is(g.SetLogic("nope", literal("1")), dmn.ErrNodeNotFound))
	is.True(g.SetLogic("i_status", literal("1")) != nil)
}

func TestCloneIsIndependent(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	is.Equal(len(g.Validate()), 0)

	c := g.Clone()
	is.True(!c.Sealed())
	is.NoErr(c.AddNode(dmn.NewInputData("i_region", "Region")))
	is.NoErr(c.AddInformationRequirement("i_region", "d_discount"))

	// Changing the table of the copy leaves the original alone
	tb := discountTable()
	tb.Rules[0].Outputs[0] = "0.5"
	is.NoErr(c.SetLogic("d_discount", &dmn.DecisionTable{Table: tb}))

	is.Equal(len(g.Nodes()), 3)
	is.Equal(len(g.Edges()), 2)
	orig, _ := g.Node("d_discount")
	is.Equal(orig.Logic.(*dmn.DecisionTable).Table.Rules[0].Outputs[0], "0.08")
	is.True(g.Sealed())
}

func TestNodeLogicIsCopied(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)

	tb := discountTable()
	is.NoErr(g.SetLogic("d_discount", &dmn.DecisionTable{Table: tb}))
	is.Equal(len(g.Validate()), 0)

	// Neither the table passed in nor the one handed out belongs to the graph
	tb.Rules = nil
	n, _ := g.Node("d_discount")
	n.Logic.(*dmn.DecisionTable).Table.Rules[0].Outputs[0] = "0.5"
	for _, n := range g.Nodes() {
		if n.ID == "d_discount" {
			n.Logic.(*dmn.DecisionTable).Table.Rules = nil
		}
	}

	res, err := dmn.NewEngine().Evaluate(context.Background(), g, map[string]any{"CustomerStatus": "Silver", "OrderAmount": 600}, nil)
	is.NoErr(err)
	v, _ := res.Value("Discount")
	is.True(value.Equal(v, value.Float(0.08)))
}

// One table given to two graphs: validating the second graph does not
// disturb evaluations of the first.
func TestSharedTable(t *testing.T) {
	is := is.New(t)
	tb := discountTable()
	g1 := discountGraph(t)
	g2 := discountGraph(t)
	is.NoErr(g1.SetLogic("d_discount", &dmn.DecisionTable{Table: tb}))
	is.NoErr(g2.SetLogic("d_discount", &dmn.DecisionTable{Table: tb}))
	is.Equal(len(g1.Validate()), 0)

	e := dmn.NewEngine()
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res, err := e.Evaluate(context.Background(), g1, map[string]any{"CustomerStatus": "Silver", "OrderAmount": 600}, nil)
				if err != nil {
					errs <- err
					return
				}
				if v, _ := res.Value("Discount"); !value.Equal(v, value.Float(0.08)) {
					errs <- fmt.Errorf("got %v, want 0.08", v)
					return
				}
			}
		}()
	}
	for j := 0; j < 20; j++ {
		g2.Clone().Validate()
	}
	is.Equal(len(g2.Validate()), 0)
	wg.Wait()
	close(errs)
	for err := range errs {
		is.NoErr(err)
	}

	// Compiling the caller's table again changes neither graph
	tb.Rules = nil
	is.NoErr(tb.Compile(nil))
	res, err := e.Evaluate(context.Background(), g1, map[string]any{"CustomerStatus": "Silver", "OrderAmount": 600}, nil)
	is.NoErr(err)
	v, _ := res.Value("Discount")
	is.True(value.Equal(v, value.Float(0.08)))
}

func TestRemove(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)

	is.NoErr(g.Remove("i_amount"))
	is.Equal(len(g.Nodes()), 2)
	is.Equal(len(g.Edges()), 1)
	is.True(errors.Is(g.Remove("i_amount"), dmn.ErrNodeNotFound))

	// The table still reads OrderAmount, which no longer resolves
	errs := g.Validate()
	is.Equal(len(errs), 1)
	is.True(!g.Sealed())
}

func TestDecisionServices(t *testing.T) {
	is := is.New(t)
	g := discountGraph(t)
	s := dmn.DecisionService{ID: "s1", Name: "pricing", OutputDecisions: []string{"d_discount"}, InputData: []string{"i_status", "i_amount"}}
	is.NoErr(g.AddDecisionService(s))
	is.True(errors.Is(g.AddDecisionService(s), dmn.ErrDuplicateID))
	is.True(g.AddDecisionService(dmn.DecisionService{}) != nil)

	got, ok := g.Service("s1")
	is.True(ok)
	is.Equal(got.Name, "pricing")
	is.Equal(len(g.Services()), 1)

	_, ok = g.Service("s2")
	is.True(!ok)
}

func TestKindStrings(t *testing.T) {
	is := is.New(t)
	is.Equal(dmn.BusinessKnowledgeModel.String(), "business knowledge model")
	is.Equal(dmn.KnowledgeRequirement.String(), "knowledge requirement")
	is.Equal((&dmn.DecisionTable{Table: &table.Table{}}).LogicKind(), "decisionTable")
}
