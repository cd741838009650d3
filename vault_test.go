package dmn_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/value"
)

func TestVaultRequiresValidGraph(t *testing.T) {
	is := is.New(t)
	_, err := dmn.NewVault(nil)
	is.True(err != nil)

	g := dmn.NewGraph("g")
	must(t, g.AddNode(dmn.NewDecision("d", "y", nil)))
	_, err = dmn.NewVault(g)
	var errs dmn.ValidationErrors
	is.True(errors.As(err, &errs))
}

func TestVaultMutate(t *testing.T) {
	is := is.New(t)
	v, err := dmn.NewVault(discountGraph(t))
	is.NoErr(err)
	before := v.Current()
	is.True(before.Sealed())

	gold := discountTable()
	gold.Rules = append(gold.Rules, gold.Rules[0])
	gold.Rules[2].Inputs = []string{`"Gold"`, `-`}
	gold.Rules[2].Outputs = []string{"0.15"}

	when := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	err = v.Mutate(
		dmn.SetLogic("d_discount", &dmn.DecisionTable{Table: gold}),
		dmn.Add(dmn.NewInputData("i_region", "Region")),
		dmn.LastUpdate(when),
	)
	is.NoErr(err)
	is.Equal(v.LastUpdate(), when)

	after := v.Current()
	is.True(after != before)
	is.True(after.Sealed())
	is.Equal(len(after.Nodes()), 4)
	is.Equal(len(before.Nodes()), 3)

	e := dmn.NewEngine()
	inputs := map[string]any{"CustomerStatus": "Gold", "OrderAmount": 10}

	res, err := e.Evaluate(context.Background(), after, inputs, nil)
	is.NoErr(err)
	d, _ := res.Value("Discount")
	is.True(value.Equal(d, value.Float(0.15)))

	// The old graph is unchanged
	res, err = e.Evaluate(context.Background(), before, inputs, nil)
	is.NoErr(err)
	d, _ = res.Value("Discount")
	is.True(d.IsNull())
}

func TestVaultKeepsGraphOnFailure(t *testing.T) {
	is := is.New(t)
	v, err := dmn.NewVault(discountGraph(t))
	is.NoErr(err)
	current := v.Current()
	last := v.LastUpdate()

	// The second mutation fails, so the first is not kept either
	err = v.Mutate(
		dmn.Add(dmn.NewInputData("i_region", "Region")),
		dmn.Delete("nope"),
	)
	is.True(errors.Is(err, dmn.ErrNodeNotFound))
	is.True(v.Current() == current)

	// Removing an input the table reads leaves the graph invalid
	err = v.Mutate(dmn.Delete("i_amount"))
	var errs dmn.ValidationErrors
	is.True(errors.As(err, &errs))
	is.True(v.Current() == current)
	is.Equal(v.LastUpdate(), last)
}

func TestVaultUpdate(t *testing.T) {
	is := is.New(t)
	v, err := dmn.NewVault(rateGraph(t))
	is.NoErr(err)

	err = v.Update(func(g *dmn.Graph) error {
		if err := g.AddNode(dmn.NewDecision("d_double", "Double Rate", literal("Rate"))); err != nil {
			return err
		}
		return g.AddInformationRequirement("d_rate", "d_double")
	})
	is.NoErr(err)

	res, err := dmn.NewEngine().Evaluate(context.Background(), v.Current(), map[string]any{"customer": "Gold"}, []string{"d_double"})
	is.NoErr(err)
	r, _ := res.Value("Double Rate")
	is.True(value.Equal(r, value.Float(0.1)))
	is.Equal(res.Order, []string{"d_rate", "d_double"})

	err = v.Update(func(g *dmn.Graph) error {
		return errors.New("changed my mind")
	})
	is.Equal(err.Error(), "changed my mind")
}

func TestVaultConcurrentReaders(t *testing.T) {
	is := is.New(t)
	v, err := dmn.NewVault(discountGraph(t))
	is.NoErr(err)
	e := dmn.NewEngine()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for k := 0; k < 20; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := e.Evaluate(context.Background(), v.Current(), map[string]any{"CustomerStatus": "Silver", "OrderAmount": 600}, nil)
				if err != nil {
					errs <- err
				}
			}
		}()
	}

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := v.Mutate(dmn.LastUpdate(time.Unix(int64(i), 0))); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		is.NoErr(err)
	}
	is.True(v.Current().Sealed())
}
