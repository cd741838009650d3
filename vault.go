package dmn

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Vault holds a validated graph that can be replaced while evaluations
// are running. Readers call Current and evaluate the graph they get;
// writers change a copy which, once it validates, replaces the current
// graph in a single atomic step. Evaluations already running on the
// previous graph are not affected.
type Vault struct {
	graph      atomic.Pointer[Graph]
	lastUpdate atomic.Pointer[time.Time]

	// serializes writers
	mu sync.Mutex
}

// NewVault validates g and stores it.
func NewVault(g *Graph) (*Vault, error) {
	if g == nil {
		return nil, fmt.Errorf("attempt to create vault with nil graph")
	}
	if err := g.Validate().Err(); err != nil {
		return nil, fmt.Errorf("validating initial graph for the vault: %w", err)
	}
	v := &Vault{}
	v.graph.Store(g)
	now := time.Now()
	v.lastUpdate.Store(&now)
	return v, nil
}

// Current returns the current sealed graph.
func (v *Vault) Current() *Graph {
	return v.graph.Load()
}

// LastUpdate returns the time of the last change, or the time set by the
// LastUpdate mutation.
func (v *Vault) LastUpdate() time.Time {
	return *v.lastUpdate.Load()
}

// Update applies fn to a copy of the current graph, validates the copy and
// makes it current. If fn or validation fails, the current graph is kept.
func (v *Vault) Update(fn func(g *Graph) error) error {
	return v.Mutate(func(m *mutation) error {
		return fn(m.g)
	})
}

// Mutate applies the mutations, in order, to a copy of the current graph.
// All mutations take effect together or not at all.
func (v *Vault) Mutate(mutations ...Mutation) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &mutation{g: v.graph.Load().Clone()}
	for _, apply := range mutations {
		if err := apply(m); err != nil {
			return err
		}
	}
	if err := m.g.Validate().Err(); err != nil {
		return fmt.Errorf("validating updated graph: %w", err)
	}

	v.graph.Store(m.g)
	t := m.lastUpdate
	if t.IsZero() {
		t = time.Now()
	}
	v.lastUpdate.Store(&t)
	return nil
}

type mutation struct {
	g          *Graph
	lastUpdate time.Time
}

// A Mutation is a change applied by Vault.Mutate.
type Mutation func(m *mutation) error

// Add adds n to the graph, with edges.
func Add(n *Node, edges ...Edge) Mutation {
	return func(m *mutation) error {
		if err := m.g.AddNode(n); err != nil {
			return err
		}
		for _, e := range edges {
			if err := m.g.AddEdge(e); err != nil {
				return err
			}
		}
		return nil
	}
}

// Replace replaces the node with n.ID by n. Edges are kept.
func Replace(n *Node) Mutation {
	return func(m *mutation) error {
		return m.g.ReplaceNode(n)
	}
}

// Delete removes the node with id and its edges.
func Delete(id string) Mutation {
	return func(m *mutation) error {
		return m.g.Remove(id)
	}
}

// Connect adds an edge.
func Connect(e Edge) Mutation {
	return func(m *mutation) error {
		return m.g.AddEdge(e)
	}
}

// SetLogic replaces the logic of a decision or model.
func SetLogic(id string, l Logic) Mutation {
	return func(m *mutation) error {
		return m.g.SetLogic(id, l)
	}
}

// LastUpdate sets the time reported by Vault.LastUpdate after the change.
func LastUpdate(t time.Time) Mutation {
	return func(m *mutation) error {
		m.lastUpdate = t
		return nil
	}
}
