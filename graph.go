package dmn

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ezachrisen/dmn/evaluator"
	"github.com/ezachrisen/dmn/feel"
	"github.com/ezachrisen/dmn/table"
)

// NodeKind identifies the kind of a node in the graph.
type NodeKind int

const (
	InputData NodeKind = iota
	Decision
	BusinessKnowledgeModel
	KnowledgeSource
)

func (k NodeKind) String() string {
	switch k {
	case InputData:
		return "input data"
	case Decision:
		return "decision"
	case BusinessKnowledgeModel:
		return "business knowledge model"
	case KnowledgeSource:
		return "knowledge source"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// A Node is an element of a decision requirements graph.
//
// The value of an input data node is supplied by the caller, under the
// node's Name. A decision computes a value with its Logic and makes it
// available to downstream decisions under its Name. A business knowledge
// model holds reusable logic that is only evaluated when a decision or
// another model invokes it, with its Parameters bound to arguments.
// A knowledge source records where authority for a decision comes from and
// takes no part in evaluation.
type Node struct {
	// Unique identifier (required)
	ID string

	// The name under which the node's value is bound during evaluation.
	Name string

	Description string
	Kind        NodeKind

	// Decisions and business knowledge models only.
	Logic Logic

	// Business knowledge models only.
	Parameters []string

	// Optional type of the node's value, such as "number".
	TypeRef string

	// Knowledge sources only.
	Owner    string
	Location string
}

// NewInputData returns an input data node.
func NewInputData(id, name string) *Node {
	return &Node{ID: id, Name: name, Kind: InputData}
}

// NewDecision returns a decision node computed by logic.
func NewDecision(id, name string, logic Logic) *Node {
	return &Node{ID: id, Name: name, Kind: Decision, Logic: logic}
}

// NewBKM returns a business knowledge model with the given parameters.
func NewBKM(id, name string, params []string, logic Logic) *Node {
	return &Node{ID: id, Name: name, Kind: BusinessKnowledgeModel, Parameters: params, Logic: logic}
}

// NewKnowledgeSource returns a knowledge source node.
func NewKnowledgeSource(id, name string) *Node {
	return &Node{ID: id, Name: name, Kind: KnowledgeSource}
}

func (n *Node) clone() *Node {
	c := *n
	c.Parameters = slices.Clone(n.Parameters)
	if n.Logic != nil {
		c.Logic = n.Logic.clone()
	}
	return &c
}

// Logic is the value logic of a decision or business knowledge model:
// either a *DecisionTable or a *LiteralExpression.
type Logic interface {
	// LogicKind names the kind of logic, for logs and metrics.
	LogicKind() string
	clone() Logic
}

// DecisionTable is logic defined by a decision table.
type DecisionTable struct {
	Table *table.Table
}

// LiteralExpression is logic defined by a single expression.
// Language selects the expression language; empty means the built-in
// language, "cel" selects CEL when the graph was created with it.
type LiteralExpression struct {
	Text     string
	Language string
}

func (*DecisionTable) LogicKind() string     { return "decisionTable" }
func (*LiteralExpression) LogicKind() string { return "literalExpression" }

func (d *DecisionTable) clone() Logic {
	if d.Table == nil {
		return &DecisionTable{}
	}
	return &DecisionTable{Table: d.Table.Clone()}
}

func (l *LiteralExpression) clone() Logic {
	c := *l
	return &c
}

// RequirementType is the type of an edge.
type RequirementType int

const (
	// InformationRequirement: input data or decision -> decision.
	InformationRequirement RequirementType = iota
	// KnowledgeRequirement: business knowledge model -> decision or
	// business knowledge model.
	KnowledgeRequirement
	// AuthorityRequirement: knowledge source -> decision, business knowledge
	// model or knowledge source. It carries no data.
	AuthorityRequirement
)

func (r RequirementType) String() string {
	switch r {
	case InformationRequirement:
		return "information requirement"
	case KnowledgeRequirement:
		return "knowledge requirement"
	case AuthorityRequirement:
		return "authority requirement"
	}
	return fmt.Sprintf("RequirementType(%d)", int(r))
}

// Edge is a requirement: Target requires Source.
type Edge struct {
	ID     string
	Type   RequirementType
	Source string
	Target string

	// Knowledge requirements only: the arguments of the invocation, one per
	// parameter of the source model. Each expression is evaluated in the
	// scope of the target.
	Bindings []Binding
}

// Binding binds a parameter of a business knowledge model to an expression.
type Binding struct {
	Parameter  string
	Expression string
}

func (e Edge) label() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "->" + e.Target
}

// DecisionService is a named part of the graph with a declared boundary.
// Evaluating a service computes its output decisions from its input data
// and input decisions, both supplied by the caller.
type DecisionService struct {
	ID                    string
	Name                  string
	OutputDecisions       []string
	EncapsulatedDecisions []string
	InputDecisions        []string
	InputData             []string
}

func (s DecisionService) clone() DecisionService {
	s.OutputDecisions = slices.Clone(s.OutputDecisions)
	s.EncapsulatedDecisions = slices.Clone(s.EncapsulatedDecisions)
	s.InputDecisions = slices.Clone(s.InputDecisions)
	s.InputData = slices.Clone(s.InputData)
	return s
}

// Graph is a decision requirements graph: an arena of nodes addressed by
// id, and a list of typed edges between them.
//
// A graph is built with AddNode, AddEdge, SetLogic and AddDecisionService.
// Validate checks the graph and compiles all expressions; once validation
// succeeds the graph is sealed and can be evaluated concurrently, but no
// longer modified. Clone returns a modifiable copy.
type Graph struct {
	Name string

	mu       sync.RWMutex
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	services []DecisionService

	cache     *feel.Cache
	languages map[string]evaluator.Compiler

	sealed atomic.Bool

	// Set by Validate.
	programs map[string]evaluator.Program
	bindings [][]evaluator.Program
	position map[string]int
	scopes   map[string][]string
	incoming map[string][]int
}

// GraphOption configures a graph.
type GraphOption func(g *Graph)

// WithLanguage registers an expression language for literal expressions.
func WithLanguage(name string, c evaluator.Compiler) GraphOption {
	return func(g *Graph) {
		g.languages[strings.ToLower(name)] = c
	}
}

// WithCache sets the parse cache used for expressions of the built-in
// language. Graphs may share a cache.
func WithCache(c *feel.Cache) GraphOption {
	return func(g *Graph) {
		g.cache = c
	}
}

// NewGraph returns an empty graph. The built-in expression language is
// registered under "" and "feel".
func NewGraph(name string, opts ...GraphOption) *Graph {
	g := &Graph{
		Name:      name,
		nodes:     map[string]*Node{},
		cache:     feel.NewCache(),
		languages: map[string]evaluator.Compiler{},
	}
	for _, opt := range opts {
		opt(g)
	}
	builtin := feel.Language{Cache: g.cache}
	for _, name := range []string{"", "feel"} {
		if _, ok := g.languages[name]; !ok {
			g.languages[name] = builtin
		}
	}
	return g
}

// Sealed reports whether the graph has been validated.
func (g *Graph) Sealed() bool {
	return g.sealed.Load()
}

// Cache returns the parse cache of the graph.
func (g *Graph) Cache() *feel.Cache {
	return g.cache
}

// AddNode adds a copy of n to the graph.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("attempt to add nil node")
	}
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("node %q: id is required", n.Name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return fmt.Errorf("adding node %s: %w", n.ID, ErrSealed)
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("adding node %s: %w", n.ID, ErrDuplicateID)
	}
	g.nodes[n.ID] = n.clone()
	g.order = append(g.order, n.ID)
	return nil
}

// ReplaceNode replaces the node with the same id as n, keeping its edges.
func (g *Graph) ReplaceNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("attempt to replace with nil node")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return fmt.Errorf("replacing node %s: %w", n.ID, ErrSealed)
	}
	if _, ok := g.nodes[n.ID]; !ok {
		return fmt.Errorf("replacing node %s: %w", n.ID, ErrNodeNotFound)
	}
	g.nodes[n.ID] = n.clone()
	return nil
}

// AddEdge adds an edge. Endpoints are checked by Validate.
func (g *Graph) AddEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return fmt.Errorf("adding edge %s: %w", e.label(), ErrSealed)
	}
	e.Bindings = slices.Clone(e.Bindings)
	g.edges = append(g.edges, e)
	return nil
}

// AddInformationRequirement records that target requires the value of source.
func (g *Graph) AddInformationRequirement(source, target string) error {
	return g.AddEdge(Edge{Type: InformationRequirement, Source: source, Target: target})
}

// AddKnowledgeRequirement records that target invokes the business
// knowledge model source, with the given arguments.
func (g *Graph) AddKnowledgeRequirement(source, target string, bindings ...Binding) error {
	return g.AddEdge(Edge{Type: KnowledgeRequirement, Source: source, Target: target, Bindings: bindings})
}

// AddAuthorityRequirement records that source governs target.
func (g *Graph) AddAuthorityRequirement(source, target string) error {
	return g.AddEdge(Edge{Type: AuthorityRequirement, Source: source, Target: target})
}

// SetLogic replaces the logic of a decision or business knowledge model.
func (g *Graph) SetLogic(id string, l Logic) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return fmt.Errorf("setting logic of %s: %w", id, ErrSealed)
	}
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("setting logic of %s: %w", id, ErrNodeNotFound)
	}
	if n.Kind != Decision && n.Kind != BusinessKnowledgeModel {
		return fmt.Errorf("setting logic of %s: a %s has no logic", id, n.Kind)
	}
	n.Logic = nil
	if l != nil {
		n.Logic = l.clone()
	}
	return nil
}

// AddDecisionService adds a decision service. Its references are checked
// by Validate.
func (g *Graph) AddDecisionService(s DecisionService) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("decision service %q: id is required", s.Name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return fmt.Errorf("adding decision service %s: %w", s.ID, ErrSealed)
	}
	for _, existing := range g.services {
		if existing.ID == s.ID {
			return fmt.Errorf("adding decision service %s: %w", s.ID, ErrDuplicateID)
		}
	}
	g.services = append(g.services, s.clone())
	return nil
}

// Node returns a copy of the node with the given id. Changing the copy,
// its logic included, does not change the graph.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.clone(), true
}

// Nodes returns copies of all nodes, in the order they were added.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].clone())
	}
	return out
}

// Edges returns a copy of the edges, in the order they were added.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		e.Bindings = slices.Clone(e.Bindings)
		out[i] = e
	}
	return out
}

// Services returns copies of the decision services.
func (g *Graph) Services() []DecisionService {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]DecisionService, len(g.services))
	for i, s := range g.services {
		out[i] = s.clone()
	}
	return out
}

// Service returns the decision service with the given id.
func (g *Graph) Service(id string) (DecisionService, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.services {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return DecisionService{}, false
}

// Clone returns an unsealed deep copy of the graph. The copy shares the
// parse cache and the registered languages.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c := &Graph{
		Name:      g.Name,
		nodes:     make(map[string]*Node, len(g.nodes)),
		order:     slices.Clone(g.order),
		edges:     make([]Edge, len(g.edges)),
		services:  make([]DecisionService, len(g.services)),
		cache:     g.cache,
		languages: make(map[string]evaluator.Compiler, len(g.languages)),
	}
	for id, n := range g.nodes {
		c.nodes[id] = n.clone()
	}
	for i, e := range g.edges {
		e.Bindings = slices.Clone(e.Bindings)
		c.edges[i] = e
	}
	for i, s := range g.services {
		c.services[i] = s.clone()
	}
	for k, v := range g.languages {
		c.languages[k] = v
	}
	return c
}

// Remove deletes a node and every edge that touches it. References to the
// node from decision services are left for Validate to report.
func (g *Graph) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return fmt.Errorf("removing %s: %w", id, ErrSealed)
	}
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("removing %s: %w", id, ErrNodeNotFound)
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Source == id || e.Target == id })
	return nil
}
