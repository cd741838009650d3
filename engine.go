package dmn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/ezachrisen/dmn/table"
	"github.com/ezachrisen/dmn/value"
)

// Engine evaluates decision requirements graphs. An engine holds no graph
// state; one engine can evaluate many graphs concurrently.
type Engine struct {
	// Options used by the engine during evaluation
	opts EngineOptions
}

const (
	defaultDepth = 32
)

// Initialize a new engine
func NewEngine(opts ...EngineOption) *Engine {
	engine := Engine{
		opts: EngineOptions{
			MaxDepth: defaultDepth,
		},
	}
	applyEngineOptions(&engine.opts, opts...)
	if engine.opts.Logger == nil {
		engine.opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &engine
}

// Evaluate computes the decisions in targets, given by id, along with every
// decision they depend on. Values for the input data nodes those decisions
// need are taken from inputs, keyed by node name.
//
// If targets is empty, every decision in the graph is evaluated.
// The graph is validated first if it has not been sealed already.
func (e *Engine) Evaluate(ctx context.Context, g *Graph, inputs map[string]any, targets []string, opts ...EvalOption) (*Result, error) {
	start := time.Now()
	res, err := e.evaluate(ctx, g, inputs, targets, nil, opts...)
	e.finish(g, start, err)
	return res, err
}

// EvaluateService evaluates the decision service with the given id.
// Only the service's input data and input decisions are read from inputs;
// input decisions are taken as given rather than computed. The result
// holds the service's output decisions only.
func (e *Engine) EvaluateService(ctx context.Context, g *Graph, serviceID string, inputs map[string]any, opts ...EvalOption) (*Result, error) {
	start := time.Now()
	res, err := e.evaluateService(ctx, g, serviceID, inputs, opts...)
	e.finish(g, start, err)
	return res, err
}

func (e *Engine) finish(g *Graph, start time.Time, err error) {
	d := time.Since(start)
	e.opts.Metrics.recordEvaluation(err, d)
	if err != nil {
		var name string
		if g != nil {
			name = g.Name
		}
		e.opts.Logger.Warn("evaluation failed", "graph", name, "duration", d, "error", err)
	}
}

func (e *Engine) evaluateService(ctx context.Context, g *Graph, serviceID string, inputs map[string]any, opts ...EvalOption) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("dmn.EvaluateService called with nil graph")
	}
	if err := g.Validate().Err(); err != nil {
		return nil, err
	}
	s, ok := g.Service(serviceID)
	if !ok {
		return nil, fmt.Errorf("decision service %s: %w", serviceID, ErrNodeNotFound)
	}
	b := &boundary{
		stop:    map[string]bool{},
		allowed: map[string]bool{},
	}
	for _, id := range s.InputDecisions {
		b.stop[id] = true
		b.allowed[id] = true
	}
	for _, id := range s.InputData {
		b.allowed[id] = true
	}
	opts = append(opts, ReturnAll(false))
	return e.evaluate(ctx, g, inputs, s.OutputDecisions, b, opts...)
}

// boundary restricts an evaluation to a decision service.
type boundary struct {
	// Decisions whose values are supplied rather than computed.
	stop map[string]bool
	// Nodes that may be seeded from the inputs.
	allowed map[string]bool
}

func (e *Engine) evaluate(ctx context.Context, g *Graph, inputs map[string]any, targets []string, b *boundary, opts ...EvalOption) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("dmn.Evaluate called with nil graph")
	}
	o := EvalOptions{}
	applyEvalOptions(&o, opts...)

	if err := g.Validate().Err(); err != nil {
		return nil, err
	}

	if len(targets) == 0 {
		var all []string
		for _, id := range g.order {
			if g.nodes[id].Kind == Decision {
				all = append(all, id)
			}
		}
		targets = all
	}
	for _, id := range targets {
		n, ok := g.nodes[id]
		if !ok {
			return nil, fmt.Errorf("target %s: %w", id, ErrNodeNotFound)
		}
		if n.Kind != Decision {
			return nil, fmt.Errorf("target %s is a %s, not a decision", id, n.Kind)
		}
	}

	var stop map[string]bool
	if b != nil {
		stop = b.stop
	}
	sub := g.upstream(targets, stop)
	if e.opts.MaxNodes > 0 && len(sub) > e.opts.MaxNodes {
		return nil, &ResourceLimitError{Resource: "nodes", Limit: int64(e.opts.MaxNodes)}
	}

	r := &run{
		e:    e,
		g:    g,
		work: value.NewContext(),
	}
	if o.ReturnDiagnostics {
		r.diag = &Diagnostics{Graph: g.Name, Inputs: inputs}
	}

	if err := r.seed(sub, stop, b, inputs); err != nil {
		return nil, err
	}

	order := g.evaluationOrder(sub, stop)
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.decide(g.nodes[id]); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Order:       order,
		Diagnostics: r.diag,
		EvalOptions: o,
	}
	names := make([]string, 0, len(order))
	if o.ReturnAll {
		for _, id := range order {
			names = append(names, g.nodes[id].Name)
		}
	} else {
		for _, id := range targets {
			names = append(names, g.nodes[id].Name)
		}
	}
	res.Outputs = r.work.Child(names...)
	return res, nil
}

// upstream collects targets and every node they reach backward through
// information and knowledge requirements. Nodes in stop are included but
// not traversed.
func (g *Graph) upstream(targets []string, stop map[string]bool) map[string]bool {
	sub := map[string]bool{}
	queue := slices.Clone(targets)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if sub[id] {
			continue
		}
		sub[id] = true
		if stop[id] {
			continue
		}
		for _, i := range g.incoming[id] {
			queue = append(queue, g.edges[i].Source)
		}
	}
	return sub
}

// evaluationOrder sorts the decisions of sub that must be computed so that
// every decision follows the decisions it requires. Among decisions that
// are ready at the same time, the one added to the graph first goes first.
func (g *Graph) evaluationOrder(sub, stop map[string]bool) []string {
	computed := func(id string) bool {
		return sub[id] && !stop[id] && g.nodes[id].Kind == Decision
	}

	indegree := map[string]int{}
	next := map[string][]string{}
	var ready []string
	for _, id := range g.order {
		if !computed(id) {
			continue
		}
		for _, i := range g.incoming[id] {
			edge := g.edges[i]
			if edge.Type == InformationRequirement && computed(edge.Source) {
				indegree[id]++
				next[edge.Source] = append(next[edge.Source], id)
			}
		}
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var out []string
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b string) int { return g.position[a] - g.position[b] })
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)
		for _, t := range next[id] {
			indegree[t]--
			if indegree[t] == 0 {
				ready = append(ready, t)
			}
		}
	}
	return out
}

type run struct {
	e    *Engine
	g    *Graph
	work *value.Context
	diag *Diagnostics
}

// seed binds the value of every input data node in sub, and of every
// supplied input decision, from inputs.
func (r *run) seed(sub, stop map[string]bool, b *boundary, inputs map[string]any) error {
	for _, id := range r.g.order {
		n := r.g.nodes[id]
		if !sub[id] || (n.Kind != InputData && !stop[id]) {
			continue
		}
		x, ok := inputs[n.Name]
		if !ok || (b != nil && !b.allowed[id]) {
			return &MissingInputError{Name: n.Name, NodeID: id}
		}
		v, err := value.FromNative(x)
		if err != nil {
			return fmt.Errorf("input %q: %w", n.Name, err)
		}
		if err := r.work.Set(n.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// decide evaluates decision n and binds its value in the working context.
func (r *run) decide(n *Node) error {
	start := time.Now()
	local := r.work.Child(r.g.scopes[n.ID]...)
	if err := r.invokeAll(n, local, 1); err != nil {
		return err
	}

	v, tr, err := r.logic(n, local)
	if err != nil {
		return &NodeError{NodeID: n.ID, Name: n.Name, Kind: n.Kind, Err: err}
	}
	if err := r.work.Set(n.Name, v); err != nil {
		return err
	}
	r.record(n, 0, local, v, tr, time.Since(start))
	return nil
}

// invokeAll invokes every model that n requires, binding each result in
// scope under the model's name.
func (r *run) invokeAll(n *Node, scope *value.Context, depth int) error {
	for _, i := range r.g.incoming[n.ID] {
		if r.g.edges[i].Type != KnowledgeRequirement {
			continue
		}
		bkm := r.g.nodes[r.g.edges[i].Source]
		v, err := r.invoke(i, scope, depth)
		if err != nil {
			return err
		}
		if err := scope.Set(bkm.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// invoke evaluates the model at the source of knowledge requirement edge,
// with arguments evaluated in the caller's scope. The model sees only its
// arguments and the results of the models it requires in turn.
func (r *run) invoke(edge int, caller *value.Context, depth int) (value.Value, error) {
	if limit := r.e.opts.MaxDepth; depth > limit {
		return value.Null(), &ResourceLimitError{Resource: "invocation depth", Limit: int64(limit)}
	}
	start := time.Now()
	bkm := r.g.nodes[r.g.edges[edge].Source]

	local := value.NewContext()
	for i, p := range r.g.bindings[edge] {
		arg, err := p.Eval(caller)
		if err != nil {
			return value.Null(), &NodeError{NodeID: bkm.ID, Name: bkm.Name, Kind: bkm.Kind,
				Err: fmt.Errorf("argument %q: %w", bkm.Parameters[i], err)}
		}
		if err := local.Set(bkm.Parameters[i], arg); err != nil {
			return value.Null(), err
		}
	}

	if err := r.invokeAll(bkm, local, depth+1); err != nil {
		return value.Null(), err
	}

	v, tr, err := r.logic(bkm, local)
	if err != nil {
		return value.Null(), &NodeError{NodeID: bkm.ID, Name: bkm.Name, Kind: bkm.Kind, Err: err}
	}
	r.record(bkm, depth, local, v, tr, time.Since(start))
	return v, nil
}

func (r *run) logic(n *Node, scope *value.Context) (value.Value, *table.Result, error) {
	switch l := n.Logic.(type) {
	case *DecisionTable:
		tr, err := l.Table.Evaluate(scope)
		if err != nil {
			return value.Null(), nil, err
		}
		r.e.opts.Metrics.recordMatches(len(tr.Matched))
		return tr.Value(), tr, nil
	case *LiteralExpression:
		p, ok := r.g.programs[n.ID]
		if !ok {
			return value.Null(), nil, fmt.Errorf("literal expression of %s is not compiled", n.ID)
		}
		v, err := p.Eval(scope)
		return v, nil, err
	}
	return value.Null(), nil, fmt.Errorf("%s has no logic", n.ID)
}

func (r *run) record(n *Node, depth int, scope *value.Context, v value.Value, tr *table.Result, d time.Duration) {
	r.e.opts.Metrics.recordNode(n.Kind, n.Logic)
	r.e.opts.Logger.Debug("evaluated node",
		"node", n.ID,
		"kind", n.Kind.String(),
		"depth", depth,
		"duration", d,
	)
	if r.diag == nil {
		return
	}
	var logic Logic
	if n.Logic != nil {
		logic = n.Logic.clone()
	}
	r.diag.Steps = append(r.diag.Steps, Step{
		NodeID:   n.ID,
		Name:     n.Name,
		Kind:     n.Kind,
		Logic:    logic,
		Depth:    depth,
		Scope:    scope.Value().Fields(),
		Value:    v,
		Table:    tr,
		Duration: d,
	})
}

// See the functional definitions below for the meaning.
type EngineOptions struct {
	Logger   *slog.Logger
	Metrics  *Metrics
	MaxDepth int
	MaxNodes int
}

type EngineOption func(f *EngineOptions)

// Given an array of EngineOption functions, apply their effect
// on the EngineOptions struct.
func applyEngineOptions(o *EngineOptions, opts ...EngineOption) {
	for _, opt := range opts {
		opt(o)
	}
}

// Log evaluations to l. Each evaluated node is logged at debug level;
// failed evaluations at warn level.
// Default: no logging
func WithLogger(l *slog.Logger) EngineOption {
	return func(f *EngineOptions) {
		f.Logger = l
	}
}

// Record metrics in m.
// Default: none
func WithMetrics(m *Metrics) EngineOption {
	return func(f *EngineOptions) {
		f.Metrics = m
	}
}

// The maximum depth of nested business knowledge model invocations.
// Default: 32
func MaxDepth(n int) EngineOption {
	return func(f *EngineOptions) {
		f.MaxDepth = n
	}
}

// The maximum number of nodes an evaluation may involve.
// Default: 0 (no limit)
func MaxNodes(n int) EngineOption {
	return func(f *EngineOptions) {
		f.MaxNodes = n
	}
}

// EvalOptions determine what an evaluation returns.
type EvalOptions struct {
	ReturnDiagnostics bool
	ReturnAll         bool
}

type EvalOption func(f *EvalOptions)

func applyEvalOptions(o *EvalOptions, opts ...EvalOption) {
	for _, opt := range opts {
		opt(o)
	}
}

// Return a record of every node evaluated.
// Default: off
func ReturnDiagnostics(b bool) EvalOption {
	return func(f *EvalOptions) {
		f.ReturnDiagnostics = b
	}
}

// Return the value of every decision computed, not only the targets.
// Has no effect on decision services.
// Default: off
func ReturnAll(b bool) EvalOption {
	return func(f *EvalOptions) {
		f.ReturnAll = b
	}
}
