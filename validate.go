package dmn

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ezachrisen/dmn/evaluator"
)

// Validate checks the structure of the graph and compiles every expression
// in it. All problems found are returned; each is a *ValidationError or a
// *CycleError. When there are none the graph is sealed and ready for
// evaluation. Validating a sealed graph returns nil immediately.
func (g *Graph) Validate() ValidationErrors {
	if g.sealed.Load() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed.Load() {
		return nil
	}

	v := &validation{g: g}
	v.checkNodes()
	v.checkEdges()
	v.checkCycles()
	v.compile()
	v.checkServices()
	if len(v.errs) > 0 {
		return v.errs
	}

	g.programs = v.programs
	g.bindings = v.bindings
	g.position = make(map[string]int, len(g.order))
	g.scopes = make(map[string][]string, len(g.order))
	for i, id := range g.order {
		g.position[id] = i
		g.scopes[id] = g.scope(g.nodes[id])
	}
	g.incoming = map[string][]int{}
	for i, e := range g.edges {
		if dependsOn(e) {
			g.incoming[e.Target] = append(g.incoming[e.Target], i)
		}
	}
	g.sealed.Store(true)
	return nil
}

type validation struct {
	g        *Graph
	errs     ValidationErrors
	programs map[string]evaluator.Program
	bindings [][]evaluator.Program
}

func (v *validation) nodeErr(id, reason string, err error) {
	v.errs = append(v.errs, &ValidationError{NodeID: id, Reason: reason, Err: err})
}

func (v *validation) edgeErr(e Edge, reason string) {
	v.errs = append(v.errs, &ValidationError{EdgeID: e.label(), Reason: reason})
}

// evaluable reports whether values of nodes of kind k are bound by name.
func evaluable(k NodeKind) bool {
	return k == InputData || k == Decision || k == BusinessKnowledgeModel
}

func (v *validation) checkNodes() {
	names := map[string]string{}
	for _, id := range v.g.order {
		n := v.g.nodes[id]
		if n.Kind < InputData || n.Kind > KnowledgeSource {
			v.nodeErr(id, fmt.Sprintf("unknown node kind %d", int(n.Kind)), nil)
			continue
		}
		if !evaluable(n.Kind) {
			continue
		}

		name := strings.TrimSpace(n.Name)
		if name == "" {
			v.nodeErr(id, "name is required", nil)
		} else if other, ok := names[name]; ok {
			v.nodeErr(id, fmt.Sprintf("name %q is already used by node %s", name, other), nil)
		} else {
			names[name] = id
		}

		if n.Kind == InputData {
			continue
		}
		switch l := n.Logic.(type) {
		case nil:
			v.nodeErr(id, fmt.Sprintf("%s has no logic", n.Kind), nil)
		case *DecisionTable:
			if l.Table == nil {
				v.nodeErr(id, "decision table is empty", nil)
			}
		}
		if n.Kind == BusinessKnowledgeModel {
			seen := map[string]bool{}
			for _, p := range n.Parameters {
				if seen[p] {
					v.nodeErr(id, fmt.Sprintf("duplicate parameter %q", p), nil)
				}
				seen[p] = true
			}
		}
	}
}

// legal lists, per requirement type, the kinds allowed at each end.
var legal = map[RequirementType]struct{ source, target []NodeKind }{
	InformationRequirement: {[]NodeKind{InputData, Decision}, []NodeKind{Decision}},
	KnowledgeRequirement:   {[]NodeKind{BusinessKnowledgeModel}, []NodeKind{Decision, BusinessKnowledgeModel}},
	AuthorityRequirement:   {[]NodeKind{KnowledgeSource}, []NodeKind{Decision, BusinessKnowledgeModel, KnowledgeSource}},
}

func (v *validation) checkEdges() {
	type key struct {
		t        RequirementType
		src, tgt string
	}
	seen := map[key]bool{}
	ids := map[string]bool{}

	for _, e := range v.g.edges {
		if e.ID != "" {
			if _, ok := v.g.nodes[e.ID]; ok || ids[e.ID] {
				v.edgeErr(e, "duplicate id")
			}
			ids[e.ID] = true
		}

		rule, ok := legal[e.Type]
		if !ok {
			v.edgeErr(e, fmt.Sprintf("unknown requirement type %d", int(e.Type)))
			continue
		}
		src, srcOK := v.g.nodes[e.Source]
		tgt, tgtOK := v.g.nodes[e.Target]
		if !srcOK {
			v.edgeErr(e, fmt.Sprintf("unknown source %q", e.Source))
		}
		if !tgtOK {
			v.edgeErr(e, fmt.Sprintf("unknown target %q", e.Target))
		}
		if !srcOK || !tgtOK {
			continue
		}
		if !slices.Contains(rule.source, src.Kind) || !slices.Contains(rule.target, tgt.Kind) {
			v.edgeErr(e, fmt.Sprintf("%s cannot connect a %s to a %s", e.Type, src.Kind, tgt.Kind))
		}

		k := key{e.Type, e.Source, e.Target}
		if seen[k] {
			v.edgeErr(e, "duplicate "+e.Type.String())
		}
		seen[k] = true

		if e.Type != KnowledgeRequirement && len(e.Bindings) > 0 {
			v.edgeErr(e, "only knowledge requirements carry bindings")
		}
	}
}

// dependsOn is true for edges whose source value flows into the target.
func dependsOn(e Edge) bool {
	return e.Type == InformationRequirement || e.Type == KnowledgeRequirement
}

// checkCycles runs a depth first search over information and knowledge
// requirements, reporting one *CycleError per back edge.
func (v *validation) checkCycles() {
	next := map[string][]string{}
	for _, e := range v.g.edges {
		if !dependsOn(e) {
			continue
		}
		if _, ok := v.g.nodes[e.Source]; !ok {
			continue
		}
		if _, ok := v.g.nodes[e.Target]; !ok {
			continue
		}
		next[e.Source] = append(next[e.Source], e.Target)
	}

	const (
		white = iota
		grey
		black
	)
	color := map[string]int{}
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		for _, t := range next[id] {
			switch color[t] {
			case white:
				visit(t)
			case grey:
				start := slices.Index(stack, t)
				path := append(slices.Clone(stack[start:]), t)
				v.errs = append(v.errs, &CycleError{Path: path})
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range v.g.order {
		if color[id] == white {
			visit(id)
		}
	}
}

// scope lists the names the logic of node n may read: for a decision the
// names of the input data and decisions it requires and of the models it
// invokes; for a model its parameters and the models it invokes.
func (g *Graph) scope(n *Node) []string {
	var names []string
	if n.Kind == BusinessKnowledgeModel {
		names = append(names, n.Parameters...)
	}
	for _, e := range g.edges {
		if e.Target != n.ID || !dependsOn(e) {
			continue
		}
		src, ok := g.nodes[e.Source]
		if !ok {
			continue
		}
		if n.Kind == BusinessKnowledgeModel && e.Type != KnowledgeRequirement {
			continue
		}
		if !slices.Contains(names, src.Name) {
			names = append(names, src.Name)
		}
	}
	return names
}

// argumentScope lists the names the arguments of the models n invokes may
// read: the scope of n less the results of those models, which are bound
// one after another while n's arguments are evaluated.
func (g *Graph) argumentScope(n *Node) []string {
	invoked := map[string]bool{}
	for _, e := range g.edges {
		if e.Target != n.ID || e.Type != KnowledgeRequirement {
			continue
		}
		if src, ok := g.nodes[e.Source]; ok {
			invoked[src.Name] = true
		}
	}
	return slices.DeleteFunc(g.scope(n), func(name string) bool {
		return invoked[name] && !slices.Contains(n.Parameters, name)
	})
}

func (v *validation) compile() {
	g := v.g
	v.programs = map[string]evaluator.Program{}
	v.bindings = make([][]evaluator.Program, len(g.edges))

	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind != Decision && n.Kind != BusinessKnowledgeModel {
			continue
		}
		scope := g.scope(n)

		var refs []string
		switch l := n.Logic.(type) {
		case *DecisionTable:
			if l.Table == nil {
				continue
			}
			if err := l.Table.Compile(g.cache); err != nil {
				for _, e := range unjoin(err) {
					v.nodeErr(id, "decision table", e)
				}
				continue
			}
			refs = l.Table.Variables()
		case *LiteralExpression:
			lang, ok := g.languages[strings.ToLower(l.Language)]
			if !ok {
				v.nodeErr(id, fmt.Sprintf("unknown expression language %q", l.Language), nil)
				continue
			}
			p, err := lang.Compile(l.Text, scope)
			if err != nil {
				v.nodeErr(id, "literal expression", err)
				continue
			}
			v.programs[id] = p
			refs = p.References()
		default:
			continue
		}
		// Models are checked when invoked: they see only their arguments.
		if n.Kind == Decision {
			v.resolve(id, refs, scope)
		}
	}

	builtin := g.languages[""]
	for i, e := range g.edges {
		if e.Type != KnowledgeRequirement {
			continue
		}
		src, srcOK := g.nodes[e.Source]
		tgt, tgtOK := g.nodes[e.Target]
		if !srcOK || !tgtOK || src.Kind != BusinessKnowledgeModel {
			continue
		}
		v.bindings[i] = v.compileBindings(e, src, g.argumentScope(tgt), builtin)
	}
}

func (v *validation) resolve(id string, refs, scope []string) {
	for _, r := range refs {
		if slices.Contains(scope, r) {
			continue
		}
		v.errs = append(v.errs, &ValidationError{
			NodeID:     id,
			Reason:     fmt.Sprintf("unresolved name %q", r),
			Suggestion: suggestName(r, scope),
		})
	}
}

// compileBindings compiles the arguments of a knowledge requirement,
// returning one program per parameter of the model in parameter order.
func (v *validation) compileBindings(e Edge, bkm *Node, scope []string, lang evaluator.Compiler) []evaluator.Program {
	byParam := map[string]Binding{}
	for _, b := range e.Bindings {
		if _, dup := byParam[b.Parameter]; dup {
			v.edgeErr(e, fmt.Sprintf("parameter %q is bound twice", b.Parameter))
			continue
		}
		if !slices.Contains(bkm.Parameters, b.Parameter) {
			v.errs = append(v.errs, &ValidationError{
				EdgeID:     e.label(),
				Reason:     fmt.Sprintf("%s has no parameter %q", bkm.Name, b.Parameter),
				Suggestion: suggestName(b.Parameter, bkm.Parameters),
			})
			continue
		}
		byParam[b.Parameter] = b
	}

	progs := make([]evaluator.Program, len(bkm.Parameters))
	for i, p := range bkm.Parameters {
		b, ok := byParam[p]
		if !ok {
			v.edgeErr(e, fmt.Sprintf("parameter %q of %s is not bound", p, bkm.Name))
			continue
		}
		prog, err := lang.Compile(b.Expression, scope)
		if err != nil {
			v.errs = append(v.errs, &ValidationError{EdgeID: e.label(), Reason: fmt.Sprintf("binding %q", p), Err: err})
			continue
		}
		for _, r := range prog.References() {
			if !slices.Contains(scope, r) {
				v.errs = append(v.errs, &ValidationError{
					EdgeID:     e.label(),
					Reason:     fmt.Sprintf("binding %q: unresolved name %q", p, r),
					Suggestion: suggestName(r, scope),
				})
			}
		}
		progs[i] = prog
	}
	return progs
}

func (v *validation) checkServices() {
	g := v.g
	want := func(s DecisionService, role string, ids []string, kind NodeKind) {
		for _, id := range ids {
			n, ok := g.nodes[id]
			switch {
			case !ok:
				v.nodeErr(s.ID, fmt.Sprintf("%s %q", role, id), ErrNodeNotFound)
			case n.Kind != kind:
				v.nodeErr(s.ID, fmt.Sprintf("%s %q is a %s, not a %s", role, id, n.Kind, kind), nil)
			}
		}
	}
	for _, s := range g.services {
		if _, ok := g.nodes[s.ID]; ok {
			v.nodeErr(s.ID, "decision service id is also a node id", ErrDuplicateID)
		}
		if len(s.OutputDecisions) == 0 {
			v.nodeErr(s.ID, "decision service has no output decisions", nil)
		}
		want(s, "output decision", s.OutputDecisions, Decision)
		want(s, "encapsulated decision", s.EncapsulatedDecisions, Decision)
		want(s, "input decision", s.InputDecisions, Decision)
		want(s, "input data", s.InputData, InputData)
	}
}

// unjoin splits an error created by errors.Join.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
