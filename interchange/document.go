package interchange

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/table"
)

// Document is a graph written out as plain records. It is the YAML form of
// a model, and the intermediate form of the XML codec.
type Document struct {
	Name     string          `yaml:"name"`
	Nodes    []NodeRecord    `yaml:"nodes"`
	Edges    []EdgeRecord    `yaml:"edges,omitempty"`
	Services []ServiceRecord `yaml:"services,omitempty"`
}

// NodeRecord is one node. Kind is one of "inputData", "decision",
// "businessKnowledgeModel" or "knowledgeSource". At most one of Literal
// and Table is set.
type NodeRecord struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"`
	Description string         `yaml:"description,omitempty"`
	TypeRef     string         `yaml:"typeRef,omitempty"`
	Parameters  []string       `yaml:"parameters,omitempty"`
	Owner       string         `yaml:"owner,omitempty"`
	Location    string         `yaml:"location,omitempty"`
	Literal     *LiteralRecord `yaml:"literal,omitempty"`
	Table       *TableRecord   `yaml:"table,omitempty"`
}

type LiteralRecord struct {
	Text     string `yaml:"text"`
	Language string `yaml:"language,omitempty"`
}

// TableRecord is a decision table. HitPolicy is a symbol such as "U" or a
// name such as "RULE ORDER"; empty means unique.
type TableRecord struct {
	Name        string         `yaml:"name,omitempty"`
	HitPolicy   string         `yaml:"hitPolicy,omitempty"`
	Aggregation string         `yaml:"aggregation,omitempty"`
	Inputs      []InputRecord  `yaml:"inputs"`
	Outputs     []OutputRecord `yaml:"outputs"`
	Rules       []RuleRecord   `yaml:"rules"`
}

type InputRecord struct {
	Label      string `yaml:"label,omitempty"`
	Expression string `yaml:"expression"`
}

type OutputRecord struct {
	Name    string   `yaml:"name"`
	Allowed []string `yaml:"allowed,omitempty"`
}

type RuleRecord struct {
	When       []string `yaml:"when"`
	Then       []string `yaml:"then"`
	Annotation string   `yaml:"annotation,omitempty"`
}

// EdgeRecord is one requirement. Type is "information", "knowledge" or
// "authority".
type EdgeRecord struct {
	ID       string          `yaml:"id,omitempty"`
	Type     string          `yaml:"type"`
	From     string          `yaml:"from"`
	To       string          `yaml:"to"`
	Bindings []BindingRecord `yaml:"bindings,omitempty"`
}

type BindingRecord struct {
	Parameter  string `yaml:"parameter"`
	Expression string `yaml:"expression"`
}

type ServiceRecord struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name,omitempty"`
	Outputs        []string `yaml:"outputs"`
	Encapsulated   []string `yaml:"encapsulated,omitempty"`
	InputDecisions []string `yaml:"inputDecisions,omitempty"`
	InputData      []string `yaml:"inputData,omitempty"`
}

var nodeKinds = map[string]dmn.NodeKind{
	"inputData":              dmn.InputData,
	"decision":               dmn.Decision,
	"businessKnowledgeModel": dmn.BusinessKnowledgeModel,
	"knowledgeSource":        dmn.KnowledgeSource,
}

var edgeTypes = map[string]dmn.RequirementType{
	"information": dmn.InformationRequirement,
	"knowledge":   dmn.KnowledgeRequirement,
	"authority":   dmn.AuthorityRequirement,
}

func kindName(k dmn.NodeKind) string {
	for name, kind := range nodeKinds {
		if kind == k {
			return name
		}
	}
	return ""
}

func typeName(t dmn.RequirementType) string {
	for name, typ := range edgeTypes {
		if typ == t {
			return name
		}
	}
	return ""
}

// newID returns an id for an element that has none.
func newID() string {
	return "_" + uuid.NewString()
}

// FromGraph records the nodes, edges and decision services of g.
func FromGraph(g *dmn.Graph) *Document {
	d := &Document{Name: g.Name}
	for _, n := range g.Nodes() {
		rec := NodeRecord{
			ID:          n.ID,
			Name:        n.Name,
			Kind:        kindName(n.Kind),
			Description: n.Description,
			TypeRef:     n.TypeRef,
			Parameters:  n.Parameters,
			Owner:       n.Owner,
			Location:    n.Location,
		}
		switch l := n.Logic.(type) {
		case *dmn.LiteralExpression:
			rec.Literal = &LiteralRecord{Text: l.Text, Language: l.Language}
		case *dmn.DecisionTable:
			if l.Table != nil {
				rec.Table = tableRecord(l.Table)
			}
		}
		d.Nodes = append(d.Nodes, rec)
	}

	for _, e := range g.Edges() {
		rec := EdgeRecord{ID: e.ID, Type: typeName(e.Type), From: e.Source, To: e.Target}
		for _, b := range e.Bindings {
			rec.Bindings = append(rec.Bindings, BindingRecord{Parameter: b.Parameter, Expression: b.Expression})
		}
		d.Edges = append(d.Edges, rec)
	}

	for _, s := range g.Services() {
		d.Services = append(d.Services, ServiceRecord{
			ID:             s.ID,
			Name:           s.Name,
			Outputs:        s.OutputDecisions,
			Encapsulated:   s.EncapsulatedDecisions,
			InputDecisions: s.InputDecisions,
			InputData:      s.InputData,
		})
	}
	return d
}

func tableRecord(t *table.Table) *TableRecord {
	rec := &TableRecord{
		Name:      t.Name,
		HitPolicy: t.HitPolicy.Symbol(),
	}
	if t.Aggregation != table.AggList {
		rec.Aggregation = t.Aggregation.String()
	}
	for _, in := range t.Inputs {
		rec.Inputs = append(rec.Inputs, InputRecord{Label: in.Label, Expression: in.Expression})
	}
	for _, out := range t.Outputs {
		rec.Outputs = append(rec.Outputs, OutputRecord{Name: out.Name, Allowed: out.AllowedValues})
	}
	for _, r := range t.Rules {
		rec.Rules = append(rec.Rules, RuleRecord{When: r.Inputs, Then: r.Outputs, Annotation: r.Annotation})
	}
	return rec
}

// Build creates a graph from the document. Nodes and services without an
// id are given a generated one. The graph is not validated.
func (d *Document) Build(opts ...dmn.GraphOption) (*dmn.Graph, error) {
	g := dmn.NewGraph(d.Name, opts...)

	for i, rec := range d.Nodes {
		n, err := rec.node()
		if err != nil {
			return nil, errors.Wrapf(err, "node %d (%s)", i+1, rec.Name)
		}
		if n.ID == "" {
			n.ID = newID()
		}
		if err := g.AddNode(n); err != nil {
			return nil, errors.Wrapf(err, "node %d (%s)", i+1, rec.Name)
		}
	}

	for i, rec := range d.Edges {
		typ, ok := edgeTypes[rec.Type]
		if !ok {
			return nil, errors.Errorf("edge %d: unknown requirement type %q", i+1, rec.Type)
		}
		e := dmn.Edge{ID: rec.ID, Type: typ, Source: rec.From, Target: rec.To}
		for _, b := range rec.Bindings {
			e.Bindings = append(e.Bindings, dmn.Binding{Parameter: b.Parameter, Expression: b.Expression})
		}
		if err := g.AddEdge(e); err != nil {
			return nil, errors.Wrapf(err, "edge %d", i+1)
		}
	}

	for _, rec := range d.Services {
		s := dmn.DecisionService{
			ID:                    rec.ID,
			Name:                  rec.Name,
			OutputDecisions:       rec.Outputs,
			EncapsulatedDecisions: rec.Encapsulated,
			InputDecisions:        rec.InputDecisions,
			InputData:             rec.InputData,
		}
		if s.ID == "" {
			s.ID = newID()
		}
		if err := g.AddDecisionService(s); err != nil {
			return nil, errors.Wrapf(err, "decision service %s", rec.Name)
		}
	}
	return g, nil
}

func (r NodeRecord) node() (*dmn.Node, error) {
	kind, ok := nodeKinds[r.Kind]
	if !ok {
		return nil, errors.Errorf("unknown node kind %q", r.Kind)
	}
	n := &dmn.Node{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Kind:        kind,
		Parameters:  r.Parameters,
		TypeRef:     r.TypeRef,
		Owner:       r.Owner,
		Location:    r.Location,
	}

	switch {
	case r.Table != nil && r.Literal != nil:
		return nil, errors.New("a node has either a table or a literal expression, not both")
	case r.Table != nil:
		t, err := r.Table.table()
		if err != nil {
			return nil, err
		}
		n.Logic = &dmn.DecisionTable{Table: t}
	case r.Literal != nil:
		n.Logic = &dmn.LiteralExpression{Text: r.Literal.Text, Language: r.Literal.Language}
	}
	if n.Logic != nil && kind != dmn.Decision && kind != dmn.BusinessKnowledgeModel {
		return nil, errors.Errorf("a %s has no logic", kind)
	}
	return n, nil
}

func (r *TableRecord) table() (*table.Table, error) {
	t := &table.Table{Name: r.Name}
	var err error
	if r.HitPolicy != "" {
		if t.HitPolicy, err = table.ParseHitPolicy(r.HitPolicy); err != nil {
			return nil, errors.Wrap(err, "decision table")
		}
	}
	if t.Aggregation, err = table.ParseAggregation(r.Aggregation); err != nil {
		return nil, errors.Wrap(err, "decision table")
	}
	for _, in := range r.Inputs {
		t.Inputs = append(t.Inputs, table.Input{Label: in.Label, Expression: in.Expression})
	}
	for _, out := range r.Outputs {
		t.Outputs = append(t.Outputs, table.Output{Name: out.Name, AllowedValues: out.Allowed})
	}
	for _, rule := range r.Rules {
		t.Rules = append(t.Rules, table.Rule{Inputs: rule.When, Outputs: rule.Then, Annotation: rule.Annotation})
	}
	return t, nil
}
