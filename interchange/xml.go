package interchange

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ezachrisen/dmn"
	"github.com/ezachrisen/dmn/feel"
	"github.com/ezachrisen/dmn/table"
)

const (
	// ModelNamespace is the DMN 1.3 model namespace written by EncodeXML.
	// Documents in other DMN namespaces are read the same way.
	ModelNamespace = "https://www.omg.org/spec/DMN/20191111/MODEL/"

	// FEELLanguage is the expression language URI of FEEL. Literal
	// expressions in it are read as the built-in language.
	FEELLanguage = "https://www.omg.org/spec/DMN/20191111/FEEL/"
)

// TDefinitions is the root element of a DMN document. Elements keeps the
// DRG elements in document order.
type TDefinitions struct {
	ID        string
	Name      string
	Namespace string
	Elements  []DRGElement
}

// DRGElement is one of *TInputData, *TDecision, *TBusinessKnowledgeModel,
// *TKnowledgeSource or *TDecisionService.
type DRGElement interface {
	elementName() string
}

type TInputData struct {
	ID          string            `xml:"id,attr,omitempty"`
	Name        string            `xml:"name,attr"`
	Description string            `xml:"description,omitempty"`
	Variable    *TInformationItem `xml:"variable"`
}

type TDecision struct {
	ID                      string                    `xml:"id,attr,omitempty"`
	Name                    string                    `xml:"name,attr"`
	Description             string                    `xml:"description,omitempty"`
	Variable                *TInformationItem         `xml:"variable"`
	InformationRequirements []TInformationRequirement `xml:"informationRequirement"`
	KnowledgeRequirements   []TKnowledgeRequirement   `xml:"knowledgeRequirement"`
	AuthorityRequirements   []TAuthorityRequirement   `xml:"authorityRequirement"`
	DecisionTable           *TDecisionTable           `xml:"decisionTable"`
	LiteralExpression       *TLiteralExpression       `xml:"literalExpression"`
}

type TBusinessKnowledgeModel struct {
	ID                    string                  `xml:"id,attr,omitempty"`
	Name                  string                  `xml:"name,attr"`
	Description           string                  `xml:"description,omitempty"`
	Variable              *TInformationItem       `xml:"variable"`
	EncapsulatedLogic     *TFunctionDefinition    `xml:"encapsulatedLogic"`
	KnowledgeRequirements []TKnowledgeRequirement `xml:"knowledgeRequirement"`
	AuthorityRequirements []TAuthorityRequirement `xml:"authorityRequirement"`
}

type TFunctionDefinition struct {
	FormalParameters  []TInformationItem  `xml:"formalParameter"`
	DecisionTable     *TDecisionTable     `xml:"decisionTable"`
	LiteralExpression *TLiteralExpression `xml:"literalExpression"`
}

type TKnowledgeSource struct {
	ID                    string                  `xml:"id,attr,omitempty"`
	Name                  string                  `xml:"name,attr"`
	LocationURI           string                  `xml:"locationURI,attr,omitempty"`
	Description           string                  `xml:"description,omitempty"`
	AuthorityRequirements []TAuthorityRequirement `xml:"authorityRequirement"`
	Owner                 *THref                  `xml:"owner"`
}

type TDecisionService struct {
	ID                    string  `xml:"id,attr,omitempty"`
	Name                  string  `xml:"name,attr"`
	Description           string  `xml:"description,omitempty"`
	OutputDecisions       []THref `xml:"outputDecision"`
	EncapsulatedDecisions []THref `xml:"encapsulatedDecision"`
	InputDecisions        []THref `xml:"inputDecision"`
	InputData             []THref `xml:"inputData"`
}

func (*TInputData) elementName() string              { return "inputData" }
func (*TDecision) elementName() string               { return "decision" }
func (*TBusinessKnowledgeModel) elementName() string { return "businessKnowledgeModel" }
func (*TKnowledgeSource) elementName() string        { return "knowledgeSource" }
func (*TDecisionService) elementName() string        { return "decisionService" }

type TInformationItem struct {
	ID      string `xml:"id,attr,omitempty"`
	Name    string `xml:"name,attr"`
	TypeRef string `xml:"typeRef,attr,omitempty"`
}

// THref refers to another element, as "#id".
type THref struct {
	Href string `xml:"href,attr"`
}

type TInformationRequirement struct {
	ID               string `xml:"id,attr,omitempty"`
	RequiredDecision *THref `xml:"requiredDecision"`
	RequiredInput    *THref `xml:"requiredInput"`
}

// TKnowledgeRequirement carries the arguments of the invocation as
// bindings in its extension elements.
type TKnowledgeRequirement struct {
	ID                string      `xml:"id,attr,omitempty"`
	Extension         *TExtension `xml:"extensionElements"`
	RequiredKnowledge THref       `xml:"requiredKnowledge"`
}

type TExtension struct {
	Bindings []TBinding `xml:"binding"`
}

type TBinding struct {
	Parameter         TInformationItem   `xml:"parameter"`
	LiteralExpression TLiteralExpression `xml:"literalExpression"`
}

type TAuthorityRequirement struct {
	ID                string `xml:"id,attr,omitempty"`
	RequiredDecision  *THref `xml:"requiredDecision"`
	RequiredInput     *THref `xml:"requiredInput"`
	RequiredAuthority *THref `xml:"requiredAuthority"`
}

type TDecisionTable struct {
	ID          string    `xml:"id,attr,omitempty"`
	Label       string    `xml:"label,attr,omitempty"`
	HitPolicy   string    `xml:"hitPolicy,attr,omitempty"`
	Aggregation string    `xml:"aggregation,attr,omitempty"`
	Inputs      []TInput  `xml:"input"`
	Outputs     []TOutput `xml:"output"`
	Rules       []TRule   `xml:"rule"`
}

type TInput struct {
	ID              string             `xml:"id,attr,omitempty"`
	Label           string             `xml:"label,attr,omitempty"`
	InputExpression TLiteralExpression `xml:"inputExpression"`
}

type TOutput struct {
	ID           string       `xml:"id,attr,omitempty"`
	Label        string       `xml:"label,attr,omitempty"`
	Name         string       `xml:"name,attr,omitempty"`
	TypeRef      string       `xml:"typeRef,attr,omitempty"`
	OutputValues *TUnaryTests `xml:"outputValues"`
}

type TRule struct {
	ID            string               `xml:"id,attr,omitempty"`
	Description   string               `xml:"description,omitempty"`
	InputEntries  []TUnaryTests        `xml:"inputEntry"`
	OutputEntries []TLiteralExpression `xml:"outputEntry"`
}

type TUnaryTests struct {
	ID   string `xml:"id,attr,omitempty"`
	Text string `xml:"text"`
}

type TLiteralExpression struct {
	ID                 string `xml:"id,attr,omitempty"`
	TypeRef            string `xml:"typeRef,attr,omitempty"`
	ExpressionLanguage string `xml:"expressionLanguage,attr,omitempty"`
	Text               string `xml:"text"`
}

// MarshalXML writes the definitions with the DMN 1.3 namespace as the
// default namespace, keeping the order of Elements.
func (d TDefinitions) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "definitions"}
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "xmlns"}, Value: ModelNamespace},
		{Name: xml.Name{Local: "id"}, Value: d.ID},
		{Name: xml.Name{Local: "name"}, Value: d.Name},
		{Name: xml.Name{Local: "namespace"}, Value: d.Namespace},
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, el := range d.Elements {
		if err := e.EncodeElement(el, xml.StartElement{Name: xml.Name{Local: el.elementName()}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML reads the DRG elements of a definitions element in
// document order. Other elements, such as diagram information, are
// skipped.
func (d *TDefinitions) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	if start.Name.Local != "definitions" {
		return errors.Errorf("expected a definitions element, found %s", start.Name.Local)
	}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			d.ID = a.Value
		case "name":
			d.Name = a.Value
		case "namespace":
			d.Namespace = a.Value
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var el DRGElement
			switch t.Name.Local {
			case "inputData":
				el = &TInputData{}
			case "decision":
				el = &TDecision{}
			case "businessKnowledgeModel":
				el = &TBusinessKnowledgeModel{}
			case "knowledgeSource":
				el = &TKnowledgeSource{}
			case "decisionService":
				el = &TDecisionService{}
			default:
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			if err := dec.DecodeElement(el, &t); err != nil {
				return errors.Wrapf(err, "reading %s", t.Name.Local)
			}
			d.Elements = append(d.Elements, el)
		case xml.EndElement:
			return nil
		}
	}
}

// DecodeXML reads a DMN XML document and builds a graph from it.
func DecodeXML(r io.Reader, opts ...dmn.GraphOption) (*dmn.Graph, error) {
	var defs TDefinitions
	if err := xml.NewDecoder(r).Decode(&defs); err != nil {
		return nil, errors.Wrap(err, "decoding DMN XML")
	}
	d, err := defs.document()
	if err != nil {
		return nil, errors.Wrap(err, "decoding DMN XML")
	}
	return d.Build(opts...)
}

// EncodeXML writes g as a DMN 1.3 XML document.
func EncodeXML(w io.Writer, g *dmn.Graph) error {
	if g == nil {
		return errors.New("attempt to encode nil graph")
	}
	defs, err := definitions(FromGraph(g))
	if err != nil {
		return errors.Wrap(err, "encoding DMN XML")
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(defs); err != nil {
		return errors.Wrap(err, "encoding DMN XML")
	}
	return enc.Close()
}

// -------------------------------------------------- READING

// ref returns the id an href points to.
func ref(h *THref) string {
	if h == nil {
		return ""
	}
	if i := strings.LastIndex(h.Href, "#"); i >= 0 {
		return h.Href[i+1:]
	}
	return h.Href
}

func refs(hs []THref) []string {
	var out []string
	for i := range hs {
		out = append(out, ref(&hs[i]))
	}
	return out
}

func elementName(name string, v *TInformationItem) string {
	if name == "" && v != nil {
		return v.Name
	}
	return name
}

func typeRef(v *TInformationItem) string {
	if v == nil {
		return ""
	}
	return v.TypeRef
}

// document converts the definitions to records. Elements without an id
// get a generated one here, so that the requirements they hold can name
// them.
func (d *TDefinitions) document() (*Document, error) {
	doc := &Document{Name: d.Name}

	for _, el := range d.Elements {
		switch x := el.(type) {
		case *TInputData:
			if x.ID == "" {
				x.ID = newID()
			}
			doc.Nodes = append(doc.Nodes, NodeRecord{
				ID:          x.ID,
				Name:        elementName(x.Name, x.Variable),
				Kind:        "inputData",
				Description: x.Description,
				TypeRef:     typeRef(x.Variable),
			})

		case *TDecision:
			if x.ID == "" {
				x.ID = newID()
			}
			rec := NodeRecord{
				ID:          x.ID,
				Name:        elementName(x.Name, x.Variable),
				Kind:        "decision",
				Description: x.Description,
				TypeRef:     typeRef(x.Variable),
			}
			if err := setLogic(&rec, x.DecisionTable, x.LiteralExpression); err != nil {
				return nil, errors.Wrapf(err, "decision %s", x.ID)
			}
			doc.Nodes = append(doc.Nodes, rec)
			for _, ir := range x.InformationRequirements {
				src := ref(ir.RequiredDecision)
				if src == "" {
					src = ref(ir.RequiredInput)
				}
				if src == "" {
					return nil, errors.Errorf("decision %s: information requirement without a required element", x.ID)
				}
				doc.Edges = append(doc.Edges, EdgeRecord{ID: ir.ID, Type: "information", From: src, To: x.ID})
			}
			doc.Edges = append(doc.Edges, knowledgeEdges(x.ID, x.KnowledgeRequirements)...)
			doc.Edges = append(doc.Edges, authorityEdges(x.ID, x.AuthorityRequirements)...)

		case *TBusinessKnowledgeModel:
			if x.ID == "" {
				x.ID = newID()
			}
			rec := NodeRecord{
				ID:          x.ID,
				Name:        elementName(x.Name, x.Variable),
				Kind:        "businessKnowledgeModel",
				Description: x.Description,
				TypeRef:     typeRef(x.Variable),
			}
			if fn := x.EncapsulatedLogic; fn != nil {
				for _, p := range fn.FormalParameters {
					rec.Parameters = append(rec.Parameters, p.Name)
				}
				if err := setLogic(&rec, fn.DecisionTable, fn.LiteralExpression); err != nil {
					return nil, errors.Wrapf(err, "business knowledge model %s", x.ID)
				}
			}
			doc.Nodes = append(doc.Nodes, rec)
			doc.Edges = append(doc.Edges, knowledgeEdges(x.ID, x.KnowledgeRequirements)...)
			doc.Edges = append(doc.Edges, authorityEdges(x.ID, x.AuthorityRequirements)...)

		case *TKnowledgeSource:
			if x.ID == "" {
				x.ID = newID()
			}
			doc.Nodes = append(doc.Nodes, NodeRecord{
				ID:          x.ID,
				Name:        x.Name,
				Kind:        "knowledgeSource",
				Description: x.Description,
				Owner:       ref(x.Owner),
				Location:    x.LocationURI,
			})
			doc.Edges = append(doc.Edges, authorityEdges(x.ID, x.AuthorityRequirements)...)

		case *TDecisionService:
			if x.ID == "" {
				x.ID = newID()
			}
			doc.Services = append(doc.Services, ServiceRecord{
				ID:             x.ID,
				Name:           x.Name,
				Outputs:        refs(x.OutputDecisions),
				Encapsulated:   refs(x.EncapsulatedDecisions),
				InputDecisions: refs(x.InputDecisions),
				InputData:      refs(x.InputData),
			})
		}
	}
	return doc, nil
}

func knowledgeEdges(target string, krs []TKnowledgeRequirement) []EdgeRecord {
	var out []EdgeRecord
	for _, kr := range krs {
		e := EdgeRecord{ID: kr.ID, Type: "knowledge", From: ref(&kr.RequiredKnowledge), To: target}
		if kr.Extension != nil {
			for _, b := range kr.Extension.Bindings {
				e.Bindings = append(e.Bindings, BindingRecord{Parameter: b.Parameter.Name, Expression: b.LiteralExpression.Text})
			}
		}
		out = append(out, e)
	}
	return out
}

func authorityEdges(target string, ars []TAuthorityRequirement) []EdgeRecord {
	var out []EdgeRecord
	for _, ar := range ars {
		src := ref(ar.RequiredAuthority)
		if src == "" {
			src = ref(ar.RequiredDecision)
		}
		if src == "" {
			src = ref(ar.RequiredInput)
		}
		out = append(out, EdgeRecord{ID: ar.ID, Type: "authority", From: src, To: target})
	}
	return out
}

func setLogic(rec *NodeRecord, dt *TDecisionTable, le *TLiteralExpression) error {
	switch {
	case dt != nil && le != nil:
		return errors.New("both a decision table and a literal expression")
	case le != nil:
		rec.Literal = &LiteralRecord{Text: strings.TrimSpace(le.Text), Language: language(le.ExpressionLanguage)}
	case dt != nil:
		t := &TableRecord{
			Name:        dt.Label,
			HitPolicy:   dt.HitPolicy,
			Aggregation: dt.Aggregation,
		}
		if t.Name == "" {
			t.Name = rec.Name
		}
		for _, in := range dt.Inputs {
			t.Inputs = append(t.Inputs, InputRecord{Label: in.Label, Expression: strings.TrimSpace(in.InputExpression.Text)})
		}
		for _, out := range dt.Outputs {
			o := OutputRecord{Name: out.Name}
			if o.Name == "" {
				o.Name = out.Label
			}
			if out.OutputValues != nil && strings.TrimSpace(out.OutputValues.Text) != "" {
				o.Allowed = feel.SplitTests(out.OutputValues.Text)
			}
			t.Outputs = append(t.Outputs, o)
		}
		for _, r := range dt.Rules {
			rule := RuleRecord{
				When:       make([]string, len(r.InputEntries)),
				Then:       make([]string, len(r.OutputEntries)),
				Annotation: r.Description,
			}
			for i, e := range r.InputEntries {
				rule.When[i] = strings.TrimSpace(e.Text)
			}
			for i, e := range r.OutputEntries {
				rule.Then[i] = strings.TrimSpace(e.Text)
			}
			t.Rules = append(t.Rules, rule)
		}
		rec.Table = t
	}
	return nil
}

// language maps FEEL language URIs to the built-in language.
func language(uri string) string {
	if strings.Contains(strings.ToUpper(uri), "/FEEL/") {
		return ""
	}
	return uri
}

// -------------------------------------------------- WRITING

// childID returns a stable id for a part of element parent, so that
// encoding the same graph twice produces the same document.
func childID(parent, part string, i int) string {
	return "_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%s/%d", parent, part, i))).String()
}

func href(id string) *THref {
	return &THref{Href: "#" + id}
}

func hrefs(ids []string) []THref {
	var out []THref
	for _, id := range ids {
		out = append(out, *href(id))
	}
	return out
}

func definitions(d *Document) (*TDefinitions, error) {
	defs := &TDefinitions{
		ID:        childID(d.Name, "definitions", 0),
		Name:      d.Name,
		Namespace: "https://github.com/ezachrisen/dmn/" + d.Name,
	}

	kinds := map[string]string{}
	for _, n := range d.Nodes {
		kinds[n.ID] = n.Kind
	}
	byTarget := map[string][]EdgeRecord{}
	for _, e := range d.Edges {
		if _, ok := kinds[e.To]; !ok {
			return nil, errors.Errorf("requirement %s->%s: unknown target", e.From, e.To)
		}
		byTarget[e.To] = append(byTarget[e.To], e)
	}

	for _, n := range d.Nodes {
		var (
			info      []TInformationRequirement
			knowledge []TKnowledgeRequirement
			authority []TAuthorityRequirement
		)
		for _, e := range byTarget[n.ID] {
			switch e.Type {
			case "information":
				ir := TInformationRequirement{ID: e.ID}
				switch kinds[e.From] {
				case "inputData":
					ir.RequiredInput = href(e.From)
				case "decision":
					ir.RequiredDecision = href(e.From)
				default:
					return nil, errors.Errorf("information requirement %s->%s: source must be input data or a decision", e.From, e.To)
				}
				info = append(info, ir)
			case "knowledge":
				kr := TKnowledgeRequirement{ID: e.ID, RequiredKnowledge: *href(e.From)}
				if len(e.Bindings) > 0 {
					kr.Extension = &TExtension{}
					for _, b := range e.Bindings {
						kr.Extension.Bindings = append(kr.Extension.Bindings, TBinding{
							Parameter:         TInformationItem{Name: b.Parameter},
							LiteralExpression: TLiteralExpression{Text: b.Expression},
						})
					}
				}
				knowledge = append(knowledge, kr)
			case "authority":
				authority = append(authority, TAuthorityRequirement{ID: e.ID, RequiredAuthority: href(e.From)})
			default:
				return nil, errors.Errorf("requirement %s->%s: unknown requirement type %q", e.From, e.To, e.Type)
			}
		}

		variable := &TInformationItem{Name: n.Name, TypeRef: n.TypeRef}
		switch n.Kind {
		case "inputData":
			if len(byTarget[n.ID]) > 0 {
				return nil, errors.Errorf("node %s: input data cannot hold requirements", n.ID)
			}
			defs.Elements = append(defs.Elements, &TInputData{ID: n.ID, Name: n.Name, Description: n.Description, Variable: variable})

		case "decision":
			x := &TDecision{
				ID:                      n.ID,
				Name:                    n.Name,
				Description:             n.Description,
				Variable:                variable,
				InformationRequirements: info,
				KnowledgeRequirements:   knowledge,
				AuthorityRequirements:   authority,
			}
			x.DecisionTable, x.LiteralExpression = logic(n)
			defs.Elements = append(defs.Elements, x)

		case "businessKnowledgeModel":
			if len(info) > 0 {
				return nil, errors.Errorf("node %s: a business knowledge model cannot hold information requirements", n.ID)
			}
			fn := &TFunctionDefinition{}
			for i, p := range n.Parameters {
				fn.FormalParameters = append(fn.FormalParameters, TInformationItem{ID: childID(n.ID, "parameter", i), Name: p})
			}
			fn.DecisionTable, fn.LiteralExpression = logic(n)
			defs.Elements = append(defs.Elements, &TBusinessKnowledgeModel{
				ID:                    n.ID,
				Name:                  n.Name,
				Description:           n.Description,
				Variable:              variable,
				EncapsulatedLogic:     fn,
				KnowledgeRequirements: knowledge,
				AuthorityRequirements: authority,
			})

		case "knowledgeSource":
			if len(info) > 0 || len(knowledge) > 0 {
				return nil, errors.Errorf("node %s: a knowledge source holds authority requirements only", n.ID)
			}
			x := &TKnowledgeSource{
				ID:                    n.ID,
				Name:                  n.Name,
				LocationURI:           n.Location,
				Description:           n.Description,
				AuthorityRequirements: authority,
			}
			if n.Owner != "" {
				x.Owner = &THref{Href: n.Owner}
			}
			defs.Elements = append(defs.Elements, x)

		default:
			return nil, errors.Errorf("node %s: unknown node kind %q", n.ID, n.Kind)
		}
	}

	for _, s := range d.Services {
		defs.Elements = append(defs.Elements, &TDecisionService{
			ID:                    s.ID,
			Name:                  s.Name,
			OutputDecisions:       hrefs(s.Outputs),
			EncapsulatedDecisions: hrefs(s.Encapsulated),
			InputDecisions:        hrefs(s.InputDecisions),
			InputData:             hrefs(s.InputData),
		})
	}
	return defs, nil
}

// logic converts the logic of a node record.
func logic(n NodeRecord) (*TDecisionTable, *TLiteralExpression) {
	if n.Literal != nil {
		le := &TLiteralExpression{ID: childID(n.ID, "literal", 0), Text: n.Literal.Text}
		if n.Literal.Language != "" {
			le.ExpressionLanguage = n.Literal.Language
		}
		return nil, le
	}
	if n.Table == nil {
		return nil, nil
	}

	t := n.Table
	dt := &TDecisionTable{
		ID:          childID(n.ID, "table", 0),
		Label:       t.Name,
		HitPolicy:   hitPolicyName(t.HitPolicy),
		Aggregation: t.Aggregation,
	}
	for i, in := range t.Inputs {
		dt.Inputs = append(dt.Inputs, TInput{
			ID:              childID(n.ID, "input", i),
			Label:           in.Label,
			InputExpression: TLiteralExpression{ID: childID(n.ID, "inputExpression", i), Text: in.Expression},
		})
	}
	for i, out := range t.Outputs {
		o := TOutput{ID: childID(n.ID, "output", i), Name: out.Name}
		if len(out.Allowed) > 0 {
			o.OutputValues = &TUnaryTests{Text: strings.Join(out.Allowed, ",")}
		}
		dt.Outputs = append(dt.Outputs, o)
	}
	for r, rule := range t.Rules {
		x := TRule{ID: childID(n.ID, "rule", r), Description: rule.Annotation}
		for c, txt := range rule.When {
			x.InputEntries = append(x.InputEntries, TUnaryTests{ID: childID(n.ID, fmt.Sprintf("rule/%d/in", r), c), Text: txt})
		}
		for c, txt := range rule.Then {
			x.OutputEntries = append(x.OutputEntries, TLiteralExpression{ID: childID(n.ID, fmt.Sprintf("rule/%d/out", r), c), Text: txt})
		}
		dt.Rules = append(dt.Rules, x)
	}
	return dt, nil
}

// hitPolicyName converts a symbol or name to the name DMN XML uses, such
// as "RULE ORDER".
func hitPolicyName(s string) string {
	h, err := table.ParseHitPolicy(s)
	if err != nil {
		return s
	}
	return strings.ToUpper(h.Name())
}
