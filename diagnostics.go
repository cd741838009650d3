package dmn

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Delta456/box-cli-maker/v2"
	"github.com/alexeyco/simpletable"
	"github.com/dustin/go-humanize"

	"github.com/ezachrisen/dmn/table"
	"github.com/ezachrisen/dmn/value"
)

// Diagnostics records the nodes visited by an evaluation.
type Diagnostics struct {
	Graph  string
	Inputs map[string]any

	// Steps in the order evaluation finished them. A business knowledge
	// model appears before the decision that invoked it.
	Steps []Step
}

// Step records the evaluation of one decision or model invocation.
type Step struct {
	NodeID string
	Name   string
	Kind   NodeKind
	Logic  Logic

	// Nesting of model invocations; 0 for decisions.
	Depth int

	// The values the logic could read.
	Scope []value.Field
	Value value.Value

	// Decision table logic only.
	Table *table.Result

	Duration time.Duration
}

// AsString renders the diagnostics as a report.
func (d *Diagnostics) AsString() string {
	Box := box.New(box.Config{Px: 2, Py: 1, Type: "Double", Color: "Cyan", TitlePos: "Top", ContentAlign: "Left"})

	s := strings.Builder{}
	if d.Graph != "" {
		s.WriteString("Graph:\n")
		s.WriteString("------\n")
		s.WriteString(d.Graph)
		s.WriteString("\n\n")
	}

	st := d.stepTable()
	s.WriteString("Evaluation Steps:\n")
	s.WriteString("-----------------\n")
	s.WriteString(st.String())

	for i, step := range d.Steps {
		switch l := step.Logic.(type) {
		case *LiteralExpression:
			s.WriteString(fmt.Sprintf("\n\n%s step, %s:\n", humanize.Ordinal(i+1), step.Name))
			s.WriteString(wordWrap(l.Text, 100))
		case *DecisionTable:
			if step.Table != nil {
				s.WriteString(fmt.Sprintf("\n\n%s step, %s:\n", humanize.Ordinal(i+1), step.Name))
				s.WriteString(step.Table.String())
			}
		}
	}

	if d.Inputs != nil {
		dt := dataTable(d.Inputs)
		s.WriteString("\n\n")
		s.WriteString("Input Data:\n")
		s.WriteString("-----------\n")
		s.WriteString(dt.String())
	}
	return Box.String("DMN EVALUATION DIAGNOSTIC REPORT", s.String())
}

func dataTable(data map[string]any) *simpletable.Table {
	st := simpletable.New()
	st.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "Name"},
			{Align: simpletable.AlignCenter, Text: "Value"},
		},
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		r := []*simpletable.Cell{
			{Text: k},
			{Text: fmt.Sprintf("%v", data[k])},
		}
		st.Body.Cells = append(st.Body.Cells, r)
	}

	st.SetStyle(simpletable.StyleUnicode)
	return st
}

func (d *Diagnostics) stepTable() *simpletable.Table {
	st := simpletable.New()
	st.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "#"},
			{Align: simpletable.AlignCenter, Text: "Node"},
			{Align: simpletable.AlignCenter, Text: "Kind"},
			{Align: simpletable.AlignCenter, Text: "Logic"},
			{Align: simpletable.AlignCenter, Text: "Rules"},
			{Align: simpletable.AlignCenter, Text: "Value"},
			{Align: simpletable.AlignCenter, Text: "Time"},
		},
	}

	for i, step := range d.Steps {
		logic := ""
		if step.Logic != nil {
			logic = step.Logic.LogicKind()
		}
		r := []*simpletable.Cell{
			{Align: simpletable.AlignRight, Text: fmt.Sprintf("%d", i+1)},
			{Text: strings.Repeat("  ", step.Depth) + step.Name},
			{Text: step.Kind.String()},
			{Text: logic},
			{Text: matchedRules(step.Table)},
			{Text: step.Value.String()},
			{Align: simpletable.AlignRight, Text: step.Duration.String()},
		}
		st.Body.Cells = append(st.Body.Cells, r)
	}

	st.SetStyle(simpletable.StyleUnicode)
	return st
}

func matchedRules(tr *table.Result) string {
	if tr == nil {
		return ""
	}
	if len(tr.Matched) == 0 {
		return "none"
	}
	rules := make([]string, len(tr.Matched))
	for i, m := range tr.Matched {
		rules[i] = fmt.Sprint(m + 1)
	}
	return strings.Join(rules, ", ")
}

func wordWrap(text string, lineWidth int) string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return text
	}
	wrapped := words[0]
	spaceLeft := lineWidth - len(wrapped)
	for _, word := range words[1:] {
		if len(word)+1 > spaceLeft {
			wrapped += "\n" + word
			spaceLeft = lineWidth - len(word)
		} else {
			wrapped += " " + word
			spaceLeft -= 1 + len(word)
		}
	}

	return wrapped
}
