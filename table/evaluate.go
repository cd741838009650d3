package table

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ezachrisen/dmn/feel"
	"github.com/ezachrisen/dmn/value"
)

// Evaluate evaluates the table against ctx.
//
// Each input expression is evaluated once to produce the subject of its
// column. A rule matches when every one of its input entries tests true
// against the subject of its column. The hit policy then decides which
// outputs of the matching rules form the result. No match is not an error.
func (t *Table) Evaluate(ctx *value.Context) (*Result, error) {
	p := t.prog
	if p == nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, ErrNotCompiled)
	}

	subjects := make([]value.Value, len(p.inputs))
	for i, n := range p.inputs {
		v, err := feel.EvaluateValue(n, ctx)
		if err != nil {
			return nil, &CellError{Table: t.Name, Rule: -1, Column: t.inputName(i), Text: t.Inputs[i].Expression, Err: err}
		}
		subjects[i] = v
	}

	var matched []int
	for r, tests := range p.tests {
		ok, err := t.ruleMatches(r, tests, subjects, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	res := &Result{
		Table:       t.Name,
		HitPolicy:   t.HitPolicy,
		Aggregation: t.Aggregation,
		Matched:     matched,
	}

	var err error
	switch t.HitPolicy {
	case Unique:
		err = t.unique(res, ctx)
	case Any:
		err = t.anyMatch(res, ctx)
	case First:
		err = t.first(res, ctx)
	case Priority:
		err = t.priority(res, ctx)
	case RuleOrder:
		err = t.ruleOrder(res, ctx)
	case OutputOrder:
		err = t.outputOrder(res, ctx)
	case Collect:
		err = t.collect(res, ctx)
	default:
		err = fmt.Errorf("table %s: unknown hit policy %d", t.Name, int(t.HitPolicy))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (t *Table) ruleMatches(r int, tests []feel.Node, subjects []value.Value, ctx *value.Context) (bool, error) {
	for c, n := range tests {
		ok, err := feel.EvaluateTest(n, subjects[c], ctx)
		if err != nil {
			return false, &CellError{Table: t.Name, Rule: r, Column: t.inputName(c), Text: t.Rules[r].Inputs[c], Err: err}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// row evaluates the output entries of rule r.
func (t *Table) row(r int, ctx *value.Context) (Row, error) {
	nodes := t.prog.results[r]
	row := make(Row, len(nodes))
	for c, n := range nodes {
		v, err := feel.EvaluateValue(n, ctx)
		if err != nil {
			return nil, &CellError{Table: t.Name, Rule: r, Column: t.outputName(c), Text: t.Rules[r].Outputs[c], Err: err}
		}
		row[c] = Binding{Name: t.Outputs[c].Name, Value: v}
	}
	return row, nil
}

func (t *Table) rows(rules []int, ctx *value.Context) ([]Row, error) {
	out := make([]Row, 0, len(rules))
	for _, r := range rules {
		row, err := t.row(r, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (t *Table) nullRow() Row {
	row := make(Row, len(t.Outputs))
	for c, o := range t.Outputs {
		row[c] = Binding{Name: o.Name, Value: value.Null()}
	}
	return row
}

func rowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !value.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func allEqual(rows []Row) bool {
	for _, r := range rows[1:] {
		if !rowsEqual(rows[0], r) {
			return false
		}
	}
	return true
}

// unique allows several matches only when they all produce the same row.
func (t *Table) unique(res *Result, ctx *value.Context) error {
	if len(res.Matched) == 0 {
		res.Rows = []Row{t.nullRow()}
		return nil
	}
	rows, err := t.rows(res.Matched, ctx)
	if err != nil {
		return err
	}
	if !allEqual(rows) {
		return &MultipleMatchError{Table: t.Name, Rules: res.Matched}
	}
	res.Rows = rows[:1]
	return nil
}

func (t *Table) anyMatch(res *Result, ctx *value.Context) error {
	if len(res.Matched) == 0 {
		res.Rows = []Row{t.nullRow()}
		return nil
	}
	rows, err := t.rows(res.Matched, ctx)
	if err != nil {
		return err
	}
	if !allEqual(rows) {
		return &ConflictingOutputsError{Table: t.Name, Rules: res.Matched}
	}
	res.Rows = rows[:1]
	return nil
}

func (t *Table) first(res *Result, ctx *value.Context) error {
	if len(res.Matched) == 0 {
		res.Rows = []Row{t.nullRow()}
		return nil
	}
	row, err := t.row(res.Matched[0], ctx)
	if err != nil {
		return err
	}
	res.Rows = []Row{row}
	return nil
}

// rank is the position of v in the allowed values of output clause c.
// Values that are not listed rank after all listed values.
func (t *Table) rank(c int, v value.Value) int {
	allowed := t.prog.allowed[c]
	for i, a := range allowed {
		if value.Equal(a, v) {
			return i
		}
	}
	return len(allowed)
}

// priority picks, for every output clause independently, the value with the
// highest priority among the matched rules. Ties go to the earliest rule.
func (t *Table) priority(res *Result, ctx *value.Context) error {
	if len(res.Matched) == 0 {
		res.Rows = []Row{t.nullRow()}
		return nil
	}
	rows, err := t.rows(res.Matched, ctx)
	if err != nil {
		return err
	}
	best := make(Row, len(t.Outputs))
	for c := range t.Outputs {
		pick := 0
		for i := 1; i < len(rows); i++ {
			if t.rank(c, rows[i][c].Value) < t.rank(c, rows[pick][c].Value) {
				pick = i
			}
		}
		best[c] = rows[pick][c]
	}
	res.Rows = []Row{best}
	return nil
}

func (t *Table) ruleOrder(res *Result, ctx *value.Context) error {
	rows, err := t.rows(res.Matched, ctx)
	if err != nil {
		return err
	}
	res.Rows = rows
	return nil
}

// outputOrder sorts the matched rows by decreasing priority, comparing
// output clauses left to right. Rows of equal priority keep rule order.
func (t *Table) outputOrder(res *Result, ctx *value.Context) error {
	rows, err := t.rows(res.Matched, ctx)
	if err != nil {
		return err
	}
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := rows[order[i]], rows[order[j]]
		for c := range t.Outputs {
			ra, rb := t.rank(c, a[c].Value), t.rank(c, b[c].Value)
			if ra != rb {
				return ra < rb
			}
		}
		return false
	})

	sorted := make([]Row, len(rows))
	for i, o := range order {
		sorted[i] = rows[o]
	}
	res.Rows = sorted
	return nil
}

func (t *Table) collect(res *Result, ctx *value.Context) error {
	rows, err := t.rows(res.Matched, ctx)
	if err != nil {
		return err
	}
	res.Rows = rows
	if t.Aggregation == AggList {
		return nil
	}

	if len(t.Outputs) != 1 {
		return &AggregationTypeError{
			Table:       t.Name,
			Aggregation: t.Aggregation,
			Rule:        -1,
			Reason:      fmt.Sprintf("table has %d output clauses, aggregation needs exactly one", len(t.Outputs)),
		}
	}

	if t.Aggregation == AggCount {
		res.aggregate, res.aggregated = value.Int(int64(len(rows))), true
		return nil
	}

	var nums []decimal.Decimal
	for i, row := range rows {
		v := row[0].Value
		switch v.Kind() {
		case value.KindNumber:
			nums = append(nums, v.Decimal())
		case value.KindNull:
		default:
			return &AggregationTypeError{
				Table:       t.Name,
				Aggregation: t.Aggregation,
				Rule:        res.Matched[i],
				Reason:      fmt.Sprintf("produced a %s, not a number", v.Kind()),
			}
		}
	}

	res.aggregated = true
	switch t.Aggregation {
	case AggSum:
		sum := decimal.Zero
		for _, n := range nums {
			sum = sum.Add(n)
		}
		res.aggregate = value.Number(sum)
	case AggMin:
		res.aggregate = value.Null()
		if len(nums) > 0 {
			res.aggregate = value.Number(decimal.Min(nums[0], nums[1:]...))
		}
	case AggMax:
		res.aggregate = value.Null()
		if len(nums) > 0 {
			res.aggregate = value.Number(decimal.Max(nums[0], nums[1:]...))
		}
	}
	return nil
}
