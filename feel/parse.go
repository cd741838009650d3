package feel

import (
	"fmt"
	"time"

	"github.com/ezachrisen/dmn/value"
)

// Parse parses the text of a decision table cell or a simple expression.
//
//	-                      any value
//	"Gold"                 equality (a bare literal or name)
//	< 10, <= 1000, != "x"  comparison
//	[100..500], ]1..5[     range, with per-bound inclusivity
//	"Gold", "Silver"       disjunction
//	not("Gold")            negation
//	["a", ["b"]]           list, items may be lists
//
// Names may hold spaces, as in "Customer Status" or "Line 2". A name never
// starts with a keyword (true, false, null, not), but may contain one
// after its first word, as in "Is null".
//
// Empty text parses to the same node as "-".
// Malformed text is reported as a *ParseError.
func Parse(text string) (Node, error) {
	if err := CheckDelimiters(text); err != nil {
		return nil, err
	}
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{text: text, toks: toks}
	if p.cur().kind == tEOF {
		return &UnaryTest{Op: OpAny}, nil
	}

	var n Node
	if p.cur().kind == tNot && p.peek().kind == tLParen {
		p.advance()
		p.advance()
		inner, err := p.parseTests()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		n = &Negation{Inner: inner}
	} else {
		n, err = p.parseTests()
		if err != nil {
			return nil, err
		}
	}
	if p.cur().kind != tEOF {
		return nil, p.errorf("unexpected %q", p.cur().text)
	}
	return n, nil
}

type parser struct {
	text string
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) peek() token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Text: p.text, Offset: p.cur().off, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k tokenKind, what string) error {
	if p.cur().kind != k {
		if p.cur().kind == tEOF {
			return p.errorf("expected %s, found end of text", what)
		}
		return p.errorf("expected %s, found %q", what, p.cur().text)
	}
	p.advance()
	return nil
}

// parseTests parses a comma-separated list of tests.
func (p *parser) parseTests() (Node, error) {
	var alts []Node
	for {
		t, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		alts = append(alts, t)
		if p.cur().kind != tComma {
			break
		}
		p.advance()
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &Disjunction{Alternatives: alts}, nil
}

func (p *parser) parseTest() (Node, error) {
	switch t := p.cur(); t.kind {
	case tDash:
		p.advance()
		return &UnaryTest{Op: OpAny}, nil
	case tOp:
		p.advance()
		op, ok := comparators[t.text]
		if !ok {
			return nil, p.errorf("unknown comparator %q", t.text)
		}
		operand, err := p.parseEndpoint()
		if err != nil {
			return nil, err
		}
		return &UnaryTest{Op: op, Operand: operand}, nil
	case tLParen, tRBracket:
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		return &UnaryTest{Op: OpIn, Operand: r}, nil
	case tLBracket:
		n, err := p.parseBracket()
		if err != nil {
			return nil, err
		}
		if _, ok := n.(*Range); ok {
			return &UnaryTest{Op: OpIn, Operand: n}, nil
		}
		return n, nil
	}
	return p.parseEndpoint()
}

var comparators = map[string]Op{
	"=":  OpEq,
	"!=": OpNe,
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
}

// parseBracket parses either a range opened with '[' or a list literal.
func (p *parser) parseBracket() (Node, error) {
	start := p.pos
	p.advance()
	if p.cur().kind == tRBracket {
		p.advance()
		return &List{}, nil
	}
	first, err := p.parseItem()
	if err != nil {
		return nil, err
	}
	if _, nested := first.(*List); !nested && p.cur().kind == tDotDot {
		p.pos = start
		return p.parseRange()
	}

	items := []Node{first}
	for p.cur().kind == tComma {
		p.advance()
		it, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := p.expect(tRBracket, "']'"); err != nil {
		return nil, err
	}
	return &List{Items: items}, nil
}

// parseItem parses a list item: an endpoint or a nested list.
func (p *parser) parseItem() (Node, error) {
	t := p.cur()
	if t.kind != tLBracket {
		return p.parseEndpoint()
	}
	n, err := p.parseBracket()
	if err != nil {
		return nil, err
	}
	if _, ok := n.(*Range); ok {
		return nil, &ParseError{Text: p.text, Offset: t.off, Message: "a range cannot be a list item"}
	}
	return n, nil
}

func (p *parser) parseRange() (Node, error) {
	r := &Range{}
	switch p.advance().kind {
	case tLBracket:
		r.LowInclusive = true
	case tLParen, tRBracket:
	default:
		return nil, p.errorf("expected range")
	}

	var err error
	if r.Low, err = p.parseEndpoint(); err != nil {
		return nil, err
	}
	if err := p.expect(tDotDot, "'..'"); err != nil {
		return nil, err
	}
	if r.High, err = p.parseEndpoint(); err != nil {
		return nil, err
	}

	switch p.cur().kind {
	case tRBracket:
		r.HighInclusive = true
	case tRParen, tLBracket:
	default:
		return nil, p.errorf("expected end of range")
	}
	p.advance()
	return r, nil
}

// parseEndpoint parses a literal or a variable name.
func (p *parser) parseEndpoint() (Node, error) {
	t := p.cur()
	switch t.kind {
	case tNumber, tString:
		p.advance()
		return &Literal{Value: t.val}, nil
	case tTrue:
		p.advance()
		return &Literal{Value: value.Bool(true)}, nil
	case tFalse:
		p.advance()
		return &Literal{Value: value.Bool(false)}, nil
	case tNull:
		p.advance()
		return &Literal{Value: value.Null()}, nil
	case tName:
		p.advance()
		if (t.text == "date" || t.text == "date and time") && p.cur().kind == tLParen {
			return p.parseDate(t.text)
		}
		return &Variable{Name: t.text}, nil
	case tEOF:
		return nil, p.errorf("unexpected end of text")
	}
	return nil, p.errorf("unexpected %q", t.text)
}

// parseDate parses the argument of date("2024-01-31") or
// date and time("2024-01-31T10:00:00Z").
func (p *parser) parseDate(fn string) (Node, error) {
	p.advance()
	arg := p.cur()
	if arg.kind != tString {
		return nil, p.errorf("%s expects a string argument", fn)
	}
	p.advance()
	if err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}

	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}
	if fn == "date" {
		layouts = []string{time.DateOnly}
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, arg.val.Str(), time.UTC); err == nil {
			return &Literal{Value: value.DateTime(ts)}, nil
		}
	}
	return nil, &ParseError{Text: p.text, Offset: arg.off, Message: fmt.Sprintf("invalid %s %s", fn, arg.text)}
}
