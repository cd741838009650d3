package feel

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ezachrisen/dmn/value"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tNumber
	tString
	tName
	tTrue
	tFalse
	tNull
	tNot
	tOp
	tDash
	tDotDot
	tComma
	tLParen
	tRParen
	tLBracket
	tRBracket
)

type token struct {
	kind tokenKind
	text string
	off  int
	val  value.Value
}

var keywords = map[string]tokenKind{
	"true":  tTrue,
	"false": tFalse,
	"null":  tNull,
	"not":   tNot,
}

type lexer struct {
	text string
	pos  int
}

func (l *lexer) errorf(off int, msg string) *ParseError {
	return &ParseError{Text: l.text, Offset: off, Message: msg}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.text) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.text[l.pos:])
	return r
}

func (l *lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.text) {
		return 0
	}
	return l.text[l.pos+off]
}

func (l *lexer) skipBlank() {
	for l.pos < len(l.text) {
		r, size := utf8.DecodeRuneInString(l.text[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// tokenize scans the whole text in a single left-to-right pass.
func tokenize(text string) ([]token, error) {
	l := &lexer{text: text}
	var out []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if t.kind == tEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipBlank()
	start := l.pos
	r := l.peek()
	switch {
	case r == 0:
		return token{kind: tEOF, off: start}, nil
	case r == '"':
		return l.lexString()
	case isDigit(r), r == '.' && isDigit(rune(l.peekAt(1))):
		return l.lexNumber()
	case r == '-':
		if c := rune(l.peekAt(1)); isDigit(c) || (c == '.' && isDigit(rune(l.peekAt(2)))) {
			return l.lexNumber()
		}
		l.pos++
		return token{kind: tDash, text: "-", off: start}, nil
	case r == '.':
		if l.peekAt(1) == '.' {
			l.pos += 2
			return token{kind: tDotDot, text: "..", off: start}, nil
		}
		return token{}, l.errorf(start, "unexpected '.'")
	case r == ',':
		l.pos++
		return token{kind: tComma, text: ",", off: start}, nil
	case r == '(':
		l.pos++
		return token{kind: tLParen, text: "(", off: start}, nil
	case r == ')':
		l.pos++
		return token{kind: tRParen, text: ")", off: start}, nil
	case r == '[':
		l.pos++
		return token{kind: tLBracket, text: "[", off: start}, nil
	case r == ']':
		l.pos++
		return token{kind: tRBracket, text: "]", off: start}, nil
	case r == '<' || r == '>':
		l.pos++
		if l.peek() == '=' {
			l.pos++
		}
		return token{kind: tOp, text: l.text[start:l.pos], off: start}, nil
	case r == '=':
		l.pos++
		return token{kind: tOp, text: "=", off: start}, nil
	case r == '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{kind: tOp, text: "!=", off: start}, nil
		}
		return token{}, l.errorf(start, "expected '=' after '!'")
	case isNameStart(r):
		return l.lexName(), nil
	}
	return token{}, l.errorf(start, "unexpected character "+quoteRune(r))
}

func (l *lexer) lexString() (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tString, text: l.text[start:l.pos], off: start, val: value.String(sb.String())}, nil
		case '\\':
			if l.pos+1 >= len(l.text) {
				return token{}, l.errorf(l.pos, "unterminated escape sequence")
			}
			switch e := l.text[l.pos+1]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(e)
			}
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, l.errorf(start, "unterminated string")
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.peek() == '-' {
		l.pos++
	}
	for isDigit(l.peek()) {
		l.pos++
	}
	// a '.' directly followed by another '.' starts a range operator
	if l.peek() == '.' && l.peekAt(1) != '.' {
		l.pos++
		for isDigit(l.peek()) {
			l.pos++
		}
	}
	text := l.text[start:l.pos]
	v, err := value.ParseNumber(text)
	if err != nil {
		return token{}, l.errorf(start, "invalid number "+text)
	}
	return token{kind: tNumber, text: text, off: start, val: v}, nil
}

// lexName reads a name. Names may consist of several words separated by
// whitespace, as in "Customer Status" or "Line 2"; the words are joined with
// a single space. A keyword is a name only when it follows another word, as
// in "Is null".
func (l *lexer) lexName() token {
	start := l.pos
	var words []string
	for {
		ws := l.pos
		for l.pos < len(l.text) {
			r, size := utf8.DecodeRuneInString(l.text[l.pos:])
			if !isNamePart(r) {
				break
			}
			l.pos += size
		}
		words = append(words, l.text[ws:l.pos])
		if _, kw := keywords[words[0]]; kw && len(words) == 1 {
			break
		}

		save := l.pos
		l.skipBlank()
		if next := l.peek(); l.pos == save || !(isNameStart(next) || isDigit(next)) {
			l.pos = save
			break
		}
	}

	name := strings.Join(words, " ")
	if len(words) == 1 {
		if k, ok := keywords[name]; ok {
			return token{kind: k, text: name, off: start}
		}
	}
	return token{kind: tName, text: name, off: start}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '?'
}

func isNamePart(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == '\''
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
