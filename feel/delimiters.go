package feel

import (
	"strings"
	"unicode"
)

// CheckDelimiters makes a quick pass over text and reports unbalanced
// parentheses, brackets, braces or quotes without parsing the expression.
// It is meant for early feedback while a cell is being edited.
//
// Parentheses and square brackets are counted as one group because range
// bounds mix them freely, as in "(1..5]" or "]1..5[". A ']' that is followed
// by an operand opens a range, and a '[' that is followed by a separator or
// the end of the text closes one. A '[' followed by another '[' opens a
// nested list.
func CheckDelimiters(text string) error {
	var (
		depth   int
		opens   []int
		braces  int
		braceAt int
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '"':
			end := closingQuote(text, i)
			if end < 0 {
				return &ParseError{Text: text, Offset: i, Message: "unterminated string"}
			}
			i = end
		case '(':
			depth++
			opens = append(opens, i)
		case '[':
			if next := nextNonBlank(text, i+1); startsOperand(text, i+1) || next == ']' || next == '[' {
				depth++
				opens = append(opens, i)
				continue
			}
			if depth == 0 {
				return &ParseError{Text: text, Offset: i, Message: "unexpected '['"}
			}
			depth--
			opens = opens[:len(opens)-1]
		case ')', ']':
			if c == ']' && startsOperand(text, i+1) {
				depth++
				opens = append(opens, i)
				continue
			}
			if depth == 0 {
				return &ParseError{Text: text, Offset: i, Message: "unexpected '" + string(c) + "'"}
			}
			depth--
			opens = opens[:len(opens)-1]
		case '{':
			if braces == 0 {
				braceAt = i
			}
			braces++
		case '}':
			if braces == 0 {
				return &ParseError{Text: text, Offset: i, Message: "unexpected '}'"}
			}
			braces--
		}
	}
	if depth > 0 {
		at := opens[len(opens)-1]
		return &ParseError{Text: text, Offset: at, Message: "unclosed '" + string(text[at]) + "'"}
	}
	if braces > 0 {
		return &ParseError{Text: text, Offset: braceAt, Message: "unclosed '{'"}
	}
	return nil
}

func closingQuote(text string, start int) int {
	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func nextNonBlank(text string, from int) byte {
	for i := from; i < len(text); i++ {
		if text[i] != ' ' && text[i] != '\t' && text[i] != '\n' && text[i] != '\r' {
			return text[i]
		}
	}
	return 0
}

// startsOperand reports whether the next non-blank character can begin a
// literal or a name.
func startsOperand(text string, from int) bool {
	c := nextNonBlank(text, from)
	if c == 0 {
		return false
	}
	if c == '"' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		return true
	}
	r := []rune(strings.TrimLeft(text[from:], " \t\r\n"))
	return len(r) > 0 && (unicode.IsLetter(r[0]) || r[0] == '_')
}
