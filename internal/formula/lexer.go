package formula

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// twoCharOps must be checked before single-character operators.
var twoCharOps = []string{"==", "!=", ">=", "<=", "&&", "||"}

const singleCharOps = "+-*/%<>!"

func lex(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			out = append(out, token{tokLParen, "(", i})
			i++
		case c == ')':
			out = append(out, token{tokRParen, ")", i})
			i++
		case c == ',':
			out = append(out, token{tokComma, ",", i})
			i++
		case c == '"' || c == '\'':
			s, n, err := lexString(src[i:], byte(c))
			if err != nil {
				return nil, fmt.Errorf("%w at %d: %v", ErrSyntax, i, err)
			}
			out = append(out, token{tokString, s, i})
			i += n
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			out = append(out, token{tokNumber, src[start:i], start})
		case c == '_' || c >= 0x80 || unicode.IsLetter(c):
			start := i
			for i < len(src) {
				r := rune(src[i])
				if r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) || r >= 0x80 {
					i++
					continue
				}
				break
			}
			out = append(out, token{tokIdent, src[start:i], start})
		default:
			matched := false
			for _, op := range twoCharOps {
				if strings.HasPrefix(src[i:], op) {
					out = append(out, token{tokOp, op, i})
					i += len(op)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if strings.ContainsRune(singleCharOps, c) {
				out = append(out, token{tokOp, string(c), i})
				i++
				continue
			}
			return nil, fmt.Errorf("%w at %d: unexpected %q", ErrSyntax, i, c)
		}
	}
	out = append(out, token{tokEOF, "", len(src)})
	return out, nil
}

func lexString(src string, quote byte) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			if i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			}
		case quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(src[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}
