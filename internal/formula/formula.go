// Package formula compiles and evaluates the small expression language used
// for collection formulas.
//
// The grammar covers literals (numbers, quoted strings, true, false, null),
// property references using the filter key syntax (file.name, note.status,
// formula.other), the operators + - * / % == != < <= > >= && || !,
// parentheses and a fixed set of functions (see Functions).
package formula

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// Errors returned by Compile and Eval.
var (
	ErrSyntax   = errors.New("formula: syntax error")
	ErrEval     = errors.New("formula: evaluation error")
	ErrFunction = errors.New("formula: unknown function")
)

// Env resolves property references during evaluation.
type Env interface {
	Property(key string) value.Value
}

// Program is a compiled formula.
type Program struct {
	src  string
	root node
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string { return p.src }

// Compile parses src into a Program.
func Compile(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	ps := &parser{toks: toks}
	root, err := ps.expr(0)
	if err != nil {
		return nil, err
	}
	if t := ps.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w at %d: unexpected %q", ErrSyntax, t.pos, t.text)
	}
	return &Program{src: src, root: root}, nil
}

// Eval evaluates the program. now anchors now() and today().
func (p *Program) Eval(env Env, now time.Time) (value.Value, error) {
	return p.root.eval(&evalCtx{env: env, now: now})
}

type evalCtx struct {
	env Env
	now time.Time
}

type node interface {
	eval(*evalCtx) (value.Value, error)
}

type (
	litNode struct{ v value.Value }
	refNode struct{ key string }
	unaryNode struct {
		op string
		x  node
	}
	binaryNode struct {
		op   string
		l, r node
	}
	callNode struct {
		name string
		fn   function
		args []node
	}
)

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// expr parses a binary expression whose operators bind tighter than minPrec.
func (p *parser) expr(minPrec int) (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		prec, ok := precedence[t.text]
		if !ok || prec <= minPrec {
			return left, nil
		}
		p.next()
		right, err := p.expr(prec)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text, l: left, r: right}
	}
}

func (p *parser) unary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "!" || t.text == "-") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: t.text, x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w at %d: bad number %q", ErrSyntax, t.pos, t.text)
		}
		return litNode{value.OfNumber(f)}, nil
	case tokString:
		return litNode{value.OfString(t.text)}, nil
	case tokLParen:
		inner, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w at %d: expected )", ErrSyntax, closing.pos)
		}
		return inner, nil
	case tokIdent:
		switch t.text {
		case "true":
			return litNode{value.OfBool(true)}, nil
		case "false":
			return litNode{value.OfBool(false)}, nil
		case "null":
			return litNode{value.Null}, nil
		}
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		return refNode{key: t.text}, nil
	default:
		return nil, fmt.Errorf("%w at %d: unexpected %q", ErrSyntax, t.pos, t.text)
	}
}

func (p *parser) call(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunction, name.text)
	}
	p.next() // (
	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, fmt.Errorf("%w at %d: expected ) after arguments to %s", ErrSyntax, closing.pos, name.text)
	}
	if len(args) < fn.minArgs || fn.maxArgs >= 0 && len(args) > fn.maxArgs {
		return nil, fmt.Errorf("%w: %s takes %s arguments, got %d", ErrSyntax, name.text, fn.arity(), len(args))
	}
	return callNode{name: name.text, fn: fn, args: args}, nil
}
