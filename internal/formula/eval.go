package formula

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jwintz/obsidianp-sub000/internal/value"
)

const day = 24 * time.Hour

func (n litNode) eval(*evalCtx) (value.Value, error) { return n.v, nil }

func (n refNode) eval(c *evalCtx) (value.Value, error) {
	if c.env == nil {
		return value.Null, nil
	}
	return c.env.Property(n.key), nil
}

func (n unaryNode) eval(c *evalCtx) (value.Value, error) {
	x, err := n.x.eval(c)
	if err != nil {
		return value.Null, err
	}
	if n.op == "!" {
		return value.OfBool(!x.Truthy()), nil
	}
	f, ok := x.AsNumber()
	if !ok {
		return value.Null, fmt.Errorf("%w: cannot negate %s", ErrEval, x.Kind)
	}
	return value.OfNumber(-f), nil
}

func (n binaryNode) eval(c *evalCtx) (value.Value, error) {
	l, err := n.l.eval(c)
	if err != nil {
		return value.Null, err
	}

	// Short-circuit logic operators before evaluating the right side.
	switch n.op {
	case "&&":
		if !l.Truthy() {
			return value.OfBool(false), nil
		}
		r, err := n.r.eval(c)
		if err != nil {
			return value.Null, err
		}
		return value.OfBool(r.Truthy()), nil
	case "||":
		if l.Truthy() {
			return value.OfBool(true), nil
		}
		r, err := n.r.eval(c)
		if err != nil {
			return value.Null, err
		}
		return value.OfBool(r.Truthy()), nil
	}

	r, err := n.r.eval(c)
	if err != nil {
		return value.Null, err
	}

	switch n.op {
	case "==":
		return value.OfBool(value.Equal(l, r)), nil
	case "!=":
		return value.OfBool(!value.Equal(l, r)), nil
	case "<", "<=", ">", ">=":
		if l.IsAbsent() || r.IsAbsent() {
			return value.OfBool(false), nil
		}
		cmp := value.Compare(l, r)
		switch n.op {
		case "<":
			return value.OfBool(cmp < 0), nil
		case "<=":
			return value.OfBool(cmp <= 0), nil
		case ">":
			return value.OfBool(cmp > 0), nil
		default:
			return value.OfBool(cmp >= 0), nil
		}
	case "+":
		return add(l, r)
	case "-":
		return subtract(l, r)
	default:
		return arith(n.op, l, r)
	}
}

func add(l, r value.Value) (value.Value, error) {
	switch {
	case l.Kind == value.Number && r.Kind == value.Number:
		return value.OfNumber(l.Num + r.Num), nil
	case l.Kind == value.Date && r.Kind == value.Number:
		return value.OfTime(l.Time.Add(time.Duration(r.Num * float64(day)))), nil
	case l.IsAbsent() && r.IsAbsent():
		return value.Null, nil
	default:
		return value.OfString(l.String() + r.String()), nil
	}
}

func subtract(l, r value.Value) (value.Value, error) {
	if l.Kind == value.Date || r.Kind == value.Date {
		lt, okL := l.AsTime()
		if okL && r.Kind == value.Number {
			return value.OfTime(lt.Add(-time.Duration(r.Num * float64(day)))), nil
		}
		rt, okR := r.AsTime()
		if okL && okR {
			return value.OfNumber(lt.Sub(rt).Hours() / 24), nil
		}
		return value.Null, fmt.Errorf("%w: cannot subtract %s from %s", ErrEval, r.Kind, l.Kind)
	}
	return arith("-", l, r)
}

func arith(op string, l, r value.Value) (value.Value, error) {
	if l.IsAbsent() || r.IsAbsent() {
		return value.Null, nil
	}
	a, okA := l.AsNumber()
	b, okB := r.AsNumber()
	if !okA || !okB {
		return value.Null, fmt.Errorf("%w: %s %s %s is not numeric", ErrEval, l.Kind, op, r.Kind)
	}
	switch op {
	case "-":
		return value.OfNumber(a - b), nil
	case "*":
		return value.OfNumber(a * b), nil
	case "/":
		if b == 0 {
			return value.Null, fmt.Errorf("%w: division by zero", ErrEval)
		}
		return value.OfNumber(a / b), nil
	case "%":
		if b == 0 {
			return value.Null, fmt.Errorf("%w: division by zero", ErrEval)
		}
		return value.OfNumber(math.Mod(a, b)), nil
	default:
		return value.Null, fmt.Errorf("%w: unknown operator %s", ErrEval, op)
	}
}

func (n callNode) eval(c *evalCtx) (value.Value, error) {
	if n.fn.lazy != nil {
		return n.fn.lazy(c, n.args)
	}
	args := make([]value.Value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(c)
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}
	v, err := n.fn.eager(c, args)
	if err != nil {
		return value.Null, fmt.Errorf("%s: %w", n.name, err)
	}
	return v, nil
}

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	eager   func(c *evalCtx, args []value.Value) (value.Value, error)
	lazy    func(c *evalCtx, args []node) (value.Value, error)
}

func (f function) arity() string {
	switch {
	case f.maxArgs < 0:
		return fmt.Sprintf("at least %d", f.minArgs)
	case f.minArgs == f.maxArgs:
		return fmt.Sprint(f.minArgs)
	default:
		return fmt.Sprintf("%d to %d", f.minArgs, f.maxArgs)
	}
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"if": {minArgs: 2, maxArgs: 3, lazy: func(c *evalCtx, args []node) (value.Value, error) {
			cond, err := args[0].eval(c)
			if err != nil {
				return value.Null, err
			}
			if cond.Truthy() {
				return args[1].eval(c)
			}
			if len(args) == 3 {
				return args[2].eval(c)
			}
			return value.Null, nil
		}},
		"default": {minArgs: 2, maxArgs: 2, lazy: func(c *evalCtx, args []node) (value.Value, error) {
			v, err := args[0].eval(c)
			if err != nil || v.IsAbsent() {
				return args[1].eval(c)
			}
			return v, nil
		}},
		"now": {maxArgs: 0, eager: func(c *evalCtx, _ []value.Value) (value.Value, error) {
			return value.OfTime(c.now), nil
		}},
		"today": {maxArgs: 0, eager: func(c *evalCtx, _ []value.Value) (value.Value, error) {
			y, m, d := c.now.Date()
			return value.OfTime(time.Date(y, m, d, 0, 0, 0, 0, c.now.Location())), nil
		}},
		"date": {minArgs: 1, maxArgs: 1, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			if args[0].IsAbsent() {
				return value.Null, nil
			}
			t, ok := args[0].AsTime()
			if !ok {
				return value.Null, fmt.Errorf("%w: unparseable date %q", ErrEval, args[0].String())
			}
			return value.OfTime(t), nil
		}},
		"days": {minArgs: 2, maxArgs: 2, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			a, okA := args[0].AsTime()
			b, okB := args[1].AsTime()
			if !okA || !okB {
				return value.Null, nil
			}
			return value.OfNumber(math.Floor(b.Sub(a).Hours() / 24)), nil
		}},
		"lower": {minArgs: 1, maxArgs: 1, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			return mapString(args[0], strings.ToLower), nil
		}},
		"upper": {minArgs: 1, maxArgs: 1, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			return mapString(args[0], strings.ToUpper), nil
		}},
		"len": {minArgs: 1, maxArgs: 1, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			switch args[0].Kind {
			case value.Absent:
				return value.OfNumber(0), nil
			case value.List:
				return value.OfNumber(float64(len(args[0].List))), nil
			default:
				return value.OfNumber(float64(utf8.RuneCountInString(args[0].String()))), nil
			}
		}},
		"concat": {minArgs: 1, maxArgs: -1, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(a.String())
			}
			return value.OfString(b.String()), nil
		}},
		"contains": {minArgs: 2, maxArgs: 2, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			return value.OfBool(args[0].Contains(args[1].String())), nil
		}},
		"round": {minArgs: 1, maxArgs: 2, eager: func(_ *evalCtx, args []value.Value) (value.Value, error) {
			if args[0].IsAbsent() {
				return value.Null, nil
			}
			f, ok := args[0].AsNumber()
			if !ok {
				return value.Null, fmt.Errorf("%w: round of %s", ErrEval, args[0].Kind)
			}
			digits := 0.0
			if len(args) == 2 {
				digits, _ = args[1].AsNumber()
			}
			scale := math.Pow(10, digits)
			return value.OfNumber(math.Round(f*scale) / scale), nil
		}},
	}
}

func mapString(v value.Value, fn func(string) string) value.Value {
	switch v.Kind {
	case value.Absent:
		return v
	case value.List:
		out := make([]string, len(v.List))
		for i, s := range v.List {
			out[i] = fn(s)
		}
		return value.OfList(out)
	default:
		return value.OfString(fn(v.String()))
	}
}

// Functions returns the names of the built-in functions in sorted order.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
