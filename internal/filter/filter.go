// Package filter implements the collection filter language: a sum type of
// predicate forms and a pure evaluator over a single document.
package filter

import (
	"regexp"
	"strings"
	"time"

	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// Subject is the document a filter is evaluated against.
type Subject interface {
	// Property resolves a property key (built-in, metadata or formula).
	Property(key string) value.Value
	// HasTag reports tag membership.
	HasTag(tag string) bool
}

// Expr is a filter expression. The concrete types are And, Or, Not, Raw,
// Props and Invalid.
type Expr interface {
	isExpr()
}

// And holds when every operand holds. An empty And holds.
type And []Expr

// Or holds when any operand holds. An empty Or does not hold.
type Or []Expr

// Not negates its operand.
type Not struct {
	X Expr
}

// Raw is a textual predicate. Only `prop == "lit"`, `prop != "lit"` and
// `hasTag("tag")` are understood; any other text never matches.
type Raw struct {
	Text string
	pred rawPredicate
}

// Props is the map form: every clause must hold.
type Props []Clause

// Invalid is an expression of unrecognised shape. It never matches.
type Invalid struct {
	Reason string
}

func (And) isExpr()     {}
func (Or) isExpr()      {}
func (Not) isExpr()     {}
func (Raw) isExpr()     {}
func (Props) isExpr()   {}
func (Invalid) isExpr() {}

// Clause is one property key of the map form. Either Literal is set
// (equality) or Ops lists the operator comparisons that must all hold.
type Clause struct {
	Key     string
	Literal *value.Value
	Ops     []Op
}

// Op is a single operator comparison inside an operator object.
type Op struct {
	Name string
	Arg  value.Value

	re     *regexp.Regexp
	at     time.Time
	atOK   bool
	broken bool
}

// Eval evaluates e against s. A nil expression holds.
func Eval(e Expr, s Subject) bool {
	switch x := e.(type) {
	case nil:
		return true
	case And:
		for _, sub := range x {
			if !Eval(sub, s) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range x {
			if Eval(sub, s) {
				return true
			}
		}
		return false
	case Not:
		return !Eval(x.X, s)
	case Raw:
		return x.pred.eval(s)
	case Props:
		for _, c := range x {
			if !c.eval(s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (c Clause) eval(s Subject) bool {
	v := s.Property(c.Key)
	if c.Literal != nil {
		return value.Equal(v, *c.Literal)
	}
	if len(c.Ops) == 0 {
		return false
	}
	for _, op := range c.Ops {
		if !op.eval(v) {
			return false
		}
	}
	return true
}

func (op Op) eval(v value.Value) bool {
	if op.broken {
		return false
	}
	switch op.Name {
	case "=", "==":
		return value.Equal(v, op.Arg)
	case "!=":
		return !value.Equal(v, op.Arg)
	}

	if v.IsAbsent() {
		return false
	}

	switch op.Name {
	case "contains":
		return v.Contains(op.Arg.String())
	case "startsWith":
		return anyString(v, func(s string) bool { return strings.HasPrefix(s, op.Arg.String()) })
	case "endsWith":
		return anyString(v, func(s string) bool { return strings.HasSuffix(s, op.Arg.String()) })
	case "matches":
		return anyString(v, op.re.MatchString)
	case ">":
		return value.Compare(v, op.Arg) > 0
	case ">=":
		return value.Compare(v, op.Arg) >= 0
	case "<":
		return value.Compare(v, op.Arg) < 0
	case "<=":
		return value.Compare(v, op.Arg) <= 0
	case "before", "after", "on":
		t, ok := v.AsTime()
		if !ok || !op.atOK {
			return false
		}
		switch op.Name {
		case "before":
			return t.Before(op.at)
		case "after":
			return t.After(op.at)
		default:
			return sameDay(t, op.at)
		}
	default:
		return false
	}
}

func anyString(v value.Value, fn func(string) bool) bool {
	if v.Kind == value.List {
		for _, item := range v.List {
			if fn(item) {
				return true
			}
		}
		return false
	}
	return fn(v.String())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

var (
	rawCompareRe = regexp.MustCompile(`^\s*([A-Za-z_][\w.\-]*)\s*(==|!=)\s*(?:"([^"]*)"|'([^']*)')\s*$`)
	rawHasTagRe  = regexp.MustCompile(`^\s*(?:file\.)?hasTag\(\s*(?:"([^"]*)"|'([^']*)')\s*\)\s*$`)
)

type rawKind uint8

const (
	rawUnsupported rawKind = iota
	rawEquals
	rawNotEquals
	rawHasTag
)

type rawPredicate struct {
	kind    rawKind
	prop    string
	literal string
}

// NewRaw parses a textual predicate. Unsupported text yields a Raw that
// never matches.
func NewRaw(text string) Raw {
	r := Raw{Text: text}
	if m := rawHasTagRe.FindStringSubmatch(text); m != nil {
		r.pred = rawPredicate{kind: rawHasTag, literal: m[1] + m[2]}
		return r
	}
	if m := rawCompareRe.FindStringSubmatch(text); m != nil {
		kind := rawEquals
		if m[2] == "!=" {
			kind = rawNotEquals
		}
		r.pred = rawPredicate{kind: kind, prop: m[1], literal: m[3] + m[4]}
		return r
	}
	return r
}

// Supported reports whether the text matched one of the known grammars.
func (r Raw) Supported() bool {
	return r.pred.kind != rawUnsupported
}

func (p rawPredicate) eval(s Subject) bool {
	switch p.kind {
	case rawHasTag:
		return s.HasTag(p.literal)
	case rawEquals:
		return value.Equal(s.Property(p.prop), value.OfString(p.literal))
	case rawNotEquals:
		return !value.Equal(s.Property(p.prop), value.OfString(p.literal))
	default:
		return false
	}
}
