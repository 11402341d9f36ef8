package filter

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/jwintz/obsidianp-sub000/internal/value"
)

// Problem describes a part of a filter definition that could not be
// understood. Path locates it inside the definition, e.g. "and[1].not".
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

var knownOps = map[string]struct{}{
	"contains": {}, "startsWith": {}, "endsWith": {}, "matches": {},
	"=": {}, "==": {}, "!=": {}, ">": {}, ">=": {}, "<": {}, "<=": {},
	"before": {}, "after": {}, "on": {},
}

// Parse converts a decoded YAML/JSON filter definition into an Expr.
// A nil definition yields a nil Expr, which always holds. Parse never
// fails: parts it cannot understand become Invalid (or never-matching Raw)
// nodes and are reported as problems.
func Parse(def any) (Expr, []Problem) {
	if def == nil {
		return nil, nil
	}
	p := &parser{}
	e := p.parse(def, "")
	return e, p.problems
}

type parser struct {
	problems []Problem
}

func (p *parser) problem(path, format string, args ...any) {
	p.problems = append(p.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) parse(def any, path string) Expr {
	switch d := def.(type) {
	case string:
		r := NewRaw(d)
		if !r.Supported() {
			p.problem(path, "unsupported predicate %q never matches", d)
		}
		return r
	case map[string]any:
		return p.parseMap(d, path)
	case map[any]any:
		m := make(map[string]any, len(d))
		for k, v := range d {
			m[fmt.Sprint(k)] = v
		}
		return p.parseMap(m, path)
	case nil:
		p.problem(path, "empty expression")
		return Invalid{Reason: "empty expression"}
	default:
		p.problem(path, "unrecognised filter of type %T", def)
		return Invalid{Reason: fmt.Sprintf("unrecognised filter of type %T", def)}
	}
}

func (p *parser) parseMap(m map[string]any, path string) Expr {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts And
	var props Props
	for _, k := range keys {
		sub := join(path, k)
		switch k {
		case "and":
			parts = append(parts, And(p.parseList(m[k], sub)))
		case "or":
			parts = append(parts, Or(p.parseList(m[k], sub)))
		case "not":
			if list, ok := m[k].([]any); ok {
				// A list under not means none of the operands may hold.
				parts = append(parts, Not{X: Or(p.parseList(list, sub))})
			} else {
				parts = append(parts, Not{X: p.parse(m[k], sub)})
			}
		default:
			props = append(props, p.parseClause(k, m[k], sub))
		}
	}

	if len(props) > 0 {
		parts = append(parts, props)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return parts
}

func (p *parser) parseList(def any, path string) []Expr {
	list, ok := def.([]any)
	if !ok {
		p.problem(path, "expected a list, got %T", def)
		return []Expr{Invalid{Reason: "operand is not a list"}}
	}
	out := make([]Expr, 0, len(list))
	for i, item := range list {
		out = append(out, p.parse(item, fmt.Sprintf("%s[%d]", path, i)))
	}
	return out
}

func (p *parser) parseClause(key string, def any, path string) Clause {
	var ops map[string]any
	switch d := def.(type) {
	case map[string]any:
		ops = d
	case map[any]any:
		ops = make(map[string]any, len(d))
		for k, v := range d {
			ops[fmt.Sprint(k)] = v
		}
	default:
		lit := value.FromAny(def)
		return Clause{Key: key, Literal: &lit}
	}

	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	c := Clause{Key: key}
	if len(names) == 0 {
		p.problem(path, "empty operator object never matches")
	}
	for _, name := range names {
		c.Ops = append(c.Ops, p.parseOp(name, ops[name], join(path, name)))
	}
	return c
}

func (p *parser) parseOp(name string, arg any, path string) Op {
	op := Op{Name: name, Arg: value.FromAny(arg)}
	if _, ok := knownOps[name]; !ok {
		p.problem(path, "unknown operator %q never matches", name)
		op.broken = true
		return op
	}
	switch name {
	case "matches":
		re, err := regexp.Compile(op.Arg.String())
		if err != nil {
			p.problem(path, "invalid pattern: %v", err)
			op.broken = true
			return op
		}
		op.re = re
	case "before", "after", "on":
		op.at, op.atOK = op.Arg.AsTime()
		if !op.atOK {
			p.problem(path, "unparseable date %q never matches", op.Arg.String())
		}
	}
	return op
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
