package filter

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jwintz/obsidianp-sub000/internal/value"
)

type fakeDoc struct {
	tags  []string
	props map[string]value.Value
}

func (d fakeDoc) Property(key string) value.Value {
	switch key {
	case "file.tag", "file.tags", "tags":
		return value.OfList(d.tags)
	}
	return d.props[key]
}

func (d fakeDoc) HasTag(tag string) bool {
	for _, t := range d.tags {
		if strings.EqualFold(t, strings.TrimPrefix(tag, "#")) {
			return true
		}
	}
	return false
}

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	var def any
	if err := yaml.Unmarshal([]byte(src), &def); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	e, problems := Parse(def)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	return e
}

func TestEval_EmptyCombinators(t *testing.T) {
	d := fakeDoc{}
	if !Eval(And{}, d) {
		t.Error("and([]) must be true")
	}
	if Eval(Or{}, d) {
		t.Error("or([]) must be false")
	}
	if !Eval(nil, d) {
		t.Error("nil expression must be true")
	}
}

func TestEval_DoubleNegation(t *testing.T) {
	exprs := []Expr{
		And{},
		Or{},
		NewRaw(`status == "done"`),
		NewRaw(`something unsupported`),
		Invalid{Reason: "x"},
		Props{{Key: "status", Ops: []Op{{Name: "contains", Arg: value.OfString("do")}}}},
	}
	docs := []fakeDoc{
		{props: map[string]value.Value{"status": value.OfString("done")}},
		{props: map[string]value.Value{"status": value.OfString("open")}},
		{},
	}
	for i, e := range exprs {
		for j, d := range docs {
			if Eval(Not{X: Not{X: e}}, d) != Eval(e, d) {
				t.Errorf("not(not(F)) != F for expr %d doc %d", i, j)
			}
		}
	}
}

func TestEval_ProjectNotArchived(t *testing.T) {
	e := mustParse(t, `and: [{file.tag: "project"}, {not: {file.tag: "archived"}}]`)

	cases := []struct {
		tags []string
		want bool
	}{
		{[]string{"project"}, true},
		{[]string{"project", "archived"}, false},
		{[]string{"task"}, false},
	}
	for _, c := range cases {
		if got := Eval(e, fakeDoc{tags: c.tags}); got != c.want {
			t.Errorf("tags %v: got %v, want %v", c.tags, got, c.want)
		}
	}
}

func TestEval_RawPredicates(t *testing.T) {
	d := fakeDoc{
		tags:  []string{"Project"},
		props: map[string]value.Value{"status": value.OfString("done")},
	}
	cases := []struct {
		text string
		want bool
	}{
		{`status == "done"`, true},
		{`status != "done"`, false},
		{`status == 'open'`, false},
		{`missing != "x"`, true},
		{`hasTag("project")`, true},
		{`file.hasTag("#project")`, true},
		{`hasTag("other")`, false},
		{`status > 3`, false},
		{`random text`, false},
	}
	for _, c := range cases {
		if got := Eval(NewRaw(c.text), d); got != c.want {
			t.Errorf("%s: got %v, want %v", c.text, got, c.want)
		}
	}
}

func TestEval_Operators(t *testing.T) {
	d := fakeDoc{props: map[string]value.Value{
		"title":    value.OfString("Weekly Review"),
		"priority": value.OfNumber(3),
		"due":      value.OfString("2024-03-15"),
		"bad":      value.OfString("someday"),
		"aliases":  value.OfList([]string{"wr", "review"}),
	}}
	cases := []struct {
		src  string
		want bool
	}{
		{`{title: {contains: "Review"}}`, true},
		{`{title: {startsWith: "Weekly"}}`, true},
		{`{title: {endsWith: "Weekly"}}`, false},
		{`{title: {matches: "^W.*w$"}}`, true},
		{`{aliases: {contains: "wr"}}`, true},
		{`{aliases: {startsWith: "rev"}}`, true},
		{`{priority: {">": 2}}`, true},
		{`{priority: {">=": 3, "<": 4}}`, true},
		{`{priority: {"<=": 2}}`, false},
		{`{priority: {"!=": 3}}`, false},
		{`{priority: 3}`, true},
		{`{due: {before: "2024-04-01"}}`, true},
		{`{due: {after: "2024-04-01"}}`, false},
		{`{due: {on: "2024-03-15T18:00:00Z"}}`, true},
		{`{bad: {before: "2024-04-01"}}`, false},
		{`{missing: {before: "2024-04-01"}}`, false},
		{`{missing: null}`, true},
		{`{missing: {contains: "x"}}`, false},
	}
	for _, c := range cases {
		if got := Eval(mustParse(t, c.src), d); got != c.want {
			t.Errorf("%s: got %v, want %v", c.src, got, c.want)
		}
	}
}

func TestParse_NotListMeansNoneOf(t *testing.T) {
	e := mustParse(t, `not: [{file.tag: a}, {file.tag: b}]`)
	if Eval(e, fakeDoc{tags: []string{"b"}}) {
		t.Error("doc tagged b must not match")
	}
	if !Eval(e, fakeDoc{tags: []string{"c"}}) {
		t.Error("doc tagged c must match")
	}
}

func TestParse_MixedMapIsConjunction(t *testing.T) {
	e := mustParse(t, `{status: done, or: [{file.tag: a}, {file.tag: b}]}`)
	d := fakeDoc{tags: []string{"a"}, props: map[string]value.Value{"status": value.OfString("done")}}
	if !Eval(e, d) {
		t.Error("expected match")
	}
	d.props["status"] = value.OfString("open")
	if Eval(e, d) {
		t.Error("status mismatch must fail the conjunction")
	}
}

func TestParse_ProblemsDegradeToFalse(t *testing.T) {
	cases := []string{
		`42`,
		`and: notalist`,
		`{title: {near: "x"}}`,
		`{title: {matches: "("}}`,
		`{due: {before: "whenever"}}`,
		`"this is not a predicate"`,
	}
	d := fakeDoc{props: map[string]value.Value{
		"title": value.OfString("x"),
		"due":   value.OfString("2024-01-01"),
	}}
	for _, src := range cases {
		var def any
		if err := yaml.Unmarshal([]byte(src), &def); err != nil {
			t.Fatalf("yaml %q: %v", src, err)
		}
		e, problems := Parse(def)
		if len(problems) == 0 {
			t.Errorf("%s: expected a problem", src)
		}
		if Eval(e, d) {
			t.Errorf("%s: malformed clause must evaluate false", src)
		}
	}
}

func TestParse_Nil(t *testing.T) {
	e, problems := Parse(nil)
	if e != nil || problems != nil {
		t.Errorf("Parse(nil) = %v, %v", e, problems)
	}
}
