package embed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jwintz/obsidianp-sub000/internal/collection"
	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/query"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

type textPlaceholders struct{}

func (textPlaceholders) Document(doc *models.Document, section, _, content string) string {
	if section != "" {
		return fmt.Sprintf("{%s#%s: %s}", doc.ID, section, content)
	}
	return fmt.Sprintf("{%s: %s}", doc.ID, content)
}

func (textPlaceholders) Collection(c *models.Collection, v models.View, ids []string) string {
	return fmt.Sprintf("<%s/%s: %s>", c.ID, v.Name, strings.Join(ids, ","))
}

func (textPlaceholders) Cycle(target string) string { return "[cycle " + target + "]" }
func (textPlaceholders) Broken(target string) string { return "[broken " + target + "]" }
func (textPlaceholders) Depth(target string, limit int) string {
	return fmt.Sprintf("[depth %s %d]", target, limit)
}

var opts = Options{Placeholders: textPlaceholders{}}

func newStore(t *testing.T, bodies ...string) *store.Store {
	t.Helper()
	raws := make([]store.RawDocument, 0, len(bodies)/2)
	for i := 0; i+1 < len(bodies); i += 2 {
		raws = append(raws, store.RawDocument{Path: bodies[i] + ".md", Body: bodies[i+1]})
	}
	s, ds := store.Build(raws)
	if len(ds) != 0 {
		t.Fatalf("store diagnostics: %v", ds)
	}
	return s
}

func kinds(ds []diag.Diagnostic) []diag.Kind {
	var out []diag.Kind
	for _, d := range ds {
		out = append(out, d.Kind)
	}
	return out
}

func TestResolve_MutualEmbed(t *testing.T) {
	s := newStore(t, "a", "A says ![[b]]", "b", "B says ![[a]]")
	a, _ := s.Get("a")

	got, ds := Resolve(a, s, nil, opts)
	want := "A says {b: B says [cycle a]}"
	if got != want {
		t.Errorf("Resolve(a) = %q, want %q", got, want)
	}
	if strings.Count(got, "B says") != 1 {
		t.Error("B must appear exactly once")
	}
	if diff := cmp.Diff([]diag.Kind{diag.EmbedCycle}, kinds(ds)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
}

func TestResolve_SelfEmbed(t *testing.T) {
	s := newStore(t, "self", "me ![[self]] ![[Self.md]]")
	d, _ := s.Get("self")
	got, ds := Resolve(d, s, nil, opts)
	if got != "me [cycle self] [cycle Self.md]" {
		t.Errorf("got %q", got)
	}
	if len(ds) != 2 {
		t.Errorf("diagnostics = %v", ds)
	}
}

func TestResolve_CyclesOfAnyLength(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 20} {
		var bodies []string
		for i := 0; i < n; i++ {
			bodies = append(bodies, fmt.Sprintf("n%d", i), fmt.Sprintf("x ![[n%d]]", (i+1)%n))
		}
		s := newStore(t, bodies...)
		start, _ := s.Get("n0")
		got, ds := Resolve(start, s, nil, opts)

		if len(got) > 4096 {
			t.Errorf("n=%d: output grew to %d bytes", n, len(got))
		}
		if len(ds) != 1 {
			t.Errorf("n=%d: diagnostics = %v", n, ds)
			continue
		}
		if n <= DefaultMaxDepth && ds[0].Kind != diag.EmbedCycle {
			t.Errorf("n=%d: kind = %s, want cycle", n, ds[0].Kind)
		}
		if n > DefaultMaxDepth+1 && ds[0].Kind != diag.EmbedDepth {
			t.Errorf("n=%d: kind = %s, want depth", n, ds[0].Kind)
		}
	}
}

func TestResolve_DepthLimit(t *testing.T) {
	s := newStore(t,
		"l0", "0 ![[l1]]",
		"l1", "1 ![[l2]]",
		"l2", "2 ![[l3]]",
		"l3", "3",
	)
	top, _ := s.Get("l0")

	got, ds := Resolve(top, s, nil, Options{Placeholders: textPlaceholders{}, MaxDepth: 2})
	if got != "0 {l1: 1 {l2: 2 [depth l3 2]}}" {
		t.Errorf("got %q", got)
	}
	if diff := cmp.Diff([]diag.Kind{diag.EmbedDepth}, kinds(ds)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}

	got, ds = Resolve(top, s, nil, opts)
	if got != "0 {l1: 1 {l2: 2 {l3: 3}}}" || len(ds) != 0 {
		t.Errorf("default depth: got %q, %v", got, ds)
	}
}

func TestResolve_BrokenSectionAndAssets(t *testing.T) {
	s := newStore(t,
		"host", "![[ghost]] ![[note#Intro|shown]] ![[pic.png]] ![[a &amp; b]]",
		"note", "hello",
		"a & b", "amp",
	)
	host, _ := s.Get("host")
	got, ds := Resolve(host, s, nil, opts)

	want := "[broken ghost] {note#Intro: hello} ![[pic.png]] {a-&-b: amp}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if diff := cmp.Diff([]diag.Kind{diag.BrokenEmbed, diag.HeadingUnsupported}, kinds(ds)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
}

func TestResolve_SkipsCode(t *testing.T) {
	s := newStore(t,
		"host", "<pre><code>![[note]]\n</code></pre><p><code>![[note]]</code> ![[note]]</p>",
		"note", "hello",
	)
	host, _ := s.Get("host")
	got, ds := Resolve(host, s, nil, opts)

	want := "<pre><code>![[note]]\n</code></pre><p><code>![[note]]</code> {note: hello}</p>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(ds) != 0 {
		t.Errorf("diagnostics = %v", ds)
	}
}

func TestResolve_CollectionViews(t *testing.T) {
	raws := []store.RawDocument{
		{Path: "page.md", Body: "![[Tasks.base]] | ![[tasks.base#Late]] | ![[tasks.base#nope]] | ![[missing.base]]"},
		{Path: "t1.md", Metadata: []byte("status: open\nn: 2")},
		{Path: "t2.md", Metadata: []byte("status: done\nn: 1")},
		{Path: "t3.md", Metadata: []byte("status: open\nn: 3")},
	}
	s, _ := store.Build(raws)
	cs, _ := collection.Build([]collection.Raw{{Path: "tasks.base", Data: []byte(`
filters:
  status: open
views:
  - name: All
  - name: Late
    sort: ['n DESC']
`)}})
	cs, _, err := (&query.Engine{}).Run(context.Background(), cs, s)
	if err != nil {
		t.Fatal(err)
	}

	page, _ := s.Get("page")
	got, ds := Resolve(page, s, cs, opts)
	want := "<tasks.base/All: t1,t3> | <tasks.base/Late: t3,t1> | <tasks.base/All: t1,t3> | [broken missing.base]"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if diff := cmp.Diff([]diag.Kind{diag.UnknownView, diag.BrokenEmbed}, kinds(ds)); diff != "" {
		t.Errorf("kinds (-want +got):\n%s", diff)
	}
}

func TestResolveAll(t *testing.T) {
	s := newStore(t,
		"a", "![[b]]",
		"b", "![[a]] ![[c]]",
		"c", "![[nowhere]]",
	)
	next, ds, err := ResolveAll(context.Background(), s, nil, Options{Placeholders: textPlaceholders{}, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"a": "{b: [cycle a] {c: [broken nowhere]}}",
		"b": "{a: [cycle b]} {c: [broken nowhere]}",
		"c": "[broken nowhere]",
	}
	for id, w := range want {
		d, _ := next.Get(id)
		if d.Expanded != w {
			t.Errorf("%s: Expanded = %q, want %q", id, d.Expanded, w)
		}
	}
	var subjects []string
	for _, d := range ds {
		subjects = append(subjects, d.Subject)
	}
	if diff := cmp.Diff([]string{"a", "a", "b", "b", "c"}, subjects); diff != "" {
		t.Errorf("diagnostics not in store order (-want +got):\n%s", diff)
	}
	if orig, _ := s.Get("a"); orig.Expanded != "" {
		t.Error("input store modified")
	}
}
