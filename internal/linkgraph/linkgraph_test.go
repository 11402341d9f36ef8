package linkgraph

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jwintz/obsidianp-sub000/internal/diag"
	"github.com/jwintz/obsidianp-sub000/internal/store"
)

func build(t *testing.T, raws ...store.RawDocument) *store.Store {
	t.Helper()
	s, ds := store.Build(raws)
	if len(ds) != 0 {
		t.Fatalf("store diagnostics: %v", ds)
	}
	return s
}

func TestBuild_BacklinksInStoreOrder(t *testing.T) {
	s := build(t,
		store.RawDocument{Path: "a.md", References: []string{"b", "c", "b"}},
		store.RawDocument{Path: "b.md", References: []string{"c"}},
		store.RawDocument{Path: "c.md"},
	)
	next, g, ds := Build(s)
	if len(ds) != 0 {
		t.Fatalf("diagnostics: %v", ds)
	}

	if diff := cmp.Diff([]string{"b", "c"}, g.Outgoing["a"]); diff != "" {
		t.Errorf("outgoing[a] (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, g.Backlinks["c"]); diff != "" {
		t.Errorf("backlinks[c] (-want +got):\n%s", diff)
	}

	c, _ := next.Get("c")
	if diff := cmp.Diff([]string{"a", "b"}, c.Backlinks); diff != "" {
		t.Errorf("document backlinks (-want +got):\n%s", diff)
	}
	if orig, _ := s.Get("c"); orig.Backlinks != nil {
		t.Error("input store must not be modified")
	}
}

func TestBuild_UnresolvedAndSelf(t *testing.T) {
	s := build(t,
		store.RawDocument{Path: "a.md", References: []string{"a", "ghost", "A.md"}},
	)
	_, g, ds := Build(s)
	if len(g.Outgoing["a"]) != 0 || len(g.Backlinks["a"]) != 0 {
		t.Errorf("self references must be dropped: %v %v", g.Outgoing, g.Backlinks)
	}
	if len(ds) != 1 || ds[0].Kind != diag.UnresolvedReference || ds[0].Target != "ghost" {
		t.Errorf("diagnostics = %v", ds)
	}
	if diff := cmp.Diff([]Reference{{Source: "a", Target: "ghost"}}, g.Unresolved); diff != "" {
		t.Errorf("unresolved (-want +got):\n%s", diff)
	}
}

func TestBuild_BacklinkInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 40
	raws := make([]store.RawDocument, n)
	for i := range raws {
		var refs []string
		for j := 0; j < rng.Intn(8); j++ {
			refs = append(refs, fmt.Sprintf("doc %d", rng.Intn(n+5)))
		}
		raws[i] = store.RawDocument{Path: fmt.Sprintf("doc %d.md", i), References: refs}
	}
	s, _ := store.Build(raws)
	_, g, _ := Build(s)

	for src, tgts := range g.Outgoing {
		for _, tgt := range tgts {
			if !slices.Contains(g.Backlinks[tgt], src) {
				t.Errorf("%s -> %s missing from backlinks", src, tgt)
			}
		}
	}
	for tgt, srcs := range g.Backlinks {
		for _, src := range srcs {
			if !slices.Contains(g.Outgoing[src], tgt) {
				t.Errorf("backlink %s <- %s has no outgoing edge", tgt, src)
			}
		}
	}
}

func TestLinks(t *testing.T) {
	s := build(t,
		store.RawDocument{Path: "x.md", References: []string{"y"}},
		store.RawDocument{Path: "y.md", References: []string{"x"}},
	)
	next, g, _ := Build(s)
	links := g.Links(next)
	if len(links) != 2 || links[0].Source != "x" || links[1].Source != "y" {
		t.Errorf("links = %v", links)
	}
}

func TestBuild_BacklinksFollowSourceOrder(t *testing.T) {
	s := build(t,
		store.RawDocument{Path: "A.md", References: []string{"B"}},
		store.RawDocument{Path: "B.md"},
		store.RawDocument{Path: "C.md", References: []string{"B"}},
	)
	next, _, _ := Build(s)
	b, _ := next.Get("b")
	if diff := cmp.Diff([]string{"a", "c"}, b.Backlinks); diff != "" {
		t.Errorf("B.backlinks (-want +got):\n%s", diff)
	}
}
