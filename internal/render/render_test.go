package render

import (
	"strings"
	"testing"

	"github.com/jwintz/obsidianp-sub000/internal/models"
)

func TestMarkdown_Render(t *testing.T) {
	m := NewMarkdown("/notes/")
	out, err := m.Render([]byte("# Title\n\nSee [[My Note|that note]] and [[Other#Part Two]].\n\n![[Embedded Note]]\n"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	wants := []string{
		`<h1 id="title">Title</h1>`,
		`<a class="internal-link" href="/notes/my-note">that note</a>`,
		`<a class="internal-link" href="/notes/other#part-two">Other &gt; Part Two</a>`,
		`![[Embedded Note]]`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestRewriteLinks_Adjacent(t *testing.T) {
	m := NewMarkdown("/")
	got := m.rewriteLinks("[[A]][[B]]![[C]][[D]]")
	want := `<a class="internal-link" href="/a">A</a><a class="internal-link" href="/b">B</a>` +
		`![[C]]<a class="internal-link" href="/d">D</a>`
	if got != want {
		t.Errorf("rewriteLinks =\n%s\nwant\n%s", got, want)
	}
}

func TestRewriteLinks_SkipsCode(t *testing.T) {
	m := NewMarkdown("/")
	src := "`[[A]]` [[B]]\n```\n[[C]]\n```\n"
	want := "`[[A]]` <a class=\"internal-link\" href=\"/b\">B</a>\n```\n[[C]]\n```\n"
	if got := m.rewriteLinks(src); got != want {
		t.Errorf("rewriteLinks = %q, want %q", got, want)
	}
}

func TestHTML_Placeholders(t *testing.T) {
	h := HTML{LinkPrefix: "/n/"}
	doc := &models.Document{ID: "a&b", Title: "A & B"}

	got := h.Document(doc, "Intro", "", "<p>x</p>")
	for _, w := range []string{`data-embed="a&amp;b"`, `data-section="Intro"`, `href="/n/a&amp;b">A &amp; B</a>`, `<p>x</p>`} {
		if !strings.Contains(got, w) {
			t.Errorf("Document() missing %q: %s", w, got)
		}
	}

	c := &models.Collection{ID: "tasks.base"}
	got = h.Collection(c, models.View{Name: "Open", Type: models.ViewCards}, []string{"t1", "t3"})
	if !strings.Contains(got, `data-view="Open"`) || !strings.Contains(got, `data-ids="t1 t3"`) || !strings.Contains(got, `data-view-type="cards"`) {
		t.Errorf("Collection() = %s", got)
	}

	if !strings.Contains(h.Cycle("<a>"), "&lt;a&gt;") {
		t.Error("Cycle must escape its target")
	}
	if !strings.Contains(h.Depth("x", 4), "(4)") || !strings.Contains(h.Broken("x"), "embed-broken") {
		t.Error("Depth/Broken placeholders")
	}
}
