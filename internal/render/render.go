// Package render turns Markdown into HTML bodies and synthesises the HTML
// substituted for embed markers.
package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	mdparser "github.com/yuin/goldmark/parser"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jwintz/obsidianp-sub000/internal/ident"
	"github.com/jwintz/obsidianp-sub000/internal/models"
	"github.com/jwintz/obsidianp-sub000/internal/parser"
)

// Content converts Markdown source into a formatted body.
type Content interface {
	Render(src []byte) (string, error)
}

// linkRe matches wikilinks; those preceded by "!" are embeds and left alone.
var linkRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// Markdown is the goldmark-backed Content renderer. Wikilinks become
// anchors; embed markers are kept verbatim for the embed resolver.
type Markdown struct {
	md         goldmark.Markdown
	linkPrefix string
}

// NewMarkdown creates a renderer whose internal links point at
// linkPrefix + document ID.
func NewMarkdown(linkPrefix string) *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Table,
				extension.TaskList,
				extension.Strikethrough,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithUnsafe(),
			),
			goldmark.WithParserOptions(
				mdparser.WithAutoHeadingID(),
			),
		),
		linkPrefix: linkPrefix,
	}
}

// Render implements Content.
func (m *Markdown) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(m.rewriteLinks(string(src))), &buf); err != nil {
		return "", fmt.Errorf("render: convert: %w", err)
	}
	return buf.String(), nil
}

func (m *Markdown) rewriteLinks(src string) string {
	masked := parser.MaskCode(src)
	var b strings.Builder
	last := 0
	for _, loc := range linkRe.FindAllStringSubmatchIndex(masked, -1) {
		if loc[0] > 0 && masked[loc[0]-1] == '!' {
			continue
		}
		b.WriteString(src[last:loc[0]])
		b.WriteString(m.link(src[loc[2]:loc[3]]))
		last = loc[1]
	}
	if last == 0 {
		return src
	}
	b.WriteString(src[last:])
	return b.String()
}

func (m *Markdown) link(inner string) string {
	target, section, alias := ident.SplitTarget(inner)
	text := alias
	if text == "" {
		text = target
		if section != "" {
			text += " > " + section
		}
	}
	href := m.linkPrefix + ident.Normalize(target)
	if section != "" {
		href += "#" + ident.Normalize(section)
	}
	return fmt.Sprintf(`<a class="internal-link" href="%s">%s</a>`,
		html.EscapeString(href), html.EscapeString(text))
}

// HTML is the default embed placeholder set. Collection embeds carry only
// the ordered result IDs and the view descriptor; the page template lays
// them out.
type HTML struct {
	LinkPrefix string
}

// Document wraps the expanded content of an embedded document.
func (h HTML) Document(doc *models.Document, section, alias, content string) string {
	title := doc.Title
	if alias != "" {
		title = alias
	}
	attrs := fmt.Sprintf(`data-embed="%s"`, html.EscapeString(doc.ID))
	if section != "" {
		attrs += fmt.Sprintf(` data-section="%s"`, html.EscapeString(section))
	}
	return fmt.Sprintf(`<div class="embed" %s><div class="embed-title">%s</div><div class="embed-content">%s</div></div>`,
		attrs, h.docLink(doc.ID, title), content)
}

// Collection renders a view placeholder.
func (h HTML) Collection(c *models.Collection, view models.View, ids []string) string {
	return fmt.Sprintf(`<div class="collection-embed" data-collection="%s" data-view="%s" data-view-type="%s" data-ids="%s"></div>`,
		html.EscapeString(c.ID), html.EscapeString(view.Name), html.EscapeString(view.Type), joinIDs(ids))
}

// Cycle marks an embed that would recurse into a document already open.
func (h HTML) Cycle(target string) string {
	return fmt.Sprintf(`<div class="embed embed-cycle">Cycle detected: %s</div>`, html.EscapeString(target))
}

// Broken marks an embed whose target does not exist.
func (h HTML) Broken(target string) string {
	return fmt.Sprintf(`<div class="embed embed-broken">Embedded note not found: %s</div>`, html.EscapeString(target))
}

// Depth marks an embed beyond the nesting limit.
func (h HTML) Depth(target string, limit int) string {
	return fmt.Sprintf(`<div class="embed embed-depth">Embed depth limit (%d) reached: %s</div>`, limit, html.EscapeString(target))
}

func (h HTML) docLink(id, title string) string {
	return fmt.Sprintf(`<a class="internal-link" href="%s">%s</a>`,
		html.EscapeString(h.LinkPrefix+id), html.EscapeString(title))
}

func joinIDs(ids []string) string {
	return html.EscapeString(strings.Join(ids, " "))
}
