// Package parser splits Markdown sources into their frontmatter block and
// body and extracts wikilinks, embeds, inline tags and the first heading.
package parser

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"github.com/jwintz/obsidianp-sub000/internal/ident"
)

var (
	wikilinkRe = regexp.MustCompile(`(!?)\[\[([^\[\]]*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([\p{L}_][\p{L}\p{N}_/-]*)`)
	fenceRe    = regexp.MustCompile("(?ms)^```.*?^```[^\n]*$")
	inlineRe   = regexp.MustCompile("`[^`\n]+`")
)

// MaskCode blanks fenced code blocks and inline code spans with spaces,
// keeping newlines and byte offsets, so references inside code are not
// seen.
func MaskCode(src string) string {
	return inlineRe.ReplaceAllStringFunc(fenceRe.ReplaceAllStringFunc(src, blank), blank)
}

func blank(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c != '\n' {
			b[i] = ' '
		}
	}
	return string(b)
}

// AssetExtensions are embed targets that reference attachments rather than
// documents. They are left to the renderer.
var AssetExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".bmp": {},
	".pdf": {}, ".mp3": {}, ".wav": {}, ".ogg": {}, ".m4a": {}, ".mp4": {}, ".webm": {}, ".mov": {},
}

// IsAsset reports whether a link target points at an attachment.
func IsAsset(target string) bool {
	_, ok := AssetExtensions[strings.ToLower(path.Ext(target))]
	return ok
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	// Frontmatter is the raw YAML between the leading --- fences, nil when
	// the file has none. Decoding it is the document store's job.
	Frontmatter []byte
	Body        string
	Links       []string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, wikilinks and tags from raw Markdown
// bytes. Code is skipped.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	scan := MaskCode(body)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractLinks(scan),
		Tags:        extractTags(scan),
		Title:       firstHeading(body),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) ([]byte, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: treat everything as body.
		return nil, string(data)
	}

	block := bytes.TrimLeft(rest[:idx], "\r\n")
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")
	return block, body
}

// extractLinks returns deduplicated reference and embed targets in order of
// first appearance. Links to assets are dropped.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var links []string
	for _, m := range matches {
		target, _, _ := ident.SplitTarget(m[2])
		if target == "" || IsAsset(target) {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		links = append(links, target)
	}
	return links
}

// extractTags collects inline #tags from the body.
func extractTags(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// firstHeading returns the first H1 heading, or "".
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
