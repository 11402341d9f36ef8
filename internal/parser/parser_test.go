package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n---\n# Hello\nBody text.\n")
	r := Parse(input)
	if string(r.Frontmatter) != "title: Hello\ntags:\n  - go" {
		t.Errorf("frontmatter = %q", r.Frontmatter)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("# Just a heading\nSome text.\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %q", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_UnclosedFrontmatterIsBody(t *testing.T) {
	input := "---\ntitle: x\nno closing fence\n"
	r := Parse([]byte(input))
	if r.Frontmatter != nil || r.Body != input {
		t.Errorf("frontmatter = %q, body = %q", r.Frontmatter, r.Body)
	}
}

func TestExtractLinks(t *testing.T) {
	body := "See [[Note A]] and [[Note B|alias]].\n" +
		"Also [[Note A#Intro]] again, ![[Note C#Part]] and ![[pic.png]].\n" +
		"![[tasks.base#Open]] [[ ]]"
	links := extractLinks(body)

	if diff := cmp.Diff([]string{"Note A", "Note B", "Note C", "tasks.base"}, links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_IgnoresCodeFences(t *testing.T) {
	input := "Real [[Link]] #real\n```\n[[Fake]] #fake\n```\n"
	r := Parse([]byte(input))
	if diff := cmp.Diff([]string{"Link"}, r.Links); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"real"}, r.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestParse_IgnoresInlineCode(t *testing.T) {
	r := Parse([]byte("Use `[[Fake]]` or `![[Also]] #nope` but [[Real]]"))
	if diff := cmp.Diff([]string{"Real"}, r.Links); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
	if len(r.Tags) != 0 {
		t.Errorf("tags = %v", r.Tags)
	}
}

func TestMaskCode_KeepsOffsets(t *testing.T) {
	src := "é `[[x]]`\n```\nñ [[y]]\n```\n[[z]]"
	got := MaskCode(src)
	if len(got) != len(src) || strings.Count(got, "\n") != strings.Count(src, "\n") {
		t.Fatalf("MaskCode changed layout: %q", got)
	}
	if !strings.HasSuffix(got, "[[z]]") || strings.Contains(got, "[[x]]") || strings.Contains(got, "[[y]]") {
		t.Errorf("MaskCode = %q", got)
	}
}

func TestExtractTags(t *testing.T) {
	tags := extractTags("Some text #beta and #alpha/sub again #beta. Not a#tag, nor #1st.")
	if diff := cmp.Diff([]string{"beta", "alpha/sub"}, tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestIsAsset(t *testing.T) {
	if !IsAsset("images/Photo.JPG") {
		t.Error("jpg should be an asset")
	}
	if IsAsset("notes/v1.2") || IsAsset("tasks.base") {
		t.Error("documents and collections are not assets")
	}
}
