package ident

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Notes/My Note.md", "notes/my-note"},
		{"/notes/my note", "notes/my-note"},
		{"./Projects/Alpha.md", "projects/alpha"},
		{"My   Note", "my-note"},
		{"  padded\tname  ", "padded-name"},
		{`win\path\File.md`, "win/path/file"},
		{"a.md.md", "a"},
		{"", ""},
		{"/", ""},
		{"/.md", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Notes/My Note.md", "a.md .md", " /x", "./ ./a", "A B", "İstanbul",
		"x.MD", "//double//slash", "tabs\tand\nnewlines", "trailing.md ", "--",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_PathAndTitleAgree(t *testing.T) {
	if Base(Normalize("folder/Weekly Review.md")) != Normalize("Weekly Review") {
		t.Error("basename of normalised path must equal normalised title")
	}
}

func TestSplitTarget(t *testing.T) {
	target, section, alias := SplitTarget("Note A#Intro|see intro")
	if target != "Note A" || section != "Intro" || alias != "see intro" {
		t.Errorf("got %q %q %q", target, section, alias)
	}
	target, section, alias = SplitTarget("plain")
	if target != "plain" || section != "" || alias != "" {
		t.Errorf("got %q %q %q", target, section, alias)
	}
}

func TestDir(t *testing.T) {
	if Dir("a/b/c") != "a/b" {
		t.Errorf("Dir = %q", Dir("a/b/c"))
	}
	if Dir("root") != "" {
		t.Errorf("Dir(root) = %q", Dir("root"))
	}
}

func TestRegistry_CollisionGetsSuffix(t *testing.T) {
	r := NewRegistry()
	a := r.Register("Notes/A.md")
	b := r.Register("notes/a.md")
	c := r.Register("notes/a.md")

	if a.ID != "notes/a" || a.Collided != "" {
		t.Errorf("first = %+v", a)
	}
	if b.ID != "notes/a-2" || b.Collided != "Notes/A.md" {
		t.Errorf("second = %+v", b)
	}
	if !c.Duplicate || c.ID != "notes/a-2" {
		t.Errorf("third = %+v, want duplicate of notes/a-2", c)
	}
}

func TestRegistry_SuffixSkipsTakenIDs(t *testing.T) {
	r := NewRegistry()
	r.Register("a.md")
	r.Register("a-2.md")
	got := r.Register("A.md")
	if got.ID != "a-3" {
		t.Errorf("ID = %q, want a-3", got.ID)
	}
}
