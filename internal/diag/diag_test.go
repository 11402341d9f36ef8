package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiagnostic_String(t *testing.T) {
	d := New(UnresolvedReference, "a", "ghost", "no document named %q", "ghost")
	if got, want := d.String(), `unresolved-reference: a -> ghost: no document named "ghost"`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	d = New(MalformedMetadata, "b", "", "bad yaml")
	if got, want := d.String(), "malformed-metadata: b: bad yaml"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestList_ConcurrentAdd(t *testing.T) {
	var l List
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(New(EmbedCycle, "x", "", "cycle"))
		}()
	}
	wg.Wait()
	l.Add()
	if l.Len() != 50 {
		t.Errorf("Len() = %d, want 50", l.Len())
	}

	items := l.Items()
	items[0].Subject = "changed"
	if l.Items()[0].Subject != "x" {
		t.Error("Items must return a copy")
	}
}

func TestCountAndLog(t *testing.T) {
	ds := []Diagnostic{
		New(BrokenEmbed, "a", "x", "missing"),
		New(BrokenEmbed, "b", "y", "missing"),
		New(UnknownView, "c", "", "no view"),
	}
	if diff := cmp.Diff(map[Kind]int{BrokenEmbed: 2, UnknownView: 1}, Count(ds)); diff != "" {
		t.Errorf("Count (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	Log(slog.New(slog.NewJSONHandler(&buf, nil)), ds)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("logged %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"WARN"`) || !strings.Contains(lines[0], `"target":"x"`) {
		t.Errorf("line = %s", lines[0])
	}
	if strings.Contains(lines[2], `"target"`) {
		t.Errorf("empty target must be omitted: %s", lines[2])
	}
}
