// Package diag collects the soft warnings produced while building the graph.
package diag

import (
	"fmt"
	"log/slog"
	"sync"
)

// Kind classifies a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	UnresolvedReference Kind = "unresolved-reference"
	MalformedMetadata   Kind = "malformed-metadata"
	IdentifierCollision Kind = "identifier-collision"
	ShadowedDocument    Kind = "shadowed-document"
	MalformedCollection Kind = "malformed-collection"
	MalformedFilter     Kind = "malformed-filter"
	MalformedSort       Kind = "malformed-sort"
	FormulaError        Kind = "formula-error"
	UnknownView         Kind = "unknown-view"
	EmbedCycle          Kind = "embed-cycle"
	EmbedDepth          Kind = "embed-depth"
	BrokenEmbed         Kind = "broken-embed"
	HeadingUnsupported  Kind = "heading-unsupported"
	ReadFailed          Kind = "read-failed"
)

// Diagnostic is one soft warning. Subject is the document or collection ID
// the warning belongs to; Target is the offending reference, if any.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Target != "" {
		return fmt.Sprintf("%s: %s -> %s: %s", d.Kind, d.Subject, d.Target, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Message)
}

// New builds a Diagnostic with a formatted message.
func New(kind Kind, subject, target, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Subject: subject, Target: target, Message: fmt.Sprintf(format, args...)}
}

// List is an append-only, ordered diagnostic sink safe for concurrent use.
type List struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add appends diagnostics in order.
func (l *List) Add(ds ...Diagnostic) {
	if len(ds) == 0 {
		return
	}
	l.mu.Lock()
	l.items = append(l.items, ds...)
	l.mu.Unlock()
}

// Len returns the number of collected diagnostics.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Items returns a copy of the collected diagnostics.
func (l *List) Items() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Log writes every diagnostic to logger at warn level.
func Log(logger *slog.Logger, ds []Diagnostic) {
	for _, d := range ds {
		attrs := []any{
			slog.String("kind", string(d.Kind)),
			slog.String("subject", d.Subject),
		}
		if d.Target != "" {
			attrs = append(attrs, slog.String("target", d.Target))
		}
		logger.Warn(d.Message, attrs...)
	}
}

// Count tallies diagnostics by kind.
func Count(ds []Diagnostic) map[Kind]int {
	out := make(map[Kind]int)
	for _, d := range ds {
		out[d.Kind]++
	}
	return out
}
