// Package ident maps document paths and link text to canonical document IDs.
package ident

import (
	"fmt"
	"path"
	"strings"
)

const mdExt = ".md"

// Normalize returns the canonical ID for a relative path or link target.
//
// The result is lower-case, uses forward slashes, has no leading separator,
// no trailing ".md" extension, and every whitespace run collapsed to a
// single dash. Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, `\`, "/"))

	for {
		prev := s
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, mdExt)
		s = strings.TrimPrefix(s, "./")
		s = strings.TrimPrefix(s, "/")
		if s == prev {
			break
		}
	}

	return strings.Join(strings.Fields(s), "-")
}

// SplitTarget splits a wikilink body "target#section|alias" into its parts.
// Any part may be empty.
func SplitTarget(link string) (target, section, alias string) {
	target = link
	if i := strings.Index(target, "|"); i >= 0 {
		alias = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	if i := strings.Index(target, "#"); i >= 0 {
		section = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	return strings.TrimSpace(target), section, alias
}

// Base returns the last path segment of an ID.
func Base(id string) string {
	return path.Base(id)
}

// Dir returns the folder part of an ID, or "" for root-level IDs.
func Dir(id string) string {
	d := path.Dir(id)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// Registry hands out unique IDs for raw paths.
//
// Distinct raw paths that normalise to the same ID receive a numeric suffix
// ("-2", "-3", ...). The same raw path registered twice is reported as a
// duplicate so the caller can shadow it.
type Registry struct {
	byPath map[string]string
	taken  map[string]string // id -> raw path that owns it
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]string),
		taken:  make(map[string]string),
	}
}

// Assignment is the outcome of registering one raw path.
type Assignment struct {
	ID        string
	Duplicate bool   // same raw path already registered; ID is the existing one
	Collided  string // raw path that already owned the plain normalised ID
}

// Register assigns an ID to rawPath.
func (r *Registry) Register(rawPath string) Assignment {
	key := strings.ReplaceAll(rawPath, `\`, "/")
	if id, ok := r.byPath[key]; ok {
		return Assignment{ID: id, Duplicate: true}
	}

	base := Normalize(key)
	id := base
	var collided string
	if owner, ok := r.taken[id]; ok {
		collided = owner
		for n := 2; ; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
			if _, used := r.taken[id]; !used {
				break
			}
		}
	}

	r.byPath[key] = id
	r.taken[id] = key
	return Assignment{ID: id, Collided: collided}
}
