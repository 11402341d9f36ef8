package storage

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jwintz/obsidianp-sub000/internal/checksum"
	"github.com/jwintz/obsidianp-sub000/internal/models"
)

// DefaultExtensions are the file types listed when none are configured.
var DefaultExtensions = []string{".md", ".base"}

// FS implements Provider and Writer backed by the local file system.
type FS struct {
	root       string // absolute path to vault directory
	extensions []string
	ignore     map[string]struct{}
	patterns   []string
	gi         *ignore.GitIgnore
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithExtensions sets the file extensions List reports.
func WithExtensions(exts ...string) FSOption {
	return func(f *FS) {
		if len(exts) > 0 {
			f.extensions = exts
		}
	}
}

// WithIgnoreDirs skips directories with the given names. Hidden
// directories are always skipped.
func WithIgnoreDirs(names ...string) FSOption {
	return func(f *FS) {
		for _, n := range names {
			f.ignore[n] = struct{}{}
		}
	}
}

// WithIgnorePatterns skips paths matching gitignore-style patterns. The
// vault's own .gitignore, if any, is always honoured.
func WithIgnorePatterns(patterns ...string) FSOption {
	return func(f *FS) {
		f.patterns = append(f.patterns, patterns...)
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, extensions: DefaultExtensions, ignore: make(map[string]struct{})}
	for _, opt := range opts {
		opt(f)
	}
	patterns := f.patterns
	if data, err := os.ReadFile(filepath.Join(abs, ".gitignore")); err == nil {
		patterns = append(patterns, strings.Split(string(data), "\n")...)
	}
	if len(patterns) > 0 {
		f.gi = ignore.CompileIgnoreLines(patterns...)
	}
	return f, nil
}

func (f *FS) ignored(rel string, dir bool) bool {
	if f.gi == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return f.gi.MatchesPath(rel)
}

// Root returns the absolute vault root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

func (f *FS) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range f.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// List walks dir (relative to root) and returns metadata for every file
// with an accepted extension. Paths use forward slashes.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, _ := filepath.Rel(f.root, p)
		if d.IsDir() {
			if p == base {
				return nil
			}
			if _, skip := f.ignore[d.Name()]; skip || strings.HasPrefix(d.Name(), ".") || f.ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.accepts(d.Name()) || f.ignored(rel, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sum, err := checksum.File(p)
		if err != nil {
			return err
		}
		out = append(out, models.NoteMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  sum,
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the file at path, creating parent directories.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}
