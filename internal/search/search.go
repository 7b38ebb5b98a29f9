// Package search implements the bounded live filename search: a depth- and
// result-capped recursive walk matching a case-insensitive substring, with
// glob-based ignore patterns on top of a default noise set.
package search

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/filecrane/filecrane/internal/fsops"
)

const (
	// DefaultMaxResults bounds a query that does not ask for a cap.
	DefaultMaxResults = 1000
	// MaxResults is the hard ceiling regardless of what the query asks for.
	MaxResults = 10000
)

// defaultIgnores is always appended to the caller's ignore patterns:
// version-control internals and OS noise nobody searches for.
var defaultIgnores = []string{
	".git", ".svn", ".hg", "node_modules", "__pycache__", ".DS_Store", "Thumbs.db",
}

// Type filters.
const (
	FilterAll       = "all"
	FilterFile      = "file"
	FilterDirectory = "directory"
)

// Options tunes one search. Zero values select the documented defaults.
type Options struct {
	// Query is matched case-insensitively as a substring of the entry name.
	// A query that is blank after trimming yields no results.
	Query string
	// MaxDepth limits how many levels below the start directory are
	// visited. 0 means unlimited.
	MaxDepth int
	// IgnorePatterns are doublestar globs matched against entry names.
	// The default ignore set is always added.
	IgnorePatterns []string
	// MaxResults caps the result list. 0 selects DefaultMaxResults;
	// anything above MaxResults is clamped.
	MaxResults int
	// TypeFilter is one of all, file, directory. Empty means all.
	TypeFilter string
}

func (o *Options) normalize() error {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}

	if o.MaxResults > MaxResults {
		o.MaxResults = MaxResults
	}

	switch o.TypeFilter {
	case "", FilterAll:
		o.TypeFilter = FilterAll
	case FilterFile, FilterDirectory:
	default:
		return fmt.Errorf("%w: unknown type filter %q", fsops.ErrBadRequest, o.TypeFilter)
	}

	for _, pat := range o.IgnorePatterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("%w: bad ignore pattern %q", fsops.ErrBadRequest, pat)
		}
	}

	return nil
}

// ParseIgnoreList splits a comma-separated ignore parameter into patterns,
// dropping empty segments.
func ParseIgnoreList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Run walks the tree under start collecting entries whose name contains the
// query. A blank query returns no results without walking, so a live-search
// box that has just been cleared never triggers a full tree scan. Symlinks
// are reported but never followed, so cycles cannot occur. The walk exits as
// soon as the result cap is reached.
func Run(start string, opts Options) ([]fsops.FileEntry, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	info, err := os.Stat(start)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", fsops.ErrNotFound, start)
	}

	if err != nil {
		return nil, fmt.Errorf("stat search root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", fsops.ErrNotDirectory, start)
	}

	needle := strings.ToLower(opts.Query)
	if strings.TrimSpace(needle) == "" {
		return []fsops.FileEntry{}, nil
	}

	ignores := append(append([]string{}, opts.IgnorePatterns...), defaultIgnores...)
	results := make([]fsops.FileEntry, 0, 64)

	walkErr := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are silently skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if path == start {
			return nil
		}

		name := d.Name()

		if ignored(name, ignores) {
			if d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if matches(name, needle, d, opts.TypeFilter) {
			results = append(results, fsops.NewEntry(path, d))
			if len(results) >= opts.MaxResults {
				return fs.SkipAll
			}
		}

		// A directory at the depth limit is itself a candidate above but
		// is not descended into.
		if d.IsDir() && opts.MaxDepth > 0 && depthBelow(start, path) >= opts.MaxDepth {
			return fs.SkipDir
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("search: %w", walkErr)
	}

	return results, nil
}

func ignored(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}

		if pat == name {
			return true
		}
	}

	return false
}

func matches(name, needle string, d fs.DirEntry, filter string) bool {
	if !strings.Contains(strings.ToLower(name), needle) {
		return false
	}

	switch filter {
	case FilterFile:
		return !d.IsDir()
	case FilterDirectory:
		return d.IsDir()
	default:
		return true
	}
}

// depthBelow counts levels of path below root.
func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}

	return strings.Count(rel, string(os.PathSeparator)) + 1
}
