// Package pathsafe normalizes user-supplied paths and confines them to a
// configured root directory. Every path that enters the system from the HTTP
// surface passes through a Resolver before any filesystem call is made.
package pathsafe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for path validation. The HTTP adapter maps these to
// status codes; use errors.Is to check.
var (
	// ErrBadPath indicates a malformed input (NUL bytes, canonicalization
	// failure). Maps to 400.
	ErrBadPath = errors.New("pathsafe: invalid path")
	// ErrEscapesRoot indicates a relative path that resolves outside the
	// confinement root. Maps to 403.
	ErrEscapesRoot = errors.New("pathsafe: path escapes the configured root")
)

// Resolver canonicalizes paths and enforces root confinement.
//
// Relative paths are always joined to the root and must stay inside it after
// canonicalization. Absolute paths are accepted as-is (after canonicalization)
// when allowAbsolute is true; otherwise they are subject to the same
// confinement check as relative paths.
type Resolver struct {
	root          string // canonical confinement root
	allowAbsolute bool
}

// NewResolver creates a Resolver rooted at root. The root must exist and be
// a directory; it is canonicalized once here so that the per-request prefix
// check compares canonical forms on both sides.
func NewResolver(root string, allowAbsolute bool) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty root", ErrBadPath)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPath, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", canonical, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", ErrBadPath, root)
	}

	return &Resolver{root: canonical, allowAbsolute: allowAbsolute}, nil
}

// Root returns the canonical confinement root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve canonicalizes raw and enforces confinement. An empty input resolves
// to the root itself. The returned path is canonical but not guaranteed to
// exist; existence is the caller's concern.
func (r *Resolver) Resolve(raw string) (string, error) {
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: embedded NUL", ErrBadPath)
	}

	if raw == "" {
		return r.root, nil
	}

	if filepath.IsAbs(raw) || isUNC(raw) {
		canonical, err := Canonicalize(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadPath, err)
		}

		if r.allowAbsolute {
			return canonical, nil
		}

		if !within(r.root, canonical) {
			return "", fmt.Errorf("%w: %s", ErrEscapesRoot, raw)
		}

		return canonical, nil
	}

	canonical, err := Canonicalize(filepath.Join(r.root, raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPath, err)
	}

	if !within(r.root, canonical) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, raw)
	}

	return canonical, nil
}

// Canonicalize returns the canonical form of path: absolute, cleaned, with
// symlinks resolved. For paths that do not exist yet it resolves the nearest
// existing ancestor and rejoins the remaining segments, so a destination that
// is about to be created still canonicalizes deterministically.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}

	if !os.IsNotExist(err) {
		return "", err
	}

	// Walk up to the nearest existing ancestor, canonicalize that, then
	// reattach the missing suffix.
	dir := abs
	var suffix []string

	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Hit the filesystem root without finding anything.
			return abs, nil
		}

		suffix = append([]string{filepath.Base(dir)}, suffix...)
		dir = parent

		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...), nil
		}

		if !os.IsNotExist(err) {
			return "", err
		}
	}
}

// within reports whether path is root itself or a descendant of root.
// Both arguments must already be canonical.
func within(root, path string) bool {
	if path == root {
		return true
	}

	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// isUNC reports whether raw carries a network prefix (leading double
// separator). Such paths are treated as absolute even on platforms where
// filepath.IsAbs would not recognize them.
func isUNC(raw string) bool {
	return strings.HasPrefix(raw, `\\`) || strings.HasPrefix(raw, "//")
}
