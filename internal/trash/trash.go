// Package trash moves files and directories to the host platform's trash
// instead of destroying them. On Linux it implements the freedesktop.org
// Trash specification (files/ + info/ pair under XDG_DATA_HOME); on macOS it
// renames into ~/.Trash. Callers must treat every error as non-fatal and
// fall back to direct removal: network mounts and exotic volumes routinely
// refuse trashing.
package trash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// ErrUnsupported is returned on platforms without a trash implementation.
var ErrUnsupported = errors.New("trash: not supported on this platform")

// Trasher moves paths to the platform trash.
type Trasher interface {
	Trash(path string) error
}

// New returns the Trasher for the current platform.
func New() Trasher {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return unsupported{}
		}

		return &darwinTrash{dir: filepath.Join(home, ".Trash")}
	case "linux":
		return &xdgTrash{dataHome: xdgDataHome()}
	default:
		return unsupported{}
	}
}

type unsupported struct{}

func (unsupported) Trash(string) error { return ErrUnsupported }

// darwinTrash renames into ~/.Trash, deduplicating names the way Finder
// does (name 2.ext, name 3.ext, ...).
type darwinTrash struct {
	dir string
}

func (d *darwinTrash) Trash(path string) error {
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return fmt.Errorf("trash: %w", err)
	}

	target := uniqueName(d.dir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("trash %s: %w", path, err)
	}

	return nil
}

// xdgTrash implements the freedesktop.org trash layout: the item moves to
// Trash/files/<name> and a Trash/info/<name>.trashinfo records origin and
// deletion time so desktop environments can restore it.
type xdgTrash struct {
	dataHome string
}

func xdgDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".local", "share")
}

func (x *xdgTrash) Trash(path string) error {
	if x.dataHome == "" {
		return ErrUnsupported
	}

	filesDir := filepath.Join(x.dataHome, "Trash", "files")
	infoDir := filepath.Join(x.dataHome, "Trash", "info")

	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("trash: %w", err)
		}
	}

	target := uniqueName(filesDir, filepath.Base(path))
	name := filepath.Base(target)

	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		escapePath(path), time.Now().Format("2006-01-02T15:04:05"))

	infoPath := filepath.Join(infoDir, name+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return fmt.Errorf("trash: %w", err)
	}

	if err := os.Rename(path, target); err != nil {
		os.Remove(infoPath)
		return fmt.Errorf("trash %s: %w", path, err)
	}

	return nil
}

// uniqueName returns dir/base, or a numbered variant if that name is taken.
func uniqueName(dir, base string) string {
	candidate := filepath.Join(dir, base)
	if _, err := os.Lstat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	for i := 2; ; i++ {
		candidate = filepath.Join(dir, stem+" "+strconv.Itoa(i)+ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// escapePath percent-encodes the characters the trashinfo format reserves.
func escapePath(p string) string {
	out := make([]byte, 0, len(p))

	for i := 0; i < len(p); i++ {
		c := p[i]
		switch c {
		case '%', '\n', '\r':
			out = append(out, fmt.Sprintf("%%%02X", c)...)
		default:
			out = append(out, c)
		}
	}

	return string(out)
}
