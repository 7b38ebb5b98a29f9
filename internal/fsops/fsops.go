package fsops

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// FileEntry is the JSON shape of one directory listing or search result.
// Size and Modified are present only for files whose stat succeeded.
type FileEntry struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Path     string     `json:"path"`
	Size     *int64     `json:"size,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
}

const (
	TypeFile      = "file"
	TypeDirectory = "directory"
	TypeNotFound  = "not_found"
)

// NewEntry builds a FileEntry for path using the directory entry's metadata.
// A failed stat on a file yields an entry without size or mtime.
func NewEntry(path string, d fs.DirEntry) FileEntry {
	entry := FileEntry{
		Name: d.Name(),
		Type: TypeFile,
		Path: path,
	}

	if d.IsDir() {
		entry.Type = TypeDirectory
		return entry
	}

	if info, err := d.Info(); err == nil {
		size := info.Size()
		mod := info.ModTime()
		entry.Size = &size
		entry.Modified = &mod
	}

	return entry
}

// List returns the entries of dir, directories first, each group sorted
// case-insensitively by name.
func List(dir string) ([]FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	if err != nil {
		if !statIsDir(dir) {
			return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}

		return nil, fmt.Errorf("read directory: %w", err)
	}

	out := make([]FileEntry, 0, len(entries))
	for _, d := range entries {
		out = append(out, NewEntry(filepath.Join(dir, d.Name()), d))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == TypeDirectory
		}

		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out, nil
}

func statIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// PathProbe answers a path-info query: the path's kind, and for a missing
// path the nearest existing ancestor so the client can navigate there.
type PathProbe struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Parent string `json:"parent,omitempty"`
}

// PathInfo probes path without failing on absence.
func PathInfo(path string) PathProbe {
	info, err := os.Stat(path)
	if err == nil {
		kind := TypeFile
		if info.IsDir() {
			kind = TypeDirectory
		}

		return PathProbe{Path: path, Type: kind}
	}

	parent := filepath.Dir(path)
	for parent != filepath.Dir(parent) {
		if statIsDir(parent) {
			break
		}

		parent = filepath.Dir(parent)
	}

	return PathProbe{Path: path, Type: TypeNotFound, Parent: parent}
}

// validateName rejects empty names and names containing path separators or
// traversal, so created entries always land directly in the parent.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrBadRequest)
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid name %q", ErrBadRequest, name)
	}

	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: invalid name", ErrBadRequest)
	}

	return nil
}

// CreateFolder creates a new directory named name under parent. An existing
// entry of any kind at the target is a conflict.
func CreateFolder(parent, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	if !statIsDir(parent) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, parent)
	}

	target := filepath.Join(parent, name)
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, target)
	}

	if err := os.Mkdir(target, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	return target, nil
}

// CreateFile creates a new file named name under parent with the given
// content. Refuses to clobber an existing entry.
func CreateFile(parent, name, content string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	if !statIsDir(parent) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, parent)
	}

	target := filepath.Join(parent, name)
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, target)
	}

	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	return target, nil
}

// WriteFile overwrites an existing file's content, preserving its mode.
func WriteFile(path, content string) error {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	mode := info.Mode().Perm()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// Rename gives the entry at oldPath a new name within its directory.
// Refuses to overwrite an existing target.
func Rename(oldPath, newName string) (string, error) {
	if err := validateName(newName); err != nil {
		return "", err
	}

	if _, err := os.Lstat(oldPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, oldPath)
	} else if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}

	target := filepath.Join(filepath.Dir(oldPath), newName)
	if target == oldPath {
		return target, nil
	}

	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, target)
	}

	if err := os.Rename(oldPath, target); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}

	return target, nil
}

// ReadText reads a file that must contain valid UTF-8 text.
func ReadText(path string) (string, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not a text file", ErrBadRequest, path)
	}

	return string(data), nil
}

// CountFiles counts regular files under path down to maxDepth levels below
// it (0 = unlimited). A file path counts as one. Unreadable subtrees are
// skipped silently.
func CountFiles(path string, maxDepth int) (int, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}

	if !info.IsDir() {
		return 1, nil
	}

	count := 0

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if maxDepth > 0 && relDepth(path, p) >= maxDepth {
				return fs.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() {
			count++
		}

		return nil
	})

	return count, nil
}

// relDepth counts how many levels below root p sits. The root itself is 0.
func relDepth(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}

	return strings.Count(rel, string(os.PathSeparator)) + 1
}
