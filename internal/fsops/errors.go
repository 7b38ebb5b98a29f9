// Package fsops implements the single-file operations of the service and
// the shared filesystem error taxonomy. The HTTP adapter maps these
// sentinels to status codes; use errors.Is to check.
package fsops

import "errors"

var (
	// ErrBadRequest indicates malformed input (empty name, non-text file
	// where text is required). Maps to 400.
	ErrBadRequest = errors.New("fsops: bad request")
	// ErrNotFound indicates a missing source or parent directory. Maps to 404.
	ErrNotFound = errors.New("fsops: not found")
	// ErrNotDirectory indicates a path that must be a directory but is not.
	// Maps to 400.
	ErrNotDirectory = errors.New("fsops: not a directory")
	// ErrIsDirectory indicates a directory where a file was required. Maps to 400.
	ErrIsDirectory = errors.New("fsops: is a directory")
	// ErrExists indicates a creation or rename target that already exists.
	// Maps to 409.
	ErrExists = errors.New("fsops: already exists")
)
