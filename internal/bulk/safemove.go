package bulk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/filecrane/filecrane/internal/fsops"
	"github.com/filecrane/filecrane/internal/integrity"
)

// ErrVerifyFailed reports a safe-move whose copied data did not match the
// source. The destination has already been rolled back when this is
// returned.
var ErrVerifyFailed = errors.New("bulk: verification failed")

// SafeMove moves a single file or directory into the destination folder
// synchronously, with a copy-verify-delete protocol: the source is only
// removed after the copy is checksum-verified, and a failed or cancelled
// copy rolls the destination back. Returns the final destination path.
//
// An existing entry at the final destination is a conflict, never an
// implicit overwrite. Moving a path into its own containing folder is a
// success no-op.
func (e *Engine) SafeMove(ctx context.Context, rawSrc, rawDest string) (string, error) {
	src, err := e.resolver.Resolve(rawSrc)
	if err != nil {
		return "", err
	}

	info, err := os.Lstat(src)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", fsops.ErrNotFound, rawSrc)
	}

	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	dest, err := e.validateDest(rawDest)
	if err != nil {
		return "", err
	}

	final := filepath.Join(dest, filepath.Base(src))
	if final == src {
		return final, nil
	}

	if info.IsDir() && (dest == src || strings.HasPrefix(dest, src+string(pathSeparator))) {
		return "", fmt.Errorf("%w: cannot move a directory into itself", fsops.ErrBadRequest)
	}

	if _, err := os.Lstat(final); err == nil {
		return "", fmt.Errorf("%w: %s", fsops.ErrExists, final)
	}

	if err := e.copyPath(ctx, src, final, info); err != nil {
		os.RemoveAll(final)
		return "", err
	}

	if ok, reason := integrity.Verify(src, final, true); !ok {
		os.RemoveAll(final)
		return "", fmt.Errorf("%w: %s", ErrVerifyFailed, reason)
	}

	if err := os.RemoveAll(src); err != nil {
		return "", fmt.Errorf("copied but source removal failed: %w", err)
	}

	return final, nil
}

// copyPath copies one file or a whole tree, checking ctx between entries.
func (e *Engine) copyPath(ctx context.Context, src, dst string, info os.FileInfo) error {
	if !info.IsDir() {
		return e.copyFileContents(src, dst)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err != nil {
			return fmt.Errorf("scan %s: %w", path, err)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if d.IsDir() {
			mode := os.FileMode(0o755)
			if dirInfo, serr := os.Stat(path); serr == nil {
				mode = dirInfo.Mode().Perm()
			}

			return os.MkdirAll(target, mode)
		}

		return e.copyFileContents(path, target)
	})
}
