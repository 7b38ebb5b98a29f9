package bulk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filecrane/filecrane/internal/fsops"
	"github.com/filecrane/filecrane/internal/integrity"
	"github.com/filecrane/filecrane/internal/pathsafe"
	"github.com/filecrane/filecrane/internal/task"
)

// copyBufSize is the per-worker copy buffer.
const copyBufSize = 128 * 1024

// CopyRequest describes a bulk copy of Sources into the Dest directory.
type CopyRequest struct {
	Sources        []string
	Dest           string
	Overwrite      bool
	VerifyChecksum bool
}

// Copy validates the destination, creates a task, and runs the copy. In
// async mode the pipeline runs in a background goroutine and only the task
// ID is meaningful; otherwise the terminal result is returned directly.
// A missing or non-directory destination fails the whole batch up front.
func (e *Engine) Copy(req CopyRequest, asyncMode bool) (string, *OperationResult, error) {
	dest, err := e.validateDest(req.Dest)
	if err != nil {
		return "", nil, err
	}

	t := e.tasks.Create(len(req.Sources) * initialEstimatePerSource)

	if asyncMode {
		go e.runCopy(t, req, dest)
		return t.ID(), nil, nil
	}

	return t.ID(), e.runCopy(t, req, dest), nil
}

// validateDest resolves and checks the batch destination directory.
func (e *Engine) validateDest(raw string) (string, error) {
	dest, err := e.resolver.Resolve(raw)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: destination folder %s", fsops.ErrNotFound, raw)
	}

	if err != nil {
		return "", fmt.Errorf("stat destination: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: destination %s must be a directory", fsops.ErrNotDirectory, raw)
	}

	return dest, nil
}

func (e *Engine) runCopy(t *task.Task, req CopyRequest, dest string) *OperationResult {
	t.SetRunning()
	t.UpdateProgress(0, "preparing")
	e.logger.Info("batch copy starting",
		slog.String("task_id", t.ID()),
		slog.Int("sources", len(req.Sources)),
		slog.String("dest", dest),
	)

	st := newRunStats()

	scan := func(push func(workItem) bool) {
		discovered := 0

		for _, raw := range req.Sources {
			if t.Cancelled() {
				return
			}

			e.scanCopySource(t, st, push, copyScan{
				raw:       raw,
				dest:      dest,
				overwrite: req.Overwrite,
				verify:    req.VerifyChecksum,
				// Copying a file onto itself is an error; a degenerate
				// request the user should see.
				sameIsError: true,
				multiplier:  1,
			}, &discovered)
		}

		t.SetTotal(discovered)
	}

	e.runPipeline(t, st, scan)

	return e.finish(t, st, req.Sources, "copied")
}

// copyScan bundles the per-source parameters of the copy scanner, shared
// with the move pipeline (which plans 2x totals and treats same-path as a
// success no-op).
type copyScan struct {
	raw         string
	dest        string
	overwrite   bool
	verify      bool
	sameIsError bool
	multiplier  int
}

// scanCopySource enumerates one top-level source into the queue: one Mkdir
// per directory (parents before children, WalkDir is top-down), one
// CopyFile per file. Validation failures attach to the source and scanning
// continues with the next one.
func (e *Engine) scanCopySource(
	t *task.Task, st *runStats, push func(workItem) bool, sc copyScan, discovered *int,
) {
	src, err := e.resolver.Resolve(sc.raw)
	if err != nil {
		st.failRoot(sc.raw, resolveMessage(err))
		return
	}

	info, err := os.Lstat(src)
	if os.IsNotExist(err) {
		st.failRoot(sc.raw, "file not found")
		return
	}

	if err != nil {
		st.failRoot(sc.raw, err.Error())
		return
	}

	finalDest := filepath.Join(sc.dest, filepath.Base(src))

	if src == finalDest {
		if sc.sameIsError {
			st.failRoot(sc.raw, "source and destination are the same file")
		} else {
			st.noteRoot(sc.raw, "source and destination are the same")
		}

		return
	}

	if info.IsDir() {
		if sc.dest == src || strings.HasPrefix(sc.dest, src+string(pathSeparator)) {
			st.failRoot(sc.raw, "cannot copy a directory into itself")
			return
		}

		e.scanCopyTree(t, st, push, sc, src, finalDest, discovered)

		return
	}

	*discovered++
	push(workItem{
		op: opCopyFile, src: src, dst: finalDest, root: sc.raw,
		overwrite: sc.overwrite, verify: sc.verify,
	})
	t.SetTotal(*discovered*sc.multiplier + scanTotalBuffer)
}

// scanCopyTree walks a directory source top-down, enqueuing Mkdir before
// the subtree under it. Unreadable subtrees are recorded against the source
// and skipped.
func (e *Engine) scanCopyTree(
	t *task.Task, st *runStats, push func(workItem) bool, sc copyScan,
	src, finalDest string, discovered *int,
) {
	push(workItem{op: opMkdir, src: src, dst: finalDest, root: sc.raw})

	_ = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if t.Cancelled() {
			return fs.SkipAll
		}

		if err != nil {
			st.failRoot(sc.raw, fmt.Sprintf("scan failed under %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if path == src {
			return nil
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			st.failRoot(sc.raw, relErr.Error())
			return nil
		}

		target := filepath.Join(finalDest, rel)

		if d.IsDir() {
			push(workItem{op: opMkdir, src: path, dst: target, root: sc.raw})
			return nil
		}

		*discovered++
		push(workItem{
			op: opCopyFile, src: path, dst: target, root: sc.raw,
			overwrite: sc.overwrite, verify: sc.verify,
		})

		if *discovered%totalRefreshEvery == 0 {
			t.SetTotal(*discovered*sc.multiplier + scanTotalBuffer)
		}

		return nil
	})
}

// executeMkdir creates a destination directory, preserving the source
// directory's permission bits where the filesystem allows.
func (e *Engine) executeMkdir(t *task.Task, st *runStats, item workItem) {
	mode := os.FileMode(0o755)
	if info, err := os.Stat(item.src); err == nil {
		mode = info.Mode().Perm()
	}

	if err := os.MkdirAll(item.dst, mode); err != nil {
		st.failRoot(item.root, fmt.Sprintf("create directory %s: %v", item.dst, err))
	}
}

// executeCopyFile copies one file. Workers may run ahead of the Mkdir items
// for their parents, so the immediate parent is created defensively first.
func (e *Engine) executeCopyFile(t *task.Task, st *runStats, item workItem) {
	defer func() {
		t.UpdateProgress(st.itemDone(), filepath.Base(item.src))
	}()

	if err := os.MkdirAll(filepath.Dir(item.dst), 0o755); err != nil {
		st.failRoot(item.root, fmt.Sprintf("create parent for %s: %v", item.dst, err))
		return
	}

	if _, err := os.Lstat(item.dst); err == nil {
		if !item.overwrite {
			st.failRoot(item.root, fmt.Sprintf("destination already exists: %s", item.dst))
			return
		}

		if err := os.RemoveAll(item.dst); err != nil {
			st.failRoot(item.root, fmt.Sprintf("replace %s: %v", item.dst, err))
			return
		}
	}

	if err := e.copyFileContents(item.src, item.dst); err != nil {
		st.failRoot(item.root, err.Error())
		return
	}

	if item.verify {
		if ok, reason := verifyChecksums(item.src, item.dst); !ok {
			os.Remove(item.dst)
			st.failRoot(item.root, fmt.Sprintf("verification failed for %s: %s", item.dst, reason))
		}
	}
}

// copyFileContents streams src to dst through the shared bandwidth limiter,
// preserving the permission bits and modification time.
func (e *Engine) copyFileContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	buf := make([]byte, copyBufSize)
	if _, err := io.CopyBuffer(out, e.limiter.reader(in), buf); err != nil {
		out.Close()
		os.Remove(dst)

		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}

	// Best-effort metadata preservation; chtimes failure is not worth
	// failing the item over.
	_ = os.Chtimes(dst, time.Now(), info.ModTime())

	return nil
}

func verifyChecksums(src, dst string) (bool, string) {
	srcSum, err := integrity.FileChecksum(src)
	if err != nil {
		return false, err.Error()
	}

	dstSum, err := integrity.FileChecksum(dst)
	if err != nil {
		return false, err.Error()
	}

	if srcSum != dstSum {
		return false, "checksum mismatch"
	}

	return true, ""
}

// resolveMessage renders a pathsafe resolution error for a per-item report.
func resolveMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pathsafe.ErrEscapesRoot):
		return "path is outside the allowed root"
	case errors.Is(err, pathsafe.ErrBadPath):
		return "invalid path"
	default:
		return err.Error()
	}
}
