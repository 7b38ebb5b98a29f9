package bulk

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/filecrane/filecrane/internal/pathsafe"
	"github.com/filecrane/filecrane/internal/task"
)

// Delete creates a task and removes the given paths: local volumes go to
// the platform trash leaf by leaf, network volumes are unlinked directly.
// In async mode only the returned task ID is meaningful.
func (e *Engine) Delete(paths []string, asyncMode bool) (string, *OperationResult, error) {
	t := e.tasks.Create(len(paths))

	if asyncMode {
		go e.runDelete(t, paths)
		return t.ID(), nil, nil
	}

	return t.ID(), e.runDelete(t, paths), nil
}

func (e *Engine) runDelete(t *task.Task, paths []string) *OperationResult {
	t.SetRunning()
	t.UpdateProgress(0, "preparing")
	e.logger.Info("batch delete starting",
		slog.String("task_id", t.ID()),
		slog.Int("paths", len(paths)),
	)

	st := newRunStats()
	var dirs []workItem

	scan := func(push func(workItem) bool) {
		discovered := 0

		for _, raw := range paths {
			if t.Cancelled() {
				return
			}

			dirs = append(dirs, e.scanDeleteSource(t, st, push, raw, &discovered)...)
		}

		t.SetTotal(discovered)
	}

	e.runPipeline(t, st, scan)

	if !t.Cancelled() {
		e.removeDirectories(t, st, dirs)
	}

	return e.finish(t, st, paths, "moved to trash")
}

// scanDeleteSource enumerates one top-level source: files and symlinks go
// straight into the queue (any order), directory paths are collected and
// returned for the deepest-first removal phase after workers join.
func (e *Engine) scanDeleteSource(
	t *task.Task, st *runStats, push func(workItem) bool, raw string, discovered *int,
) []workItem {
	src, err := e.resolver.Resolve(raw)
	if err != nil {
		st.failRoot(raw, resolveMessage(err))
		return nil
	}

	info, err := os.Lstat(src)
	if os.IsNotExist(err) {
		st.failRoot(raw, "file not found")
		return nil
	}

	if err != nil {
		st.failRoot(raw, err.Error())
		return nil
	}

	direct := pathsafe.Classify(src) == pathsafe.Network
	if direct {
		st.noteRoot(raw, "deleted (network volume)")
	}

	if !info.IsDir() {
		*discovered++
		push(workItem{op: opDeleteFile, src: src, root: raw, direct: direct})
		t.SetTotal(*discovered + scanTotalBuffer)

		return nil
	}

	dirs := []workItem{{op: opRmdirEmpty, src: src, root: raw, direct: direct}}

	_ = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if t.Cancelled() {
			return fs.SkipAll
		}

		if err != nil {
			st.failRoot(raw, fmt.Sprintf("scan failed under %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if path == src {
			return nil
		}

		if d.IsDir() {
			dirs = append(dirs, workItem{op: opRmdirEmpty, src: path, root: raw, direct: direct})
			return nil
		}

		*discovered++
		push(workItem{op: opDeleteFile, src: path, root: raw, direct: direct})

		if *discovered%totalRefreshEvery == 0 {
			t.SetTotal(*discovered + scanTotalBuffer)
		}

		return nil
	})

	return dirs
}

// executeDeleteFile removes one file or symlink. Local items go to the
// platform trash first; only a failure of both trash and direct unlink
// counts against the source.
func (e *Engine) executeDeleteFile(t *task.Task, st *runStats, item workItem) {
	defer func() {
		t.UpdateProgress(st.itemDone(), filepath.Base(item.src))
	}()

	if err := e.removeLeaf(item.src, item.direct); err != nil {
		st.failRoot(item.root, fmt.Sprintf("delete %s: %v", item.src, err))
	}
}

// removeLeaf deletes a single filesystem entry honoring the trash policy.
// Any trash failure, including ErrUnsupported platforms, falls through to
// direct removal.
func (e *Engine) removeLeaf(path string, direct bool) error {
	if !direct && e.trasher != nil {
		if err := e.trasher.Trash(path); err == nil {
			return nil
		}
	}

	return os.Remove(path)
}

// removeDirectories runs the post-join removal phase: directories sorted by
// descending depth (lexicographic tiebreak), trashed on local volumes,
// rmdir'd on network volumes. Directories under roots with a recorded
// failure are left alone so the force-delete fallback cannot destroy files
// the leaf phase could not remove. A surviving directory that picked up new
// entries since the scan (metadata files written by other apps) is
// force-deleted with errors swallowed.
func (e *Engine) removeDirectories(t *task.Task, st *runStats, dirs []workItem) {
	paths := make([]string, len(dirs))
	byPath := make(map[string]workItem, len(dirs))

	for i, d := range dirs {
		paths[i] = d.src
		byPath[d.src] = d
	}

	sortDeepestFirst(paths)

	for _, p := range paths {
		if t.Cancelled() {
			return
		}

		item := byPath[p]
		if st.rootFailed(item.root) {
			continue
		}

		t.UpdateProgress(0, filepath.Base(p))

		if _, err := os.Lstat(p); os.IsNotExist(err) {
			continue
		}

		if err := e.removeLeaf(p, item.direct); err != nil {
			_ = os.RemoveAll(p)
		}
	}
}
