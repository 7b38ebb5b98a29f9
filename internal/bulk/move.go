package bulk

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/filecrane/filecrane/internal/task"
)

// moveTotalMultiplier plans 2x totals for moves: every discovered file is
// processed twice, once copied and once unlinked.
const moveTotalMultiplier = 2

// Move copies Sources into Dest, then removes each source whose subtree
// copied without a single failure. Errored sources stay fully intact at
// their origin. Same-path sources are success no-ops rather than errors.
func (e *Engine) Move(req CopyRequest, asyncMode bool) (string, *OperationResult, error) {
	dest, err := e.validateDest(req.Dest)
	if err != nil {
		return "", nil, err
	}

	t := e.tasks.Create(len(req.Sources) * initialEstimatePerSource)

	if asyncMode {
		go e.runMove(t, req, dest)
		return t.ID(), nil, nil
	}

	return t.ID(), e.runMove(t, req, dest), nil
}

func (e *Engine) runMove(t *task.Task, req CopyRequest, dest string) *OperationResult {
	t.SetRunning()
	t.UpdateProgress(0, "preparing")
	e.logger.Info("batch move starting",
		slog.String("task_id", t.ID()),
		slog.Int("sources", len(req.Sources)),
		slog.String("dest", dest),
	)

	st := newRunStats()

	copyScanAll := func(push func(workItem) bool) {
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
				// Moving onto yourself is a no-op, not an error.
				sameIsError: false,
				multiplier:  moveTotalMultiplier,
			}, &discovered)
		}

		t.SetTotal(discovered * moveTotalMultiplier)
	}

	e.runPipeline(t, st, copyScanAll)

	if t.Cancelled() {
		return e.finish(t, st, req.Sources, "moved")
	}

	var dirs []workItem

	cleanupScan := func(push func(workItem) bool) {
		for _, raw := range req.Sources {
			if t.Cancelled() {
				return
			}

			if st.rootFailed(raw) || st.rootNoted(raw) {
				continue
			}

			dirs = append(dirs, e.scanMoveCleanup(t, st, push, raw)...)
		}
	}

	e.runPipeline(t, st, cleanupScan)

	if !t.Cancelled() {
		e.removeDirectories(t, st, dirs)
	}

	return e.finish(t, st, req.Sources, "moved")
}

// scanMoveCleanup enumerates the already-copied source for removal. The
// trash is bypassed throughout: the data lives on at the destination, so
// the source unlink is a true move, not a delete.
func (e *Engine) scanMoveCleanup(
	t *task.Task, st *runStats, push func(workItem) bool, raw string,
) []workItem {
	src, err := e.resolver.Resolve(raw)
	if err != nil {
		// Resolution succeeded during the copy phase; treat a late failure
		// as a partial move.
		st.failRoot(raw, fmt.Sprintf("copied but source removal failed: %s", resolveMessage(err)))
		return nil
	}

	info, err := os.Lstat(src)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		st.failRoot(raw, fmt.Sprintf("copied but source removal failed: %v", err))
		return nil
	}

	if !info.IsDir() {
		push(workItem{op: opDeleteFile, src: src, root: raw, direct: true})
		return nil
	}

	dirs := []workItem{{op: opRmdirEmpty, src: src, root: raw, direct: true}}

	_ = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if t.Cancelled() {
			return fs.SkipAll
		}

		if err != nil {
			st.failRoot(raw, fmt.Sprintf("copied but source removal failed under %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if path == src {
			return nil
		}

		if d.IsDir() {
			dirs = append(dirs, workItem{op: opRmdirEmpty, src: path, root: raw, direct: true})
			return nil
		}

		push(workItem{op: opDeleteFile, src: path, root: raw, direct: true})

		return nil
	})

	return dirs
}
