// Package bulk implements the parallel copy/move/delete engine: a
// scan/execute pipeline in which one scanner goroutine enumerates work into
// a bounded queue and a pool of workers drains it, updating task progress
// and honoring cooperative cancellation.
package bulk

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/filecrane/filecrane/internal/pathsafe"
	"github.com/filecrane/filecrane/internal/task"
	"github.com/filecrane/filecrane/internal/trash"
)

const (
	// defaultQueueCapacity bounds the scanner/worker channel so a fast
	// scanner cannot balloon memory on million-file trees.
	defaultQueueCapacity = 10_000
	// maxWorkers caps the pool regardless of CPU count.
	maxWorkers = 64
	// workersPerCPU oversubscribes the pool; filesystem operations are
	// overwhelmingly I/O-bound and the extra workers hide latency.
	workersPerCPU = 8
	// totalRefreshEvery controls how often the scanner raises the task's
	// total_files while discovery is still running.
	totalRefreshEvery = 100
	// scanTotalBuffer is added to interim totals so the progress bar keeps
	// headroom until the scan finishes and the exact count lands.
	scanTotalBuffer = 100
	// initialEstimatePerSource seeds total_files before scanning so UI
	// progress bars animate immediately.
	initialEstimatePerSource = 10
)

// DefaultWorkers returns the worker pool size for this host.
func DefaultWorkers() int {
	n := runtime.NumCPU() * workersPerCPU
	if n > maxWorkers {
		return maxWorkers
	}

	return n
}

// Options tunes the engine. Zero values select defaults.
type Options struct {
	Workers       int
	QueueCapacity int
	// BandwidthLimit caps aggregate copy throughput, e.g. "50MB/s".
	// Empty or "0" means unlimited.
	BandwidthLimit string
}

// Engine executes bulk filesystem operations against a confinement root.
type Engine struct {
	resolver *pathsafe.Resolver
	tasks    *task.Manager
	trasher  trash.Trasher
	limiter  *bandwidthLimiter
	workers  int
	queueCap int
	logger   *slog.Logger
}

// NewEngine wires an engine. tasks and resolver are required; trasher may be
// nil on platforms without trash support (deletions then always unlink).
func NewEngine(
	resolver *pathsafe.Resolver,
	tasks *task.Manager,
	trasher trash.Trasher,
	opts Options,
	logger *slog.Logger,
) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	queueCap := opts.QueueCapacity
	if queueCap <= 0 {
		queueCap = defaultQueueCapacity
	}

	limiter, err := newBandwidthLimiter(opts.BandwidthLimit)
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}

	logger.Info("bulk engine created",
		slog.Int("workers", workers),
		slog.Int("queue_capacity", queueCap),
		slog.Bool("bandwidth_limited", limiter != nil),
	)

	return &Engine{
		resolver: resolver,
		tasks:    tasks,
		trasher:  trasher,
		limiter:  limiter,
		workers:  workers,
		queueCap: queueCap,
		logger:   logger,
	}, nil
}

// runPipeline executes the shared scan/execute skeleton: scan runs in its
// own goroutine pushing items through the bounded queue; workers drain it
// until the queue is closed (the scan-complete signal). Every push and pop
// checks the task's cancellation flag. A scanner panic is converted into a
// catastrophic failure recorded on st.
func (e *Engine) runPipeline(t *task.Task, st *runStats, scan func(push func(workItem) bool)) {
	queue := make(chan workItem, e.queueCap)

	push := func(item workItem) bool {
		if t.Cancelled() {
			return false
		}

		queue <- item

		return true
	}

	go func() {
		defer close(queue)
		defer func() {
			if r := recover(); r != nil {
				st.setScanFailure(fmt.Sprintf("scanner failed: %v", r))
				e.logger.Error("scanner panic", slog.String("task_id", t.ID()), slog.Any("panic", r))
			}
		}()

		scan(push)
	}()

	var wg sync.WaitGroup
	for range e.workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for item := range queue {
				if t.Cancelled() {
					// Drain without acting so the scanner never blocks on
					// a full queue during shutdown.
					continue
				}

				e.execute(t, st, item)
			}
		}()
	}

	wg.Wait()
}

// execute dispatches one work item to its handler.
func (e *Engine) execute(t *task.Task, st *runStats, item workItem) {
	switch item.op {
	case opCopyFile:
		e.executeCopyFile(t, st, item)
	case opMkdir:
		e.executeMkdir(t, st, item)
	case opDeleteFile:
		e.executeDeleteFile(t, st, item)
	case opRmdirEmpty:
		// Directory removal runs in the post-join phase; items of this
		// kind never enter the queue today.
	}
}

// finish transitions the task to its terminal state and returns the result.
// Cancellation wins over scan failure: a cancelled scan is not an error.
func (e *Engine) finish(t *task.Task, st *runStats, paths []string, okMessage string) *OperationResult {
	result := st.result(paths, okMessage)

	switch {
	case t.Cancelled():
		t.SetCancelled()
	case st.scanFailure() != "":
		t.Fail(st.scanFailure())
	default:
		t.Complete(result)
	}

	e.logger.Info("bulk operation finished",
		slog.String("task_id", t.ID()),
		slog.String("status", string(t.Snapshot().Status)),
		slog.Int("success", result.SuccessCount),
		slog.Int("fail", result.FailCount),
	)

	return result
}

// sortDeepestFirst orders directory paths by descending depth, breaking
// ties lexicographically so removal order is deterministic.
func sortDeepestFirst(dirs []string) {
	sort.Slice(dirs, func(i, j int) bool {
		di := strings.Count(dirs[i], string(pathSeparator))
		dj := strings.Count(dirs[j], string(pathSeparator))
		if di != dj {
			return di > dj
		}

		return dirs[i] < dirs[j]
	})
}
