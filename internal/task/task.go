// Package task tracks the state, progress, and cancellation of background
// bulk jobs. A process-scope Manager is created at startup and passed
// explicitly to the components that need it.
package task

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Terminal reports whether s is a final state. Terminal states are
// monotonic: once reached, no further mutation of status, result, or
// completion time is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// Task is the record of one bulk job. All mutation goes through methods
// guarded by the per-task mutex; the cancelled flag is an atomic read so
// workers can poll it on every iteration without lock traffic.
type Task struct {
	id string

	mu             sync.Mutex
	status         Status
	progress       int
	currentFile    string
	totalFiles     int
	processedFiles int
	errorMessage   string
	result         any
	createdAt      time.Time
	completedAt    time.Time

	cancelled atomic.Bool
}

// Snapshot is the JSON-facing view of a Task at one point in time.
type Snapshot struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	Progress       int        `json:"progress"`
	CurrentFile    string     `json:"current_file"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	Cancelled      bool       `json:"cancelled"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	Result         any        `json:"result,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ID returns the opaque unique task identifier.
func (t *Task) ID() string {
	return t.id
}

// Cancelled reports the cooperative cancellation flag. Safe to call at high
// frequency from scanner and workers.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Snapshot returns a consistent copy of the task state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ID:             t.id,
		Status:         t.status,
		Progress:       t.progress,
		CurrentFile:    t.currentFile,
		TotalFiles:     t.totalFiles,
		ProcessedFiles: t.processedFiles,
		Cancelled:      t.cancelled.Load(),
		ErrorMessage:   t.errorMessage,
		Result:         t.result,
		CreatedAt:      t.createdAt,
	}

	if !t.completedAt.IsZero() {
		done := t.completedAt
		s.CompletedAt = &done
	}

	return s
}

// SetRunning transitions pending → running. A no-op in any other state.
func (t *Task) SetRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusPending {
		t.status = StatusRunning
	}
}

// UpdateProgress records the processed count and the file currently being
// worked on. The derived percentage is clamped non-decreasing so concurrent
// total refinement by the scanner never makes the progress bar move
// backwards. No-op once terminal.
func (t *Task) UpdateProgress(processed int, currentFile string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	if processed > t.processedFiles {
		t.processedFiles = processed
	}

	t.currentFile = currentFile
	t.recalcProgress()
}

// SetTotal refines total_files while scanning is still in progress.
// No-op once terminal.
func (t *Task) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() || total < 0 {
		return
	}

	t.totalFiles = total
	t.recalcProgress()
}

// recalcProgress derives the percentage from processed/total, clamped
// non-decreasing and capped at 100. Caller holds t.mu.
func (t *Task) recalcProgress() {
	if t.totalFiles <= 0 {
		return
	}

	p := t.processedFiles * 100 / t.totalFiles
	if p > 100 {
		p = 100
	}

	if p > t.progress {
		t.progress = p
	}
}

// Complete transitions to completed with the final result. Progress is
// forced to 100. No-op once terminal.
func (t *Task) Complete(result any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	t.status = StatusCompleted
	t.progress = 100
	t.result = result
	t.completedAt = time.Now()
}

// Fail transitions to error with a message. No-op once terminal.
func (t *Task) Fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	t.status = StatusError
	t.errorMessage = message
	t.completedAt = time.Now()
}

// Cancel requests cooperative cancellation. It never changes status
// directly; workers observe the flag and drain, after which the engine calls
// SetCancelled. Returns true only when the request newly took effect: false
// if the task is already terminal or already flagged.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return false
	}

	return t.cancelled.CompareAndSwap(false, true)
}

// SetCancelled transitions to cancelled, called by the engine after workers
// have stopped. No-op once terminal.
func (t *Task) SetCancelled() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	t.status = StatusCancelled
	t.completedAt = time.Now()
}
