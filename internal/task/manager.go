package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Manager is the process-wide concurrent task registry. The map itself is
// lock-free (xsync); each Task serializes its own mutation, so many tasks
// progress in parallel without contending on a registry-wide lock.
type Manager struct {
	tasks  *xsync.MapOf[string, *Task]
	logger *slog.Logger
}

// NewManager creates an empty registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		tasks:  xsync.NewMapOf[string, *Task](),
		logger: logger,
	}
}

// Create registers a new pending task with an initial total_files estimate.
func (m *Manager) Create(totalFiles int) *Task {
	t := &Task{
		id:         uuid.NewString(),
		status:     StatusPending,
		totalFiles: totalFiles,
		createdAt:  time.Now(),
	}

	m.tasks.Store(t.id, t)
	m.logger.Debug("task created", slog.String("task_id", t.id), slog.Int("total_files", totalFiles))

	return t
}

// Get returns the task with the given id, or nil if unknown (or evicted).
func (m *Manager) Get(id string) *Task {
	t, ok := m.tasks.Load(id)
	if !ok {
		return nil
	}

	return t
}

// Cancel flips the cancellation flag on a non-terminal task. Returns false
// for unknown, terminal, or already-flagged tasks.
func (m *Manager) Cancel(id string) bool {
	t := m.Get(id)
	if t == nil {
		return false
	}

	ok := t.Cancel()
	if ok {
		m.logger.Info("task cancellation requested", slog.String("task_id", id))
	}

	return ok
}

// IsCancelled reports the cancellation flag; false for unknown tasks.
func (m *Manager) IsCancelled(id string) bool {
	t := m.Get(id)
	return t != nil && t.Cancelled()
}

// GC evicts terminal tasks whose completion time is older than maxAge.
// GC(0) removes exactly the set of terminal tasks. Returns the eviction count.
func (m *Manager) GC(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	m.tasks.Range(func(id string, t *Task) bool {
		t.mu.Lock()
		evict := t.status.Terminal() && !t.completedAt.IsZero() && !t.completedAt.After(cutoff)
		t.mu.Unlock()

		if evict {
			m.tasks.Delete(id)
			removed++
		}

		return true
	})

	if removed > 0 {
		m.logger.Debug("task gc", slog.Int("evicted", removed))
	}

	return removed
}

// Janitor runs GC(maxAge) every interval until ctx is cancelled. Run it in
// its own goroutine from startup wiring.
func (m *Manager) Janitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.GC(maxAge)
		}
	}
}
