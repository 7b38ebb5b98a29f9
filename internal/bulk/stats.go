package bulk

import "sync"

// OperationResult summarizes a finished bulk operation. Counts and entries
// are per top-level requested path, never per internal work item.
type OperationResult struct {
	Status       string       `json:"status"`
	SuccessCount int          `json:"success_count"`
	FailCount    int          `json:"fail_count"`
	Results      []PathResult `json:"results"`
}

// PathResult reports the outcome for one top-level source.
type PathResult struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// runStats is the shared mutable record of one pipeline run. Workers and
// the scanner update it under a single lock; reads for the final result
// happen after the join barrier.
type runStats struct {
	mu        sync.Mutex
	processed int
	// pathErrors attributes the first failure seen under each top-level
	// source; a root with any error reports status "error".
	pathErrors map[string]string
	// pathNotes overrides the success message for roots that were skipped
	// as no-ops (move source == destination).
	pathNotes map[string]string
	scanFail  string
}

func newRunStats() *runStats {
	return &runStats{
		pathErrors: make(map[string]string),
		pathNotes:  make(map[string]string),
	}
}

// failRoot records msg against root. Only the first failure is kept; later
// ones add no information for the per-root report.
func (s *runStats) failRoot(root, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pathErrors[root]; !exists {
		s.pathErrors[root] = msg
	}
}

// noteRoot records a success-with-message outcome for root (no-op skips).
func (s *runStats) noteRoot(root, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pathNotes[root] = msg
}

// rootNoted reports whether root finished as a no-op with its own message.
func (s *runStats) rootNoted(root string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.pathNotes[root]

	return exists
}

// rootFailed reports whether root has a recorded failure.
func (s *runStats) rootFailed(root string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.pathErrors[root]

	return exists
}

// itemDone bumps the processed counter and returns its new value.
func (s *runStats) itemDone() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed++

	return s.processed
}

func (s *runStats) setScanFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanFail == "" {
		s.scanFail = msg
	}
}

func (s *runStats) scanFailure() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanFail
}

// result assembles the per-root report in request order.
func (s *runStats) result(paths []string, okMessage string) *OperationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &OperationResult{Status: "completed", Results: make([]PathResult, 0, len(paths))}

	for _, p := range paths {
		if msg, bad := s.pathErrors[p]; bad {
			out.FailCount++
			out.Results = append(out.Results, PathResult{Path: p, Status: "error", Message: msg})

			continue
		}

		msg := okMessage
		if note, ok := s.pathNotes[p]; ok {
			msg = note
		}

		out.SuccessCount++
		out.Results = append(out.Results, PathResult{Path: p, Status: "success", Message: msg})
	}

	return out
}
