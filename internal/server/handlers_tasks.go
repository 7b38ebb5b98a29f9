package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/filecrane/filecrane/internal/fsops"
)

// wsSnapshotInterval is how often the websocket stream emits a progress
// snapshot while the task is running.
const wsSnapshotInterval = 250 * time.Millisecond

func (s *Server) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	t := s.tasks.Get(id)
	if t == nil {
		s.writeError(w, fmt.Errorf("%w: task %s", fsops.ErrNotFound, id))
		return
	}

	writeJSON(w, http.StatusOK, t.Snapshot())
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	t := s.tasks.Get(id)
	if t == nil {
		s.writeError(w, fmt.Errorf("%w: task %s", fsops.ErrNotFound, id))
		return
	}

	// Cancel reports whether this call flipped the flag. A second cancel
	// of the same task (or cancelling a finished one) reports false with
	// the same 200.
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"cancelled": t.Cancel(),
	})
}

// handleTaskWebsocket streams task snapshots until the task reaches a
// terminal status, then sends the final snapshot and closes.
func (s *Server) handleTaskWebsocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	t := s.tasks.Get(id)
	if t == nil {
		s.writeError(w, fmt.Errorf("%w: task %s", fsops.ErrNotFound, id))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Single trusted local user; origins match the CORS policy.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ticker := time.NewTicker(wsSnapshotInterval)
	defer ticker.Stop()

	for {
		snap := t.Snapshot()
		if err := wsjson.Write(ctx, conn, snap); err != nil {
			return
		}

		if snap.Status.Terminal() {
			conn.Close(websocket.StatusNormalClosure, string(snap.Status))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
