package server

import (
	"fmt"
	"net/http"

	"github.com/filecrane/filecrane/internal/bulk"
	"github.com/filecrane/filecrane/internal/fsops"
)

// batchRequest is the shared body shape of the copy and move batch
// endpoints.
type batchRequest struct {
	SrcPaths       []string `json:"src_paths"`
	DestPath       string   `json:"dest_path"`
	Overwrite      bool     `json:"overwrite"`
	VerifyChecksum bool     `json:"verify_checksum"`
	AsyncMode      bool     `json:"async_mode"`
}

func (b *batchRequest) validate() error {
	if len(b.SrcPaths) == 0 {
		return fmt.Errorf("%w: src_paths must not be empty", fsops.ErrBadRequest)
	}

	return nil
}

// asyncAccepted is the immediate reply of an async dispatch.
type asyncAccepted struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
}

// batchCompleted is the reply of a synchronous batch: the operation result
// plus the task id the run was tracked under.
type batchCompleted struct {
	*bulk.OperationResult
	TaskID string `json:"task_id"`
}

// writeBatchOutcome renders either the async handle or the final result.
// Item-level failures never produce a non-2xx status here; only a malformed
// top-level request does, and that is decided before the engine runs.
func (s *Server) writeBatchOutcome(w http.ResponseWriter, taskID string, result *bulk.OperationResult) {
	if result == nil {
		writeJSON(w, http.StatusOK, asyncAccepted{Status: "async", TaskID: taskID})
		return
	}

	writeJSON(w, http.StatusOK, batchCompleted{OperationResult: result, TaskID: taskID})
}

func (s *Server) handleCopyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := req.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	taskID, result, err := s.engine.Copy(bulk.CopyRequest{
		Sources:        req.SrcPaths,
		Dest:           req.DestPath,
		Overwrite:      req.Overwrite,
		VerifyChecksum: req.VerifyChecksum,
	}, req.AsyncMode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeBatchOutcome(w, taskID, result)
}

func (s *Server) handleMoveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := req.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	taskID, result, err := s.engine.Move(bulk.CopyRequest{
		Sources:        req.SrcPaths,
		Dest:           req.DestPath,
		Overwrite:      req.Overwrite,
		VerifyChecksum: req.VerifyChecksum,
	}, req.AsyncMode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeBatchOutcome(w, taskID, result)
}

func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths     []string `json:"paths"`
		AsyncMode bool     `json:"async_mode"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if len(req.Paths) == 0 {
		s.writeError(w, fmt.Errorf("%w: paths must not be empty", fsops.ErrBadRequest))
		return
	}

	taskID, result, err := s.engine.Delete(req.Paths, req.AsyncMode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeBatchOutcome(w, taskID, result)
}

// handleDeleteSingle deletes one item through the same engine as the batch
// endpoint, so trash policy and task tracking behave identically.
func (s *Server) handleDeleteSingle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path      string `json:"path"`
		AsyncMode bool   `json:"async_mode"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Path == "" {
		s.writeError(w, fmt.Errorf("%w: path must not be empty", fsops.ErrBadRequest))
		return
	}

	taskID, result, err := s.engine.Delete([]string{req.Path}, req.AsyncMode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeBatchOutcome(w, taskID, result)
}

// handleMoveSingle performs the synchronous copy-verify-delete move of one
// item. Unlike the batch endpoints this surfaces failures as HTTP errors.
func (s *Server) handleMoveSingle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SrcPath  string `json:"src_path"`
		DestPath string `json:"dest_path"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.SrcPath == "" {
		s.writeError(w, fmt.Errorf("%w: src_path must not be empty", fsops.ErrBadRequest))
		return
	}

	final, err := s.engine.SafeMove(r.Context(), req.SrcPath, req.DestPath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   final,
	})
}
