package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/filecrane/filecrane/internal/bulk"
	"github.com/filecrane/filecrane/internal/fsops"
	"github.com/filecrane/filecrane/internal/pathsafe"
)

// maxBodySize bounds request bodies. File content travels through
// update-file, so this is generous but not unbounded.
const maxBodySize = 64 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON error envelope: {"detail": "..."} on every
// non-2xx response.
type errorBody struct {
	Detail string `json:"detail"`
}

// writeError classifies err onto an HTTP status and renders the envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}

	writeJSON(w, status, errorBody{Detail: err.Error()})
}

// classify maps the domain error taxonomy onto HTTP status codes.
func classify(err error) int {
	switch {
	case errors.Is(err, pathsafe.ErrEscapesRoot):
		return http.StatusForbidden
	case errors.Is(err, pathsafe.ErrBadPath),
		errors.Is(err, fsops.ErrBadRequest),
		errors.Is(err, fsops.ErrNotDirectory),
		errors.Is(err, fsops.ErrIsDirectory):
		return http.StatusBadRequest
	case errors.Is(err, fsops.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fsops.ErrExists):
		return http.StatusConflict
	case errors.Is(err, bulk.ErrVerifyFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody parses a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", fsops.ErrBadRequest, err)
	}

	return nil
}

// resolveQueryPath resolves the "path" query parameter through the
// confinement rules. An absent parameter resolves to the base directory.
func (s *Server) resolveQueryPath(r *http.Request) (string, error) {
	return s.resolver.Resolve(r.URL.Query().Get("path"))
}
