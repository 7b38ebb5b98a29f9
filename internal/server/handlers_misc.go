package server

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/filecrane/filecrane/internal/fsops"
	"github.com/filecrane/filecrane/internal/history"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	entries := s.history.Entries()
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	path, err := s.resolver.Resolve(req.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.history.Record(path); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleOpenExplorer reveals the path in the platform file manager.
func (s *Server) handleOpenExplorer(w http.ResponseWriter, r *http.Request) {
	s.handleOpen(w, r, true)
}

// handleOpenDefault opens the path with its default application.
func (s *Server) handleOpenDefault(w http.ResponseWriter, r *http.Request) {
	s.handleOpen(w, r, false)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request, reveal bool) {
	var req struct {
		Path string `json:"path"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	path, err := s.resolver.Resolve(req.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.writeError(w, fmt.Errorf("%w: %s", fsops.ErrNotFound, path))
		return
	}

	name, args := launcherCommand(runtime.GOOS, path, reveal)
	if name == "" {
		s.writeError(w, fmt.Errorf("open is not supported on %s", runtime.GOOS))
		return
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		s.writeError(w, fmt.Errorf("launch %s: %w", name, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// launcherCommand picks the platform opener. Revealing means showing the
// containing folder (or selecting the file) instead of launching the
// default application.
func launcherCommand(goos, path string, reveal bool) (string, []string) {
	switch goos {
	case "darwin":
		if reveal {
			return "open", []string{"-R", path}
		}

		return "open", []string{path}
	case "windows":
		if reveal {
			return "explorer", []string{"/select,", path}
		}

		return "explorer", []string{path}
	case "linux":
		if reveal {
			// xdg-open has no select mode; open the containing directory.
			return "xdg-open", []string{filepath.Dir(path)}
		}

		return "xdg-open", []string{path}
	default:
		return "", nil
	}
}
