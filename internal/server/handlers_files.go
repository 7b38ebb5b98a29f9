package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/filecrane/filecrane/internal/fsops"
	"github.com/filecrane/filecrane/internal/search"
)

// countFilesConcurrency bounds the parallel walks of one count request.
const countFilesConcurrency = 8

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	dir, err := s.resolveQueryPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	entries, err := fsops.List(dir)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":  fsops.TypeDirectory,
		"path":  dir,
		"items": entries,
	})
}

func (s *Server) handlePathInfo(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveQueryPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fsops.PathInfo(path))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start, err := s.resolveQueryPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := r.URL.Query()

	opts := search.Options{
		Query:          q.Get("query"),
		IgnorePatterns: search.ParseIgnoreList(q.Get("ignore")),
		TypeFilter:     q.Get("file_type"),
	}

	if raw := q.Get("depth"); raw != "" {
		if opts.MaxDepth, err = strconv.Atoi(raw); err != nil {
			s.writeError(w, fmt.Errorf("%w: depth must be an integer", fsops.ErrBadRequest))
			return
		}
	}

	if raw := q.Get("max_results"); raw != "" {
		if opts.MaxResults, err = strconv.Atoi(raw); err != nil {
			s.writeError(w, fmt.Errorf("%w: max_results must be an integer", fsops.ErrBadRequest))
			return
		}
	}

	results, err := search.Run(start, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": results,
		"count": len(results),
	})
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveQueryPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	content, err := fsops.ReadText(path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"path":    path,
		"content": content,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveQueryPath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		s.writeError(w, fmt.Errorf("%w: %s", fsops.ErrNotFound, path))
		return
	}

	if err != nil {
		s.writeError(w, err)
		return
	}

	if info.IsDir() {
		s.writeError(w, fmt.Errorf("%w: cannot download a directory", fsops.ErrIsDirectory))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

type createRequest struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	parent, err := s.resolver.Resolve(req.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	created, err := fsops.CreateFolder(parent, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   created,
	})
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	parent, err := s.resolver.Resolve(req.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	created, err := fsops.CreateFile(parent, req.Name, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   created,
	})
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
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

	if err := fsops.WriteFile(path, req.Content); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPath string `json:"old_path"`
		NewName string `json:"new_name"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	oldPath, err := s.resolver.Resolve(req.OldPath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	renamed, err := fsops.Rename(oldPath, req.NewName)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   renamed,
	})
}

func (s *Server) handleCountFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths    []string `json:"paths"`
		MaxDepth int      `json:"max_depth"`
	}

	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if len(req.Paths) == 0 {
		s.writeError(w, fmt.Errorf("%w: paths must not be empty", fsops.ErrBadRequest))
		return
	}

	type countDetail struct {
		Path  string `json:"path"`
		Files int    `json:"files"`
		Error string `json:"error,omitempty"`
	}

	// Paths are counted in parallel; each walk is independent and I/O-bound.
	details := make([]countDetail, len(req.Paths))
	g, _ := errgroup.WithContext(r.Context())
	g.SetLimit(countFilesConcurrency)

	for i, raw := range req.Paths {
		g.Go(func() error {
			detail := countDetail{Path: raw}

			abs, err := s.resolver.Resolve(raw)
			if err == nil {
				detail.Files, err = fsops.CountFiles(abs, req.MaxDepth)
			}

			if err != nil {
				detail.Error = err.Error()
			}

			details[i] = detail

			return nil
		})
	}

	_ = g.Wait()

	total := 0
	for _, d := range details {
		total += d.Files
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_files": total,
		"details":     details,
	})
}
