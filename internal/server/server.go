// Package server is the HTTP adapter: it parses requests, resolves paths,
// calls into the engine and the single-file operations, and renders JSON.
// All domain decisions live below it.
package server

import (
	"log/slog"
	"net/http"

	"github.com/filecrane/filecrane/internal/bulk"
	"github.com/filecrane/filecrane/internal/config"
	"github.com/filecrane/filecrane/internal/history"
	"github.com/filecrane/filecrane/internal/pathsafe"
	"github.com/filecrane/filecrane/internal/task"
)

// Server bundles the request handlers and their dependencies.
type Server struct {
	cfg      *config.Config
	resolver *pathsafe.Resolver
	tasks    *task.Manager
	engine   *bulk.Engine
	history  *history.Store
	logger   *slog.Logger
}

// New wires a server. All dependencies are required except logger.
func New(
	cfg *config.Config,
	resolver *pathsafe.Resolver,
	tasks *task.Manager,
	engine *bulk.Engine,
	hist *history.Store,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:      cfg,
		resolver: resolver,
		tasks:    tasks,
		engine:   engine,
		history:  hist,
		logger:   logger,
	}
}

// Handler returns the full route table wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)

	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("GET /api/path-info", s.handlePathInfo)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/file-content", s.handleFileContent)
	mux.HandleFunc("GET /api/download", s.handleDownload)

	mux.HandleFunc("POST /api/create-folder", s.handleCreateFolder)
	mux.HandleFunc("POST /api/create-file", s.handleCreateFile)
	mux.HandleFunc("POST /api/update-file", s.handleUpdateFile)
	mux.HandleFunc("POST /api/rename", s.handleRename)
	mux.HandleFunc("POST /api/move", s.handleMoveSingle)
	mux.HandleFunc("POST /api/count-files", s.handleCountFiles)
	mux.HandleFunc("DELETE /api/delete", s.handleDeleteSingle)

	mux.HandleFunc("POST /api/copy/batch", s.handleCopyBatch)
	mux.HandleFunc("POST /api/move/batch", s.handleMoveBatch)
	mux.HandleFunc("POST /api/delete/batch", s.handleDeleteBatch)

	mux.HandleFunc("GET /api/tasks/{id}/progress", s.handleTaskProgress)
	mux.HandleFunc("POST /api/tasks/{id}/cancel", s.handleTaskCancel)
	mux.HandleFunc("GET /api/tasks/{id}/ws", s.handleTaskWebsocket)

	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("POST /api/history", s.handleHistoryRecord)

	mux.HandleFunc("POST /api/open/explorer", s.handleOpenExplorer)
	mux.HandleFunc("POST /api/open/default", s.handleOpenDefault)

	return s.withCORS(s.withLogging(mux))
}

// withLogging logs one line per request at debug level.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

// withCORS allows any origin. The server fronts a single trusted local
// user; the frontend may be served from a file:// or dev-server origin.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "filecrane",
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"base_dir":           s.cfg.BaseDir,
		"start_dir":          s.cfg.StartDir,
		"allow_outside_root": s.cfg.AllowOutsideRoot,
		"host":               s.cfg.Host,
		"port":               s.cfg.Port,
	})
}
