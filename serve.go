package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/filecrane/filecrane/internal/bulk"
	"github.com/filecrane/filecrane/internal/config"
	"github.com/filecrane/filecrane/internal/history"
	"github.com/filecrane/filecrane/internal/pathsafe"
	"github.com/filecrane/filecrane/internal/server"
	"github.com/filecrane/filecrane/internal/task"
	"github.com/filecrane/filecrane/internal/trash"
)

const (
	// readHeaderTimeout protects against slowloris-style stalls.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds the drain of in-flight requests on SIGTERM.
	shutdownTimeout = 15 * time.Second
	// janitorInterval is how often finished tasks are swept.
	janitorInterval = time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the file management HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)

	resolver, err := pathsafe.NewResolver(cfg.BaseDir, cfg.AllowOutsideRoot)
	if err != nil {
		return fmt.Errorf("base directory: %w", err)
	}

	manager := task.NewManager(logger)

	engine, err := bulk.NewEngine(resolver, manager, trash.New(), bulk.Options{
		Workers:        cfg.Engine.Workers,
		QueueCapacity:  cfg.Engine.QueueCapacity,
		BandwidthLimit: cfg.Engine.BandwidthLimit,
	}, logger)
	if err != nil {
		return err
	}

	hist := history.NewStore(config.DefaultHistoryPath(), logger)
	srv := server.New(cfg, resolver, manager, engine, hist, logger)

	ctx := shutdownContext(cmd.Context(), logger)
	go manager.Janitor(ctx, janitorInterval, cfg.TaskTTLDuration())

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Info("server listening",
		"addr", httpServer.Addr,
		"base_dir", cfg.BaseDir,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")

	return nil
}
