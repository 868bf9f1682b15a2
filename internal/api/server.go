// Package api exposes the task submission and status HTTP surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"kandarr/internal/api/handlers"
	"kandarr/internal/api/middleware"
	"kandarr/internal/config"
	"kandarr/internal/coordinator"
	"kandarr/internal/scheduler"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	coord  *coordinator.Coordinator
	sched  *scheduler.Scheduler
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, coord *coordinator.Coordinator, sched *scheduler.Scheduler, logger *logrus.Logger) *Server {
	s := &Server{
		coord:  coord,
		sched:  sched,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	// Queue, pool and scan status
	statusHandler := handlers.NewStatusHandler(s.coord, s.sched, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	// Task submission and per-card operations
	tasksHandler := handlers.NewTasksHandler(s.coord, s.logger)
	mux.HandleFunc("/api/tasks", tasksHandler.Submit)
	mux.HandleFunc("/api/tasks/", tasksHandler.ByCard)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
