// Package http serves the monitor's status API: the latest reservation
// snapshot, reservation changes and the Prometheus metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Server represents the HTTP server
type Server struct {
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a new HTTP server listening on addr
func NewServer(addr string, logger *slog.Logger, handler http.Handler) *Server {
	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
	}
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", slog.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// SetupRoutes configures all HTTP routes using Go 1.22+ routing
func SetupRoutes(handler *Handler, metrics http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.Health)
	mux.HandleFunc("GET /api/reservations", handler.Reservations)
	mux.HandleFunc("GET /api/recording", handler.Recording)
	mux.HandleFunc("POST /api/reservations/{id}/toggle", handler.Toggle)
	mux.HandleFunc("DELETE /api/reservations/{id}", handler.Delete)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return chain(mux,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		SecurityHeadersMiddleware(),
	)
}
