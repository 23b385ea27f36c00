package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ignite/pixel-tracker/internal/pkg/logger"
)

// ServerOptions holds the listen address and timeouts.
type ServerOptions struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server represents the HTTP server
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server for the pixel route and the reporting API.
func NewServer(h *Handlers, pixels PixelMounter, routes RouteOptions, opts ServerOptions) *Server {
	if routes.APIKey == "" {
		logger.Warn("no API key configured, reporting endpoints are unrestricted")
	}
	handler := SetupRoutes(h, pixels, routes)
	return &Server{
		handler: handler,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
	}
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
