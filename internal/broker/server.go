// Package broker implements the Sample Broker of spec.md §4.7: an HTTP
// service fronting a Redis-style ordered-list store with uniform and
// weighted batch sampling.
package broker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
	"github.com/alea-labs/kl3mpipe/internal/config"
)

// HTTPServer wraps a broker Server in an http.Server, the broker analog of
// internal/server.Server's listen/shutdown lifecycle.
type HTTPServer struct {
	handler *Server
	server  *http.Server
	logger  arbor.ILogger
}

// NewHTTPServer builds an HTTPServer listening on cfg.ListenAddr.
func NewHTTPServer(s store.ListStore, cfg config.BrokerConfig, logger arbor.ILogger) *HTTPServer {
	handler := NewServer(s, logger)
	mux := http.NewServeMux()
	handler.Routes(mux)

	return &HTTPServer{
		handler: handler,
		logger:  logger,
		server: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start runs the broker's HTTP server until it is shut down.
func (h *HTTPServer) Start() error {
	h.logger.Info().Str("address", h.server.Addr).Msg("sample broker starting")
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("broker server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the broker's HTTP server.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("shutting down sample broker")
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("broker server shutdown failed: %w", err)
	}
	return nil
}
