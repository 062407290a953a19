// Package server exposes a store over HTTP: filters arrive as query
// parameters and matching statements are returned as JSON, CSV, TSV or
// plain text.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/store"
)

// Server represents the HTTP filter server
type Server struct {
	store  *store.Store
	logger *zap.Logger
	addr   string
}

// NewServer creates a new HTTP server over s
func NewServer(s *store.Store, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: s, logger: logger, addr: addr}
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/filter", s.handleFilter)
	mux.HandleFunc("/count", s.handleCount)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/compile", s.handleCompile)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving filters", zap.String("addr", "http://"+s.addr+"/filter"))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
