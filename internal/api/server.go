package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/logger"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server and its lifecycle helpers.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// NewServer binds the listener immediately so address conflicts surface at
// startup rather than on the first request.
func NewServer(addr string, handler http.Handler) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrServerStart, err)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		listener: lis,
	}, nil
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	logger.Info().Msgf("HTTP API listening on %s", s.listener.Addr())
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(errors.ErrServerStart, err)
	}

	return nil
}

// Shutdown drains in-flight requests, closing outright when the context
// expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.httpServer.Close()
		return errors.Wrap(errors.ErrServerShutdown, err)
	}

	return nil
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}
