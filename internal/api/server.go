// File: internal/api/server.go
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/printer-snatcher/internal/config"
)

const defaultShutdownTimeout = 15 * time.Second

// Server is the HTTP front end.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	logger   *zap.Logger
}

// NewServer creates a Server. Nothing listens until Run or Serve.
func NewServer(cfg config.ServerConfig, handlers *Handlers, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		handlers: handlers,
		logger:   logger.Named("api_server"),
	}
}

// Router builds the handler chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(corsMiddleware)

	if s.cfg.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)
		r.Use(rateLimiter(limiter, func(w http.ResponseWriter, r *http.Request) {
			s.handlers.respond(w, http.StatusTooManyRequests, errorEnvelope(s.handlers.info, MsgTooManyRequests))
		}))
	}

	s.handlers.RegisterRoutes(r)
	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully,
// giving in-flight scrapes the configured grace period to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	httpServer := &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     zap.NewStdLog(s.logger),
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Printer info API listening", zap.String("address", ln.Addr().String()))
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server gracefully...")
	grace := s.cfg.ShutdownTimeout
	if grace <= 0 {
		grace = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	<-serveErr
	s.logger.Info("HTTP server stopped.")
	return nil
}
