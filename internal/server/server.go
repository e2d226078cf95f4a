// Package server exposes the audit pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures the server.
type Options struct {
	Port           int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Recorder receives per-request observations.
	Recorder HTTPRecorder

	// Providers and Renderer are reported by GET /healthz.
	Providers []string
	Renderer  string
}

type Server struct {
	Router *chi.Mux
	Port   int

	analyzer  Analyzer
	providers []string
	renderer  string
	logger    *slog.Logger
	handler   http.Handler
}

func New(analyzer Analyzer, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Router:    chi.NewRouter(),
		Port:      opts.Port,
		analyzer:  analyzer,
		providers: opts.Providers,
		renderer:  opts.Renderer,
		logger:    logger,
	}

	r := s.Router
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger, opts.Recorder))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
		r.Use(TimeoutMiddleware(opts.RequestTimeout))
		r.Post("/analyze", s.handleAnalyze)
	})

	s.handler = otelhttp.NewHandler(r, "ux-auditor",
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/healthz" && req.URL.Path != "/metrics"
		}))
	return s
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then drains in-flight audits for up to
// shutdownTimeout.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.Int("port", s.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
