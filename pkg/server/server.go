// Package server exposes snapshots, diffs, charts and notes over HTTP.
//
// # Routes
//
//	GET    /healthz
//	GET    /metrics                      (when a metrics handler is set)
//	GET    /api/companies/{year}
//	GET    /api/diff/{year}
//	GET    /chart/{year}.svg?width=&from=&static=
//	GET    /flow/{year}.svg
//	GET    /api/notes/{company}
//	POST   /api/notes/{company}          {"field": "...", "content": "..."}
//	DELETE /api/notes/{company}          {"field": "..."}
//	GET    /api/annual-notes/{year}
//	POST   /api/annual-notes/{year}      {"theme": "...", "trend": "..."}
//	GET    /api/company/{company}
//	POST   /api/company/{company}        {"field": "...", "text": ...}
//	DELETE /api/company/{company}        {"field": "..."}
//	POST   /api/auth/verify-password     {"password": "..."}
//
// Mutating note and company routes require the X-Edit-Password header when
// an edit password is configured. JSON responses carry Cache-Control:
// no-store.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/store"
)

// PasswordHeader carries the edit password on mutating requests.
const PasswordHeader = "X-Edit-Password"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

// Server wires HTTP routes to the pipeline runner and the document store.
type Server struct {
	runner   *pipeline.Runner
	store    store.Store
	logger   *log.Logger
	password string
	metrics  http.Handler
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables note, annual note and company routes. Without a store
// they answer 503.
func WithStore(s store.Store) Option { return func(srv *Server) { srv.store = s } }

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(srv *Server) { srv.logger = l } }

// WithEditPassword sets the password guarding mutations.
func WithEditPassword(p string) Option { return func(srv *Server) { srv.password = p } }

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option { return func(srv *Server) { srv.metrics = h } }

// New creates a Server rendering through runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/chart/{year}.svg", s.handleChart)
	r.Get("/flow/{year}.svg", s.handleFlow)

	r.Route("/api", func(r chi.Router) {
		r.Use(noStore)
		r.Get("/companies/{year}", s.handleCompanies)
		r.Get("/diff/{year}", s.handleDiff)
		r.Post("/auth/verify-password", s.handleVerifyPassword)

		r.Route("/notes/{company}", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleGetNote)
			r.With(s.requirePassword).Post("/", s.handleSetNote)
			r.With(s.requirePassword).Delete("/", s.handleClearNote)
		})
		r.Route("/annual-notes/{year}", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleGetAnnualNote)
			r.With(s.requirePassword).Post("/", s.handleSetAnnualNote)
		})
		r.Route("/company/{company}", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleGetCompany)
			r.With(s.requirePassword).Post("/", s.handleSetCompanyField)
			r.With(s.requirePassword).Delete("/", s.handleUnsetCompanyField)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
