// Package server serves the catalog over HTTP: a JSON API, the date index
// page and the per-date chart dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/jwulff/lotscope-go/internal/config"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/metrics"
	"github.com/jwulff/lotscope-go/internal/sensordata"
	"golang.org/x/sync/errgroup"
)

// Catalog is the read side of the loaded data.
type Catalog interface {
	ListAvailableDates() []domain.Date
	ErrorProcesses(date domain.Date) domain.ProcessSet
	SensorTable(date domain.Date) (*domain.Table, bool)
	Tagged(date domain.Date) (*domain.TaggedTable, bool, error)
	Discards() []sensordata.Discard
}

// Options configures a Server.
type Options struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	AssetsHost string
}

// Server routes HTTP requests to the catalog.
type Server struct {
	catalog    Catalog
	logger     *slog.Logger
	metrics    *metrics.Metrics
	assetsHost string
	validate   *validator.Validate
	router     chi.Router
}

// New creates a server for cat.
func New(cat Catalog, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		catalog:    cat,
		logger:     logger.With(slog.String("component", "server")),
		metrics:    m,
		assetsHost: opts.AssetsHost,
		validate:   newValidator(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(s.metrics.Middleware)
		r.Use(requestLogger(s.logger))
		r.Use(middleware.Recoverer)

		r.Get("/healthz", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/dates", s.handleListDates)
			r.Get("/dates/{date}/errors", s.handleErrors)
			r.Get("/dates/{date}/readings", s.handleReadings)
			r.Get("/dates/{date}/summary", s.handleSummary)
			r.Get("/discards", s.handleDiscards)
		})

		r.Get("/", s.handleIndex)
		r.Get("/dates/{date}", s.handleDashboard)
		r.Get("/dates/{date}/export.xlsx", s.handleWorkbook)
	})

	r.Handle("/metrics", s.metrics.Handler())
	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
