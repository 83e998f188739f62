// Package server wires repositories, services, handlers and middleware into
// an HTTP server and runs it until SIGINT or SIGTERM.
//
// New is the composition root: it picks the source repository, builds the
// analytics service on top of it and registers every route.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/social-analytics/internal/auth"
	"github.com/sakif/social-analytics/internal/cache"
	"github.com/sakif/social-analytics/internal/handler"
	"github.com/sakif/social-analytics/internal/metrics"
	"github.com/sakif/social-analytics/internal/middleware"
	"github.com/sakif/social-analytics/internal/pipeline"
	"github.com/sakif/social-analytics/internal/repository"
	"github.com/sakif/social-analytics/internal/repository/csvdir"
	sqliteRepo "github.com/sakif/social-analytics/internal/repository/sqlite"
	"github.com/sakif/social-analytics/internal/service"
)

// Source kinds accepted in Config.Source.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config holds server configuration.
type Config struct {
	Port             int
	Source           string // SourceCSV or SourceSQLite
	DataDir          string // CSV directory
	DBPath           string // SQLite file
	RefreshSchedule  string // cron spec; empty disables scheduled refresh
	AdminTokenSecret string // empty disables POST /api/pipeline/reload
	CORSOrigins      []string
	CacheCapacity    int
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	metrics   *metrics.Registry
	analytics *service.AnalyticsService
	refresher *service.Refresher

	// closer releases the source repository; nil for CSV.
	closer io.Closer
}

// New creates a Server from cfg. It fails on an unknown source, an
// unreadable database, a bad refresh schedule or a too-short admin secret.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	source, closer, err := openSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := newWithSource(cfg, source, logger)
	if err != nil {
		closeSource(closer, logger)
		return nil, err
	}
	s.closer = closer
	return s, nil
}

func openSource(cfg Config, logger *slog.Logger) (repository.SourceRepository, io.Closer, error) {
	switch cfg.Source {
	case SourceCSV, "":
		return csvdir.New(cfg.DataDir, logger), nil, nil
	case SourceSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		return db, db, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q (want %q or %q)", cfg.Source, SourceCSV, SourceSQLite)
}

// newWithSource builds everything above the repository.
func newWithSource(cfg Config, source repository.SourceRepository, logger *slog.Logger) (*Server, error) {
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = cache.DefaultCapacity
	}

	m := metrics.NewRegistry()
	analytics := service.NewAnalyticsService(source, cache.New[*pipeline.Snapshot](capacity), m, logger)

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		metrics:   m,
		analytics: analytics,
	}

	if cfg.RefreshSchedule != "" {
		r, err := service.NewRefresher(analytics, cfg.RefreshSchedule, time.Minute, logger)
		if err != nil {
			return nil, err
		}
		s.refresher = r
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures middleware and routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/users
//	GET  /api/users/{id}
//	GET  /api/insights
//	GET  /api/insights/{name}
//	POST /api/pipeline/reload   (bearer token, only with an admin secret)
//
// Middleware runs in the order added: RequestID must precede Logger so the
// log line carries the id.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, s.metrics))
	s.router.Use(chimiddleware.Recoverer)

	h := handler.NewAnalyticsHandler(s.analytics, s.logger)

	s.router.Get("/healthz", h.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var requireToken func(http.Handler) http.Handler
	if s.config.AdminTokenSecret != "" {
		tokens, err := auth.NewTokenService(s.config.AdminTokenSecret)
		if err != nil {
			return fmt.Errorf("admin token secret: %w", err)
		}
		requireToken = auth.RequireToken(tokens)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/users", h.HandleListUsers)
		r.Get("/users/{id}", h.HandleGetUser)
		r.Get("/insights", h.HandleListInsights)
		r.Get("/insights/{name}", h.HandleInsight)

		if requireToken != nil {
			r.With(requireToken).Post("/pipeline/reload", h.HandleReload)
		} else {
			s.logger.Warn("ADMIN_TOKEN_SECRET not set, reload endpoint disabled")
		}
	})

	return nil
}

// Start serves HTTP and shuts down gracefully on SIGINT or SIGTERM: stop
// accepting connections, let in-flight requests finish, stop the refresher
// and close the source.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a cold pipeline build runs inside a request
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("source", s.config.Source),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	go s.warm()
	if s.refresher != nil {
		s.refresher.Start()
		s.logger.Info("scheduled refresh enabled", slog.String("schedule", s.config.RefreshSchedule))
	}

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		if s.refresher != nil {
			s.refresher.Stop(ctx)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// warm builds the first snapshot in the background. A failure is only
// logged; requests will report it.
func (s *Server) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.analytics.Snapshot(ctx); err != nil {
		s.logger.Warn("initial snapshot failed", slog.String("error", err.Error()))
	}
}

func (s *Server) close() {
	closeSource(s.closer, s.logger)
}

// closeSource releases the source repository, logging a failed close.
func closeSource(closer io.Closer, logger *slog.Logger) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Error("closing source", slog.String("error", err.Error()))
	}
}
