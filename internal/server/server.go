// Package server provides the HTTP API for solrdex.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/catalog"
	"github.com/hyperjump/solrdex/internal/config"
	"github.com/hyperjump/solrdex/internal/session"
)

// WatchService is the spool watcher as seen by the API.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the indexing API.
type Server struct {
	session *session.Session
	catalog *catalog.Catalog
	config  *config.Config
	watch   WatchService
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil when no
// spool directories are configured.
func NewServer(
	sess *session.Session,
	cat *catalog.Catalog,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session: sess,
		catalog: cat,
		config:  cfg,
		watch:   watch,
		logger:  logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIndexDocuments)
		r.Delete("/documents", s.handleDeleteAll)
		r.Delete("/documents/{type}/{id}", s.handleDeleteDocument)
		r.Delete("/types/{type}", s.handleDeleteType)
		r.Get("/types", s.handleTypes)
		r.Post("/commit", s.handleCommit)
		r.Post("/preview", s.handlePreview)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           middleware.Logger(s.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("backend", s.config.Backend))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
