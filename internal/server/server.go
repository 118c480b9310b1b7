// Package server provides the HTTP API for Kensaku.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/kensaku/internal/collection"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/search"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Kensaku API.
type Server struct {
	collections *collection.Manager
	indexer     *indexer.Indexer
	engine      *search.Engine
	config      *config.Config
	logger      *zap.Logger
	started     time.Time
	server      *http.Server
}

// corsOptions allows every listed origin ("*" for any) with credentials, any request header,
// and the methods the API routes use.
func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	collections *collection.Manager,
	idx *indexer.Indexer,
	engine *search.Engine,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		collections: collections,
		indexer:     idx,
		engine:      engine,
		config:      cfg,
		logger:      logger,
		started:     time.Now(),
	}
	s.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(corsOptions(s.config.Server.CORSOrigins)))

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", s.handleListCollections)
		r.Get("/{name}", s.handleDescribeCollection)
		r.Post("/{name}", s.handleCreateCollection)
		r.Delete("/{name}", s.handleDeleteCollection)
	})
	r.Post("/index/{collection}", s.handleIndex)
	r.Get("/search/{collection}", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
// It returns http.ErrServerClosed immediately if Stop already ran.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. It is safe to call before or during Start.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
