// Package server provides the HTTP API for doctopics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/indexer"
	"github.com/hyperjump/doctopics/internal/search"
	"github.com/hyperjump/doctopics/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the doctopics API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server listening on cfg.Server.Host:cfg.Server.Port.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		indexer: idx,
		storage: storage,
		config:  cfg,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/search", s.handleSearch)
		r.Post("/analyze", s.handleAnalyze)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRun)
				r.Delete("/", s.handleDeleteRun)
				r.Get("/documents", s.handleRunDocuments)
				r.Get("/topics", s.handleRunTopics)
				r.Get("/scatter", s.handleRunScatter)
			})
		})
	})
	return r
}

// Start serves until Stop is called; it then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server, waiting for in-flight analyses up to ctx.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request through the server's zap logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
