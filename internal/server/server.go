// Package server provides the HTTP API for kioku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/archive"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/pipeline"
	"github.com/hyperjump/kioku/internal/transcript"
	"github.com/hyperjump/kioku/internal/vector"
)

// Deps bundles the components the API serves. Keyword, Archive, and
// Transcripts are optional; their routes answer 501 when unset.
type Deps struct {
	Ingestor    *pipeline.Ingestor
	Querier     *pipeline.Querier
	Index       *vector.Index
	Embedder    embedding.Embedder
	Extractor   *extract.Extractor
	Keyword     *keyword.Index
	Archive     *archive.Store
	Transcripts *transcript.Client
}

// Server is the HTTP server for the kioku API.
type Server struct {
	ingestor    *pipeline.Ingestor
	querier     *pipeline.Querier
	index       *vector.Index
	embedder    embedding.Embedder
	extractor   *extract.Extractor
	keyword     *keyword.Index
	archive     *archive.Store
	transcripts *transcript.Client
	config      *config.ServerConfig
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		ingestor:    deps.Ingestor,
		querier:     deps.Querier,
		index:       deps.Index,
		embedder:    deps.Embedder,
		extractor:   deps.Extractor,
		keyword:     deps.Keyword,
		archive:     deps.Archive,
		transcripts: deps.Transcripts,
		config:      cfg,
		logger:      logger,
	}
}

// Handler assembles the router with all API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/keyword", s.handleKeyword)
	r.Post("/api/v1/documents", s.handleUploadDocument)
	r.Post("/api/v1/transcripts", s.handleIngestTranscript)
	r.Get("/api/v1/sources", s.handleSources)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
