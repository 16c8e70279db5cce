package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/pipeline"
	"github.com/hyperjump/kioku/internal/splitter"
)

// maxUploadSize bounds document uploads at 32 MiB.
const maxUploadSize = 32 << 20

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ingest request", zap.Int("chars", len(req.Text)))
	added, err := s.ingestor.Ingest(r.Context(), req.Text, req.Metadata)
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{Added: added})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("k", req.K))
	results, err := s.querier.Query(r.Context(), req.Query, req.K)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	out := models.QueryResponse{
		Results:   make([]models.QueryResult, len(results)),
		QueryTime: time.Since(start).Milliseconds(),
	}
	for i, res := range results {
		out.Results[i] = models.QueryResult{
			PageContent: res.Chunk.Content,
			Metadata:    res.Chunk.Metadata,
			Score:       res.Score,
		}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleKeyword(w http.ResponseWriter, r *http.Request) {
	if s.keyword == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword index not enabled")
		return
	}
	start := time.Now()
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	hits, err := s.keyword.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := models.KeywordResponse{
		Results:   make([]models.KeywordHit, len(hits)),
		QueryTime: time.Since(start).Milliseconds(),
	}
	for i, hit := range hits {
		out.Results[i] = models.KeywordHit{ID: hit.ID, Content: hit.Content, Score: hit.Score}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	s.logger.Debug("document upload", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))

	text, err := s.extractor.ExtractBytes(content, strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		s.logger.Error("extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	src := &models.Source{Kind: models.SourceFile, Name: header.Filename}
	meta := map[string]interface{}{"filename": header.Filename}
	receipt, err := s.ingestor.IngestSource(r.Context(), src, text, meta)
	if err != nil {
		s.logger.Error("document ingest failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{Added: receipt.Added, SourceID: receipt.SourceID})
}

func (s *Server) handleIngestTranscript(w http.ResponseWriter, r *http.Request) {
	if s.transcripts == nil {
		s.respondError(w, http.StatusNotImplemented, "transcript service not configured")
		return
	}
	var req models.TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("transcript ingest request", zap.String("id", req.ID))
	text, err := s.transcripts.Fetch(r.Context(), req.ID)
	if err != nil {
		s.logger.Error("transcript fetch failed", zap.String("id", req.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	meta := map[string]interface{}{"transcript_id": req.ID}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	src := &models.Source{Kind: models.SourceTranscript, Name: req.ID}
	receipt, err := s.ingestor.IngestSource(r.Context(), src, text, meta)
	if err != nil {
		s.logger.Error("transcript ingest failed", zap.String("id", req.ID), zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{Added: receipt.Added, SourceID: receipt.SourceID})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.respondError(w, http.StatusNotImplemented, "archive not enabled")
		return
	}
	ctx := r.Context()
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	sources, err := s.archive.ListSources(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.archive.CountSources(ctx)
	if err != nil {
		s.logger.Error("count sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []*models.Source{}
	}
	s.respondJSON(w, http.StatusOK, models.SourcesResponse{Sources: sources, Total: total})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		Status:     "ok",
		Chunks:     s.index.Size(),
		Dimensions: s.index.Dimensions(),
		Embedder:   s.embedder.Name(),
	}
	if s.archive != nil {
		count, err := s.archive.CountSources(r.Context())
		if err != nil {
			s.logger.Error("status: count sources failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Sources = count
	}
	if s.keyword != nil {
		docs, err := s.keyword.Count()
		if err != nil {
			s.logger.Error("status: keyword count failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.KeywordDocs = docs
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps error kinds onto HTTP status codes: validation problems
// are the caller's fault, everything else is a server-side failure.
func statusForError(err error) int {
	if errors.Is(err, pipeline.ErrEmptyInput) || errors.Is(err, splitter.ErrInvalidConfig) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
