// Package pipeline wires splitting, embedding, and the vector index into the
// ingest and query flows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/archive"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/splitter"
	"github.com/hyperjump/kioku/internal/vector"
	"github.com/hyperjump/kioku/pkg/utils"
)

// ErrEmptyInput indicates blank ingest or query text.
var ErrEmptyInput = errors.New("empty input")

// MetaSourceID is the chunk metadata key carrying the source id.
const MetaSourceID = "source_id"

type options struct {
	logger  *zap.Logger
	keyword *keyword.Index
	archive *archive.Store
}

// Option configures an Ingestor or Querier.
type Option func(*options)

// WithLogger sets a logger for debug and warning output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithKeywordIndex mirrors ingested chunks into a keyword index. Ignored by
// the Querier.
func WithKeywordIndex(k *keyword.Index) Option {
	return func(o *options) { o.keyword = k }
}

// WithArchive records completed ingestions in the source archive. Ignored by
// the Querier.
func WithArchive(a *archive.Store) Option {
	return func(o *options) { o.archive = a }
}

// Receipt summarizes a completed ingestion.
type Receipt struct {
	SourceID string
	Added    int
}

// Ingestor splits text, embeds the chunks, and adds them to the vector index.
type Ingestor struct {
	embedder embedding.Embedder
	index    *vector.Index
	splitter *splitter.Splitter
	keyword  *keyword.Index
	archive  *archive.Store
	logger   *zap.Logger
}

// NewIngestor creates an ingestor with the given dependencies. The splitter is
// built from cfg; invalid chunk settings surface splitter.ErrInvalidConfig.
func NewIngestor(embedder embedding.Embedder, index *vector.Index, cfg *config.IngestConfig, opts ...Option) (*Ingestor, error) {
	sp, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Ingestor{
		embedder: embedder,
		index:    index,
		splitter: sp,
		keyword:  o.keyword,
		archive:  o.archive,
		logger:   o.logger,
	}, nil
}

// Ingest splits text into chunks, embeds them, and adds them to the index.
// Returns the number of chunks added. Ingesting the same text twice stores
// everything twice; there is no deduplication.
func (ing *Ingestor) Ingest(ctx context.Context, text string, meta map[string]interface{}) (int, error) {
	src := &models.Source{Kind: models.SourceText, Name: sourceName(text)}
	receipt, err := ing.IngestSource(ctx, src, text, meta)
	if err != nil {
		return 0, err
	}
	return receipt.Added, nil
}

// IngestSource ingests text attributed to src. The source id is generated
// when empty; chars and chunk counters are filled in. Embedding happens
// before any index lock is taken, and a failed embedding leaves the index
// untouched.
func (ing *Ingestor) IngestSource(ctx context.Context, src *models.Source, text string, meta map[string]interface{}) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ingest: %w", ErrEmptyInput)
	}
	if src.ID == "" {
		src.ID = uuid.New().String()
	}

	base := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		base[k] = v
	}
	base[MetaSourceID] = src.ID

	chunks := ing.splitter.SplitDocument(text, base)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(texts), classify(err))
	}

	entries := make([]vector.Entry, len(chunks))
	for i := range chunks {
		entries[i] = vector.Entry{Vector: vectors[i], Chunk: chunks[i]}
	}
	if err := ing.index.AddBatch(entries); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	src.Chars = utf8.RuneCountInString(text)
	src.Chunks = len(chunks)

	// Keyword mirror and archive are best-effort: the chunks are already
	// searchable in the vector index.
	if ing.keyword != nil {
		ids := make([]string, len(chunks))
		for i := range chunks {
			ids[i] = fmt.Sprintf("%s_%d", src.ID, i)
		}
		if err := ing.keyword.IndexChunks(ctx, ids, chunks); err != nil && ing.logger != nil {
			ing.logger.Warn("keyword mirror failed", zap.String("source_id", src.ID), zap.Error(err))
		}
	}
	if ing.archive != nil {
		if err := ing.archive.RecordSource(ctx, src); err != nil && ing.logger != nil {
			ing.logger.Warn("archive record failed", zap.String("source_id", src.ID), zap.Error(err))
		}
	}

	if ing.logger != nil {
		ing.logger.Debug("source ingested",
			zap.String("source_id", src.ID),
			zap.String("kind", src.Kind),
			zap.Int("chunks", src.Chunks),
			zap.Int("chars", src.Chars))
	}
	return &Receipt{SourceID: src.ID, Added: len(chunks)}, nil
}

// classify maps foreign embedder errors onto the package error kinds. Errors
// already carrying a kind pass through unchanged.
func classify(err error) error {
	if errors.Is(err, embedding.ErrEmbeddingFailed) || errors.Is(err, embedding.ErrUpstreamTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", embedding.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", embedding.ErrEmbeddingFailed, err)
}

// sourceName derives a listing name from the first line of the text.
func sourceName(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return utils.Truncate(line, 64)
}
