package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/vector"
)

// Querier embeds query text and searches the vector index.
type Querier struct {
	embedder embedding.Embedder
	index    *vector.Index
	defaultK int
	logger   *zap.Logger
}

// NewQuerier creates a querier. cfg supplies the default result count used
// when a caller passes k <= 0.
func NewQuerier(embedder embedding.Embedder, index *vector.Index, cfg *config.QueryConfig, opts ...Option) *Querier {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Querier{
		embedder: embedder,
		index:    index,
		defaultK: cfg.DefaultK,
		logger:   o.logger,
	}
}

// Query embeds text once and returns the top k chunks by cosine similarity.
// k <= 0 falls back to the configured default. An empty index yields an empty
// result, not an error.
func (q *Querier) Query(ctx context.Context, text string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("query: %w", ErrEmptyInput)
	}
	if k <= 0 {
		k = q.defaultK
	}

	vec, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", classify(err))
	}

	results, err := q.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if q.logger != nil {
		q.logger.Debug("query served", zap.Int("k", k), zap.Int("results", len(results)))
	}
	return results, nil
}
