// Package keyword provides an in-memory Bleve index over ingested chunks,
// serving exact-term lookups alongside the semantic index.
package keyword

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kioku/internal/models"
)

// chunkDoc is the shape Bleve indexes per chunk.
type chunkDoc struct {
	Content string `json:"content"`
}

// Hit is one keyword search result.
type Hit struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Index is a memory-only Bleve index over chunk content. Like the vector
// index, its contents live for the process lifetime only.
type Index struct {
	idx bleve.Index
}

// NewMemOnly creates the in-memory keyword index.
func NewMemOnly() (*Index, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	contentField := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries match
	// the exact words that appear in chunks.
	contentField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", contentField)
	im.DefaultMapping = docMapping
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// IndexChunks adds chunks under their ids in one batch.
func (x *Index) IndexChunks(_ context.Context, ids []string, chunks []models.Chunk) error {
	if len(ids) != len(chunks) {
		return fmt.Errorf("keyword index: %d ids for %d chunks", len(ids), len(chunks))
	}
	batch := x.idx.NewBatch()
	for i, ch := range chunks {
		if err := batch.Index(ids[i], chunkDoc{Content: ch.Content}); err != nil {
			return fmt.Errorf("keyword batch: %w", err)
		}
	}
	return x.idx.Batch(batch)
}

// Search runs a match query over chunk content and returns up to limit hits
// with their stored content.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{"content"}
	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		h := Hit{ID: hit.ID, Score: hit.Score}
		if content, ok := hit.Fields["content"].(string); ok {
			h.Content = content
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (x *Index) Count() (uint64, error) {
	return x.idx.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}
