package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/vector"
)

func newTestPair(t *testing.T) (*Ingestor, *Querier) {
	t.Helper()
	index := vector.NewIndex()
	emb := embedding.NewMockEmbedder(64)
	ing, err := NewIngestor(emb, index, &config.IngestConfig{ChunkSize: 1000, ChunkOverlap: 200})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}
	return ing, NewQuerier(emb, index, &config.QueryConfig{DefaultK: 4})
}

func TestQuery_EmptyInput(t *testing.T) {
	_, querier := newTestPair(t)

	for _, text := range []string{"", "  \n "} {
		_, err := querier.Query(context.Background(), text, 4)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Query(%q) error = %v, want ErrEmptyInput", text, err)
		}
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	_, querier := newTestPair(t)

	results, err := querier.Query(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Query on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index, want 0", len(results))
	}
}

func TestQuery_DefaultK(t *testing.T) {
	ing, querier := newTestPair(t)
	ctx := context.Background()

	texts := []string{
		"alpha particle detection",
		"beta decay measurement",
		"gamma ray burst catalog",
		"delta wing aerodynamics",
		"epsilon greedy exploration",
		"zeta function zeros",
	}
	for _, text := range texts {
		if _, err := ing.Ingest(ctx, text, nil); err != nil {
			t.Fatalf("Ingest(%q): %v", text, err)
		}
	}

	results, err := querier.Query(ctx, "particle physics", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("k=0 returned %d results, want default 4", len(results))
	}

	results, err = querier.Query(ctx, "particle physics", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("k=2 returned %d results, want 2", len(results))
	}
}

func TestQuery_FewerChunksThanK(t *testing.T) {
	ing, querier := newTestPair(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two"} {
		if _, err := ing.Ingest(ctx, text, nil); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	results, err := querier.Query(ctx, "one", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want all 2", len(results))
	}
	if results[0].Chunk.Content != "one" {
		t.Errorf("top result = %q, want exact match first", results[0].Chunk.Content)
	}
}

func TestQuery_EmbedFailure(t *testing.T) {
	emb := &failingEmbedder{failOn: "query", err: errors.New("boom")}
	querier := NewQuerier(emb, vector.NewIndex(), &config.QueryConfig{DefaultK: 4})

	_, err := querier.Query(context.Background(), "failing query", 4)
	if !errors.Is(err, embedding.ErrEmbeddingFailed) {
		t.Errorf("error = %v, want ErrEmbeddingFailed", err)
	}
}
