package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewMemOnly()
	if err != nil {
		t.Fatalf("NewMemOnly: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndex_IndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	ids := []string{"c0", "c1", "c2"}
	chunks := []models.Chunk{
		{Content: "the quick brown fox"},
		{Content: "a lazy sleeping dog"},
		{Content: "quick silver linings"},
	}
	if err := idx.IndexChunks(ctx, ids, chunks); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}
	if n, err := idx.Count(); err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}
	hits, err := idx.Search(ctx, "quick", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits for %q, got %d", "quick", len(hits))
	}
	for _, h := range hits {
		if h.ID != "c0" && h.ID != "c2" {
			t.Errorf("unexpected hit id %q", h.ID)
		}
		if h.Content == "" {
			t.Errorf("hit %q has no stored content", h.ID)
		}
		if h.Score <= 0 {
			t.Errorf("hit %q has non-positive score %f", h.ID, h.Score)
		}
	}
}

func TestIndex_SearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	ids := []string{"a", "b", "c"}
	chunks := []models.Chunk{
		{Content: "shared term alpha"},
		{Content: "shared term beta"},
		{Content: "shared term gamma"},
	}
	if err := idx.IndexChunks(ctx, ids, chunks); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "shared", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("limit 2: got %d hits", len(hits))
	}
}

func TestIndex_MismatchedBatch(t *testing.T) {
	idx := newTestIndex(t)
	err := idx.IndexChunks(context.Background(), []string{"only-one"}, []models.Chunk{{Content: "a"}, {Content: "b"}})
	if err == nil {
		t.Error("expected error for mismatched ids and chunks")
	}
}

func TestIndex_EmptySearch(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search on empty index: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}
