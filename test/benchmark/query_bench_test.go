package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/splitter"
	"github.com/hyperjump/kioku/internal/vector"
)

const benchDimensions = 384

func seededIndex(b *testing.B, n int) (*vector.Index, []float32) {
	b.Helper()
	embedder := embedding.NewMockEmbedder(benchDimensions)
	ctx := context.Background()
	idx := vector.NewIndex()
	entries := make([]vector.Entry, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("benchmark chunk %d with some filler words", i)
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			b.Fatal(err)
		}
		entries[i] = vector.Entry{Vector: vec, Chunk: models.Chunk{Content: text}}
	}
	if err := idx.AddBatch(entries); err != nil {
		b.Fatal(err)
	}
	query, err := embedder.Embed(ctx, "benchmark query text")
	if err != nil {
		b.Fatal(err)
	}
	return idx, query
}

func BenchmarkVectorIndexSearch_1k(b *testing.B) {
	idx, query := seededIndex(b, 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func BenchmarkVectorIndexSearch_10k(b *testing.B) {
	idx, query := seededIndex(b, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func BenchmarkVectorIndexAddBatch(b *testing.B) {
	entries := make([]vector.Entry, 100)
	for i := range entries {
		vec := make([]float32, benchDimensions)
		vec[i%benchDimensions] = 1
		entries[i] = vector.Entry{Vector: vec, Chunk: models.Chunk{Content: "chunk"}}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx := vector.NewIndex()
		_ = idx.AddBatch(entries)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(benchDimensions)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkSplitDocument(b *testing.B) {
	s, err := splitter.New(1000, 200)
	if err != nil {
		b.Fatal(err)
	}
	paragraph := strings.Repeat("The archive keeps every note reachable. ", 20)
	text := strings.Repeat(paragraph+"\n\n", 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Split(text)
	}
}
