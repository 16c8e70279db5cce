// Package embedding defines the embedder interface and its OpenAI and mock
// implementations. Embeddings are a consumed capability: nothing here
// computes them numerically in-process.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed is returned when the embedding provider rejects or
// fails a call.
var ErrEmbeddingFailed = errors.New("embedding failed")

// ErrUpstreamTimeout is returned when an embedding call exceeds its
// deadline. Callers can rely on no index state having changed.
var ErrUpstreamTimeout = errors.New("embedding timed out")

// Embedder produces vector embeddings for text. Implementations must be safe
// for concurrent use and must return one vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}
