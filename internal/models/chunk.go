// Package models defines the core data structures shared by the ingestion
// and query pipelines and the HTTP API.
package models

// MetaChunkIndex is the metadata key carrying a chunk's ordinal within its
// source text. The splitter stamps it on every chunk it produces.
const MetaChunkIndex = "chunk"

// Chunk is one contiguous piece of a source text, produced by the splitter.
// Chunks are immutable once created; Metadata holds scalar values only.
type Chunk struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResult pairs a stored chunk with its cosine similarity score for one
// query. Results are created fresh per query and never alias index state.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
