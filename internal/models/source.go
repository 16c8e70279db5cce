package models

import "time"

// Source kinds recorded by the archive.
const (
	SourceText       = "text"
	SourceFile       = "file"
	SourceTranscript = "transcript"
	SourceWatch      = "watch"
)

// Source describes one completed ingestion: where the text came from and how
// much of it ended up in the index. The archive keeps sources for
// bookkeeping; the vector index is never rebuilt from them.
type Source struct {
	ID        string                 `json:"id" db:"id"`
	Kind      string                 `json:"kind" db:"kind"`
	Name      string                 `json:"name,omitempty" db:"name"`
	Chars     int                    `json:"chars" db:"chars"`
	Chunks    int                    `json:"chunks" db:"chunks"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
