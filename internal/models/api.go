package models

import (
	"fmt"
	"strings"
)

// MaxResults caps how many hits a single query may request.
const MaxResults = 100

// IngestRequest is the body of POST /api/v1/ingest.
type IngestRequest struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate rejects requests whose text is empty or whitespace-only.
func (r *IngestRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}
	return nil
}

// IngestResponse reports how many chunks one ingestion added to the index.
type IngestResponse struct {
	Added    int    `json:"added"`
	SourceID string `json:"source,omitempty"`
}

// QueryRequest is the body of POST /api/v1/query and POST /api/v1/keyword.
// K <= 0 means "use the server default".
type QueryRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate rejects blank queries and caps K at MaxResults.
func (r *QueryRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.K > MaxResults {
		r.K = MaxResults
	}
	return nil
}

// QueryResult is one ranked hit as served over HTTP. PageContent carries the
// chunk text; the field name is part of the wire contract.
type QueryResult struct {
	PageContent string                 `json:"pageContent"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Score       float64                `json:"score"`
}

// QueryResponse is the body returned by POST /api/v1/query.
type QueryResponse struct {
	Results   []QueryResult `json:"results"`
	QueryTime int64         `json:"query_time_ms"`
}

// KeywordHit is one exact-term hit from the keyword index.
type KeywordHit struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// KeywordResponse is the body returned by POST /api/v1/keyword.
type KeywordResponse struct {
	Results   []KeywordHit `json:"results"`
	QueryTime int64        `json:"query_time_ms"`
}

// TranscriptRequest is the body of POST /api/v1/transcripts.
type TranscriptRequest struct {
	ID       string                 `json:"id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate rejects blank transcript ids.
func (r *TranscriptRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("transcript id cannot be empty")
	}
	return nil
}

// SourcesResponse is the body returned by GET /api/v1/sources.
type SourcesResponse struct {
	Sources []*Source `json:"sources"`
	Total   int64     `json:"total"`
}

// StatusResponse is the body returned by GET /api/v1/status.
type StatusResponse struct {
	Status      string `json:"status"`
	Sources     int64  `json:"sources"`
	Chunks      int    `json:"chunks"`
	Dimensions  int    `json:"dimensions"`
	KeywordDocs uint64 `json:"keyword_docs"`
	Embedder    string `json:"embedder"`
}
