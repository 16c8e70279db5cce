// Package cli renders API responses for the kioku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/pipeline"
	"github.com/hyperjump/kioku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteQueryResults writes a query response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteQueryResults(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeQueryResultsText(w, response)
		return nil
	}
}

func writeQueryResultsText(w io.Writer, response *models.QueryResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Results), response.QueryTime)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, result.Score)
		if id, ok := result.Metadata[pipeline.MetaSourceID].(string); ok && id != "" {
			fmt.Fprintf(w, "Source: %s\n", id)
		}
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.PageContent, 200))
		fmt.Fprintln(w)
	}
}

// WriteSources writes an archive listing to w in the given format.
func WriteSources(w io.Writer, response *models.SourcesResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSourcesText(w, response)
		return nil
	}
}

func writeSourcesText(w io.Writer, response *models.SourcesResponse) {
	fmt.Fprintf(w, "\n%d sources (%d shown)\n\n", response.Total, len(response.Sources))
	for _, src := range response.Sources {
		fmt.Fprintf(w, "%s  [%s]  %s\n", src.CreatedAt.Format("2006-01-02 15:04"), src.Kind, src.ID)
		if src.Name != "" {
			fmt.Fprintf(w, "  %s\n", utils.Truncate(src.Name, 80))
		}
		fmt.Fprintf(w, "  %d chunks, %d chars\n", src.Chunks, src.Chars)
	}
}

// WriteStatus writes a status response to w in the given format.
func WriteStatus(w io.Writer, response *models.StatusResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		fmt.Fprintf(w, "Status:       %s\n", response.Status)
		fmt.Fprintf(w, "Embedder:     %s\n", response.Embedder)
		fmt.Fprintf(w, "Chunks:       %d\n", response.Chunks)
		fmt.Fprintf(w, "Dimensions:   %d\n", response.Dimensions)
		fmt.Fprintf(w, "Sources:      %d\n", response.Sources)
		fmt.Fprintf(w, "Keyword docs: %d\n", response.KeywordDocs)
		return nil
	}
}

// PrintQueryResults prints query results to stdout in text format.
func PrintQueryResults(response *models.QueryResponse) {
	_ = WriteQueryResults(os.Stdout, response, OutputText)
}
