// Package transcript fetches call transcripts from an external service so
// they can be ingested like any other text.
package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches transcripts over HTTP. The service exposes
// GET {base}/transcripts/{id} returning the transcript as plain text.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a transcript client for baseURL. timeout bounds each
// fetch; zero or negative means 15 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch returns the transcript text for id. A non-2xx response or an empty
// body is an error.
func (c *Client) Fetch(ctx context.Context, id string) (string, error) {
	u := c.baseURL + "/transcripts/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch transcript %s: status %d", id, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcript %s: %w", id, err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("transcript %s: empty body", id)
	}
	return text, nil
}
