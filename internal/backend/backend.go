// Package backend talks to an optional managed full-text/vector search
// service. When no backend is configured the engine retrieves in-process;
// this client is consulted only when a base URL is set.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Hit is one scored result from the managed backend.
type Hit struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// Searcher is the narrow interface the retriever depends on.
type Searcher interface {
	Query(ctx context.Context, query, indexName string, topK int) ([]Hit, error)
	Name() string
}

const defaultTimeout = 10 * time.Second

// Client queries a managed search service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL. apiKey may be
// empty for unauthenticated deployments.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Name() string { return "managed" }

type searchResponse struct {
	Results []Hit  `json:"results"`
	Error   string `json:"error,omitempty"`
}

// Query runs a search against the named index and returns scored hits,
// best first.
func (c *Client) Query(ctx context.Context, query, indexName string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	u := fmt.Sprintf("%s/v1/indexes/%s/search?q=%s&limit=%d",
		c.baseURL, url.PathEscape(indexName), url.QueryEscape(query), topK)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search backend request: %w", err)
	}
	defer resp.Body.Close()

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search backend response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return nil, fmt.Errorf("search backend returned HTTP %d: %s", resp.StatusCode, body.Error)
		}
		return nil, fmt.Errorf("search backend returned HTTP %d", resp.StatusCode)
	}

	if len(body.Results) > topK {
		body.Results = body.Results[:topK]
	}
	return body.Results, nil
}
