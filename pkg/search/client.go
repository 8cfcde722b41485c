// Package search wraps the hosted search service's REST API. Every index
// query goes through here; callers decide what to do with transport errors.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"answerhub-be/pkg/store"
)

const defaultAPIVersion = "2023-11-01"

type Client struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	HTTP       *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		Endpoint:   strings.TrimSuffix(endpoint, "/"),
		APIKey:     apiKey,
		APIVersion: defaultAPIVersion,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BuildHierarchyFilter converts each filter string f into the range condition
// `hierarchy ge 'f' and hierarchy le 'faddition'`, OR-joined. The "addition"
// suffix is a lexicographic bounding trick inherited from the index schema;
// downstream systems depend on this exact filter string, so keep it verbatim.
func BuildHierarchyFilter(filters []string) string {
	conditions := ""
	for _, f := range filters {
		ltan := f + "addition"
		conditions += fmt.Sprintf("hierarchy ge '%s' and hierarchy le '%s' or ", f, ltan)
	}
	if conditions != "" {
		conditions = conditions[:len(conditions)-4] // remove last " or "
	}
	return conditions
}

// --- Request/Response structs (search service REST shape) ---

type searchRequest struct {
	Search                string `json:"search"`
	Top                   int    `json:"top,omitempty"`
	Filter                string `json:"filter,omitempty"`
	Select                string `json:"select,omitempty"`
	QueryType             string `json:"queryType,omitempty"`
	SemanticConfiguration string `json:"semanticConfiguration,omitempty"`
}

type searchResponse struct {
	Value []json.RawMessage `json:"value"`
}

type documentResult struct {
	Score     float64 `json:"@search.score"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Hierarchy string  `json:"hierarchy"`
	Content   string  `json:"content"`
}

// KeywordSearch runs a plain keyword query against a document index.
func (c *Client) KeywordSearch(ctx context.Context, index, query string, filters []string, limit int) ([]store.EvidenceItem, error) {
	req := searchRequest{
		Search: query,
		Top:    limit,
		Filter: BuildHierarchyFilter(filters),
	}
	return c.searchDocuments(ctx, index, req)
}

// SemanticSearch runs a semantic-ranked query against a document index.
func (c *Client) SemanticSearch(ctx context.Context, index, query string, filters []string, limit int, semanticConfig string) ([]store.EvidenceItem, error) {
	if semanticConfig == "" {
		semanticConfig = "default"
	}
	req := searchRequest{
		Search:                query,
		Top:                   limit,
		Filter:                BuildHierarchyFilter(filters),
		QueryType:             "semantic",
		SemanticConfiguration: semanticConfig,
	}
	return c.searchDocuments(ctx, index, req)
}

func (c *Client) searchDocuments(ctx context.Context, index string, req searchRequest) ([]store.EvidenceItem, error) {
	resp, err := c.search(ctx, index, req)
	if err != nil {
		return nil, err
	}

	items := make([]store.EvidenceItem, 0, len(resp.Value))
	for _, raw := range resp.Value {
		var doc documentResult
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		items = append(items, store.EvidenceItem{
			Title:     doc.Title,
			URL:       doc.URL,
			Hierarchy: doc.Hierarchy,
			Content:   doc.Content,
			Score:     doc.Score,
		})
	}
	return items, nil
}

func (c *Client) search(ctx context.Context, index string, req searchRequest) (*searchResponse, error) {
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		c.Endpoint, url.PathEscape(index), c.APIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed searchResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &parsed, nil
}
