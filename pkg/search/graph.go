package search

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Graph retrieval is two-stage: content chunks first, then relation edges
// keyed by each chunk's parent document id.

type Chunk struct {
	ID         string  `json:"id"`
	ParentID   string  `json:"parent_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Hierarchy  string  `json:"hierarchy"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"@search.score"`
}

type Edge struct {
	RelationType string      `json:"relation_type"`
	SourceLabel  string      `json:"source_label"`
	TargetLabel  string      `json:"target_label"`
	Sentence     string      `json:"sentence"`
	Confidence   interface{} `json:"confidence"` // number or string in the index
}

// SearchChunks queries the chunk index for graph-mode retrieval.
func (c *Client) SearchChunks(ctx context.Context, index, query string, limit int) ([]Chunk, error) {
	if query == "" {
		query = "*"
	}
	req := searchRequest{
		Search: query,
		Top:    limit,
		Select: "id,parent_id,title,url,hierarchy,content,chunk_index",
	}
	resp, err := c.search(ctx, index, req)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(resp.Value))
	for _, raw := range resp.Value {
		var chunk Chunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// FetchEdges loads relation edges for one parent document.
func (c *Client) FetchEdges(ctx context.Context, index, parentID string, limit int) ([]Edge, error) {
	if parentID == "" {
		return nil, nil
	}
	req := searchRequest{
		Search: "*",
		Top:    limit,
		Filter: fmt.Sprintf("parent_id eq '%s'", parentID),
		Select: "relation_type,source_label,target_label,sentence,confidence",
	}
	resp, err := c.search(ctx, index, req)
	if err != nil {
		return nil, err
	}

	edges := make([]Edge, 0, len(resp.Value))
	for _, raw := range resp.Value {
		var edge Edge
		if err := json.Unmarshal(raw, &edge); err != nil {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func (e Edge) confidenceValue() float64 {
	switch v := e.Confidence.(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

var markdownLinkRe = regexp.MustCompile(`[^!]\[([^\]]+)\]\(([^)]+)\)`)

func extractMarkdownLinks(text string) []string {
	var links []string
	// Pad so a link at position zero still misses the image prefix check.
	for _, m := range markdownLinkRe.FindAllStringSubmatch(" "+text, -1) {
		links = append(links, fmt.Sprintf("[%s](%s)", m[1], m[2]))
	}
	return links
}

// BuildGraphContextMarkdown renders chunks and relation edges into the
// markdown context block handed to the prompt layer. Edge lines follow the
// `source --[relation]--> target (conf x.xx)` convention.
func BuildGraphContextMarkdown(chunks []Chunk, edges []Edge) string {
	var md []string

	if len(chunks) > 0 {
		md = append(md, "## Retrieved Chunks\n")
		for i, chunk := range chunks {
			content := chunk.Content
			if len(content) > 800 {
				content = content[:800]
			}
			md = append(md, fmt.Sprintf("### Chunk %d: %s\n", i+1, chunk.Title))
			if chunk.Hierarchy != "" {
				md = append(md, fmt.Sprintf("- Hierarchy: %s\n", chunk.Hierarchy))
			}
			if chunk.URL != "" {
				md = append(md, fmt.Sprintf("- URL: %s\n", chunk.URL))
			}
			md = append(md, "\n", content, "\n\n---\n")

			if links := extractMarkdownLinks(chunk.Content); len(links) > 0 {
				md = append(md, "**Links found in this chunk:**\n")
				if len(links) > 10 {
					links = links[:10]
				}
				for _, link := range links {
					md = append(md, fmt.Sprintf("- %s\n", link))
				}
			}
			md = append(md, "\n\n")
		}
	}

	if len(edges) > 0 {
		if len(edges) > 20 {
			edges = edges[:20]
		}
		md = append(md, "\n## Retrieved Relations\n")
		for _, edge := range edges {
			rel := edge.RelationType
			if rel == "" {
				rel = "RELATED_TO"
			}
			md = append(md, fmt.Sprintf("- %s --[%s]--> %s (conf %.2f)\n",
				edge.SourceLabel, rel, edge.TargetLabel, edge.confidenceValue()))
			if edge.Sentence != "" {
				md = append(md, fmt.Sprintf("  - Evidence: %s\n", edge.Sentence))
			}
		}
	}

	return strings.TrimSpace(strings.Join(md, "\n"))
}
