// Package regulator is the client for the external tax-authority operational
// answer service. The service streams answer text line by line and delivers
// citations out-of-band in the x-metainfo response header.
package regulator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"answerhub-be/pkg/llm"
	"answerhub-be/pkg/store"
)

type Client struct {
	BaseURL  string
	Username string
	HTTP     *http.Client
	logger   *log.Logger
}

func NewClient(baseURL, username string, logger *log.Logger) *Client {
	if username == "" {
		username = "user"
	}
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Username: username,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type respondRequest struct {
	Username string `json:"username"`
	Prompt   string `json:"prompt"`
	Learn    bool   `json:"learn"`
	Stream   bool   `json:"stream"`
}

// metainfo is the x-metainfo header payload. The "hierrachy" spelling is the
// wire contract; do not correct it.
type metainfo struct {
	URLs []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		Hierrachy string `json:"hierrachy"`
	} `json:"urls"`
}

// RespondStream sends the query and returns a fragment channel plus the
// citations parsed from response metadata. Metadata parse failures degrade to
// an empty citation list.
func (c *Client) RespondStream(ctx context.Context, query string) (<-chan llm.StreamResult, []store.EvidenceItem, error) {
	resp, err := c.do(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	refs := c.parseMetainfo(resp.Header.Get("x-metainfo"))

	out := make(chan llm.StreamResult)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		// Sends race against ctx; a cancelled consumer stops draining and
		// would otherwise strand this goroutine and the open body.
		emit := func(r llm.StreamResult) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if !emit(llm.StreamResult{Content: line + "\n"}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			emit(llm.StreamResult{Err: fmt.Errorf("regulator stream read error: %w", err)})
		}
	}()

	return out, refs, nil
}

// Respond drains the stream into one answer string.
func (c *Client) Respond(ctx context.Context, query string) (string, []store.EvidenceItem, error) {
	fragments, refs, err := c.RespondStream(ctx, query)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	for fragment := range fragments {
		if fragment.Err != nil {
			return "", nil, fragment.Err
		}
		b.WriteString(fragment.Content)
	}
	return b.String(), refs, nil
}

func (c *Client) do(ctx context.Context, query string) (*http.Response, error) {
	payload := respondRequest{
		Username: c.Username,
		Prompt:   query,
		Learn:    false,
		Stream:   true,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/api/chat/get-response-message"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("regulator request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("regulator error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}

func (c *Client) parseMetainfo(header string) []store.EvidenceItem {
	if header == "" {
		return nil
	}

	var meta metainfo
	if err := json.Unmarshal([]byte(header), &meta); err != nil {
		c.logger.Printf("[REGULATOR] Failed to parse x-metainfo header: %v", err)
		return nil
	}

	items := make([]store.EvidenceItem, 0, len(meta.URLs))
	for _, u := range meta.URLs {
		items = append(items, store.EvidenceItem{
			Title:     u.Title,
			URL:       u.URL,
			Hierarchy: u.Hierrachy,
		})
	}
	return items
}
