package retrieve

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"answerhub-be/pkg/pipeline/domain"
	"answerhub-be/pkg/search"
)

func testConfig() Config {
	return Config{
		HelpGuidesIndex:         "help-guides",
		PricingIndex:            "pricing",
		RegulatorIndex:          "regulator-ops",
		RegulatorSemanticConfig: "regsemantic",
		ChunkIndex:              "site-chunks",
		EdgeIndex:               "site-edges",
	}
}

func newGateway(serverURL string) *Gateway {
	client := search.NewClient(serverURL, "key")
	return NewGateway(client, testConfig(), log.New(io.Discard, "", 0))
}

func writeValue(w http.ResponseWriter, docs []map[string]interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{"value": docs})
}

func TestRetrieveDegradesToEmptyOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	g := newGateway(server.URL)

	for _, d := range domain.All() {
		res := g.Retrieve(context.Background(), d, "query", 3, nil)
		if len(res.Items) != 0 || res.ContextMarkdown != "" {
			t.Errorf("%s: expected empty result on failure, got %+v", d, res)
		}
	}
}

func TestRetrieveHelpGuides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/indexes/help-guides/") {
			t.Errorf("unexpected index path: %s", r.URL.Path)
		}
		writeValue(w, []map[string]interface{}{
			{"title": "Import clients", "url": "https://docs/import", "content": "Steps to import."},
		})
	}))
	defer server.Close()

	res := newGateway(server.URL).Retrieve(context.Background(), domain.HelpGuides, "import", 3, nil)
	if len(res.Items) != 1 || res.Items[0].Title != "Import clients" {
		t.Fatalf("unexpected items: %+v", res.Items)
	}
	if res.ContextMarkdown != "" {
		t.Error("document strategy should not pre-render context")
	}
}

func TestRetrievePricingRendersMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, []map[string]interface{}{
			{
				"tab_name":  "Agent Plans",
				"hierarchy": "Pricing/Agents",
				"plan":      `{"Agents":{"nano":{"title":"Nano","price":"$132/year","users":"1"}}}`,
			},
		})
	}))
	defer server.Close()

	res := newGateway(server.URL).Retrieve(context.Background(), domain.Pricing, "nano price", 5, nil)
	if len(res.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(res.Items))
	}
	if !strings.Contains(res.Items[0].Content, "Nano") {
		t.Errorf("item content missing plan summary: %q", res.Items[0].Content)
	}
	if !strings.Contains(res.ContextMarkdown, "**Plan:** Nano") ||
		!strings.Contains(res.ContextMarkdown, "**Price:** $132/year") {
		t.Errorf("context markdown missing plan details:\n%s", res.ContextMarkdown)
	}
}

func TestRetrieveGraphTwoStage(t *testing.T) {
	var edgeRequests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/indexes/site-chunks/"):
			writeValue(w, []map[string]interface{}{
				{"id": "c1", "parent_id": "p1", "title": "Overview", "content": "About the product."},
				{"id": "c2", "parent_id": "p1", "title": "Overview 2", "content": "More."},
				{"id": "c3", "parent_id": "p2", "title": "Integrations", "content": "Ledger sync."},
			})
		case strings.Contains(r.URL.Path, "/indexes/site-edges/"):
			edgeRequests++
			var body struct {
				Filter string `json:"filter"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if !strings.HasPrefix(body.Filter, "parent_id eq '") {
				t.Errorf("unexpected edge filter: %q", body.Filter)
			}
			writeValue(w, []map[string]interface{}{
				{"relation_type": "HAS_FEATURE", "source_label": "Product", "target_label": "Sync", "confidence": 0.8},
			})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	res := newGateway(server.URL).Retrieve(context.Background(), domain.ProductWebsite, "features", 3, nil)
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 chunk items, got %d", len(res.Items))
	}
	// Two distinct parents, so exactly two edge fetches.
	if edgeRequests != 2 {
		t.Errorf("expected 2 edge requests (deduplicated by parent), got %d", edgeRequests)
	}
	if !strings.Contains(res.ContextMarkdown, "Product --[HAS_FEATURE]--> Sync") {
		t.Errorf("context missing relation line:\n%s", res.ContextMarkdown)
	}
}

func TestProbeUsesDomainStrategy(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeValue(w, nil)
	}))
	defer server.Close()
	g := newGateway(server.URL)

	for _, d := range domain.All() {
		if _, err := g.Probe(context.Background(), d, "q", 2); err != nil {
			t.Errorf("%s probe error: %v", d, err)
		}
	}

	joined := strings.Join(paths, " ")
	for _, index := range []string{"help-guides", "pricing", "regulator-ops", "site-chunks"} {
		if !strings.Contains(joined, "/indexes/"+index+"/") {
			t.Errorf("no probe hit index %s (paths: %v)", index, paths)
		}
	}
}
