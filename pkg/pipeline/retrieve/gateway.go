// Package retrieve is the uniform gateway over the per-domain retrieval
// strategies: keyword/semantic document search, structured pricing lookup,
// and two-stage graph chunk+edge lookup.
package retrieve

import (
	"context"
	"fmt"
	"log"

	"answerhub-be/pkg/pipeline/domain"
	"answerhub-be/pkg/search"
	"answerhub-be/pkg/store"
)

const (
	graphChunkLimit     = 5
	graphEdgesPerParent = 15
	graphEdgeLimit      = 20
)

// Config carries the index names the gateway queries per domain.
type Config struct {
	HelpGuidesIndex         string
	PricingIndex            string
	RegulatorIndex          string
	RegulatorSemanticConfig string
	ChunkIndex              string
	EdgeIndex               string
}

// Result is what one retrieval produces. Items always carries the evidence
// list used for citations; ContextMarkdown is set by strategies that
// pre-render their own context block (pricing, graph) and left empty by the
// plain document strategies.
type Result struct {
	Items           []store.EvidenceItem
	ContextMarkdown string
}

type Gateway struct {
	client *search.Client
	cfg    Config
	logger *log.Logger
}

func NewGateway(client *search.Client, cfg Config, logger *log.Logger) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Retrieve runs the domain's strategy. Transport failures degrade to an empty
// result; "no evidence" is a valid state the prompt layer handles.
func (g *Gateway) Retrieve(ctx context.Context, d domain.Domain, query string, limit int, filters []string) Result {
	var res Result
	var err error

	switch d {
	case domain.HelpGuides:
		res.Items, err = g.client.SemanticSearch(ctx, g.cfg.HelpGuidesIndex, query, filters, limit, "default")
	case domain.Pricing:
		res, err = g.retrievePricing(ctx, query, limit)
	case domain.RegulatorOperations:
		res.Items, err = g.client.SemanticSearch(ctx, g.cfg.RegulatorIndex, query, filters, limit, g.cfg.RegulatorSemanticConfig)
	case domain.ProductWebsite:
		res, err = g.retrieveGraph(ctx, query, limit)
	}

	if err != nil {
		g.logger.Printf("[RETRIEVE] %s retrieval failed, degrading to empty evidence: %v", d, err)
		return Result{}
	}

	g.logger.Printf("[RETRIEVE] %s returned %d documents", d, len(res.Items))
	return res
}

// Probe is the classifier-facing cheap lookup. Unlike Retrieve it surfaces
// the error so the classifier can log it per domain.
func (g *Gateway) Probe(ctx context.Context, d domain.Domain, query string, limit int) ([]store.EvidenceItem, error) {
	switch d {
	case domain.HelpGuides:
		return g.client.SemanticSearch(ctx, g.cfg.HelpGuidesIndex, query, nil, limit, "default")
	case domain.Pricing:
		docs, err := g.client.SearchPricing(ctx, g.cfg.PricingIndex, query, limit)
		if err != nil {
			return nil, err
		}
		return pricingItems(docs), nil
	case domain.RegulatorOperations:
		return g.client.SemanticSearch(ctx, g.cfg.RegulatorIndex, query, nil, limit, g.cfg.RegulatorSemanticConfig)
	case domain.ProductWebsite:
		chunks, err := g.client.SearchChunks(ctx, g.cfg.ChunkIndex, query, limit)
		if err != nil {
			return nil, err
		}
		return chunkItems(chunks), nil
	}
	return nil, fmt.Errorf("unknown domain: %v", d)
}

func (g *Gateway) retrievePricing(ctx context.Context, query string, limit int) (Result, error) {
	docs, err := g.client.SearchPricing(ctx, g.cfg.PricingIndex, query, limit)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Items:           pricingItems(docs),
		ContextMarkdown: search.FormatPricingMarkdown(docs),
	}, nil
}

func (g *Gateway) retrieveGraph(ctx context.Context, query string, limit int) (Result, error) {
	if limit > graphChunkLimit {
		limit = graphChunkLimit
	}
	chunks, err := g.client.SearchChunks(ctx, g.cfg.ChunkIndex, query, limit)
	if err != nil {
		return Result{}, err
	}

	// Second stage: edges keyed by each chunk's parent document, deduplicated
	// by parent so one page fetched twice does not double its relations.
	seen := make(map[string]bool)
	var edges []search.Edge
	for _, chunk := range chunks {
		if chunk.ParentID == "" || seen[chunk.ParentID] {
			continue
		}
		seen[chunk.ParentID] = true

		parentEdges, err := g.client.FetchEdges(ctx, g.cfg.EdgeIndex, chunk.ParentID, graphEdgesPerParent)
		if err != nil {
			g.logger.Printf("[RETRIEVE] Edge fetch for parent %s failed: %v", chunk.ParentID, err)
			continue
		}
		edges = append(edges, parentEdges...)
		if len(edges) >= graphEdgeLimit {
			edges = edges[:graphEdgeLimit]
			break
		}
	}

	return Result{
		Items:           chunkItems(chunks),
		ContextMarkdown: search.BuildGraphContextMarkdown(chunks, edges),
	}, nil
}

func pricingItems(docs []search.PricingDoc) []store.EvidenceItem {
	items := make([]store.EvidenceItem, 0, len(docs))
	for _, doc := range docs {
		content := ""
		for _, plan := range doc.Plans {
			content += fmt.Sprintf("%s (%s): %s\n", plan.PlanName, plan.Category, plan.Price)
		}
		items = append(items, store.EvidenceItem{
			Title:     doc.TabName,
			Hierarchy: doc.Hierarchy,
			Content:   content,
		})
	}
	return items
}

func chunkItems(chunks []search.Chunk) []store.EvidenceItem {
	items := make([]store.EvidenceItem, 0, len(chunks))
	for _, chunk := range chunks {
		items = append(items, store.EvidenceItem{
			Title:     chunk.Title,
			URL:       chunk.URL,
			Hierarchy: chunk.Hierarchy,
			Content:   chunk.Content,
			Score:     chunk.Score,
		})
	}
	return items
}
