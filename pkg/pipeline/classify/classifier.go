// Package classify decides which knowledge domain should answer a query.
// It fans probe retrievals out to every domain, shows the judge model the
// domain descriptions plus probe snippets, and maps the answer back to a
// Domain with a fallback.
package classify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"answerhub-be/pkg/llm"
	"answerhub-be/pkg/pipeline/domain"
	"answerhub-be/pkg/store"
)

const (
	probeLimit   = 2
	snippetLen   = 200
	judgeMaxToks = 50
)

// ProbeRetriever is the slice of the retrieval gateway the classifier needs:
// a cheap, small-limit lookup per domain.
type ProbeRetriever interface {
	Probe(ctx context.Context, d domain.Domain, query string, limit int) ([]store.EvidenceItem, error)
}

type Classifier struct {
	retriever    ProbeRetriever
	llmProvider  llm.LLMProvider
	logger       *log.Logger
	probeTimeout time.Duration
	judgeTimeout time.Duration
}

func NewClassifier(retriever ProbeRetriever, llmProvider llm.LLMProvider, logger *log.Logger) *Classifier {
	return &Classifier{
		retriever:    retriever,
		llmProvider:  llmProvider,
		logger:       logger,
		probeTimeout: 10 * time.Second,
		judgeTimeout: 15 * time.Second,
	}
}

// Classify routes a query to a domain. It never returns an error: probe and
// judge failures degrade to the default domain.
func (c *Classifier) Classify(ctx context.Context, query string) domain.Domain {
	probes := c.fetchProbes(ctx, query)

	prompt := c.buildJudgePrompt(query, probes)

	judgeCtx, cancel := context.WithTimeout(ctx, c.judgeTimeout)
	defer cancel()

	answer, err := c.llmProvider.Generate(judgeCtx, prompt,
		llm.WithTemperature(0),
		llm.WithMaxTokens(judgeMaxToks),
	)
	if err != nil {
		c.logger.Printf("[CLASSIFY] Judge call failed, falling back to %s: %v", domain.Default(), err)
		return domain.Default()
	}

	d, ok := domain.Parse(answer)
	if !ok {
		c.logger.Printf("[CLASSIFY] Unrecognized judge answer %q, falling back to %s", answer, domain.Default())
		return domain.Default()
	}

	c.logger.Printf("[CLASSIFY] Query routed to %s", d)
	return d
}

// fetchProbes runs one bounded probe per domain concurrently. A failed or
// timed-out probe contributes an empty list and never fails the others.
func (c *Classifier) fetchProbes(ctx context.Context, query string) map[domain.Domain][]store.EvidenceItem {
	domains := domain.All()
	results := make([][]store.EvidenceItem, len(domains))

	var wg sync.WaitGroup
	for i, d := range domains {
		wg.Add(1)
		go func(i int, d domain.Domain) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
			defer cancel()

			items, err := c.retriever.Probe(probeCtx, d, query, probeLimit)
			if err != nil {
				c.logger.Printf("[CLASSIFY] Probe for %s failed: %v", d, err)
				return
			}
			results[i] = items
		}(i, d)
	}
	wg.Wait()

	probes := make(map[domain.Domain][]store.EvidenceItem, len(domains))
	for i, d := range domains {
		probes[d] = results[i]
	}
	return probes
}

func (c *Classifier) buildJudgePrompt(query string, probes map[domain.Domain][]store.EvidenceItem) string {
	descriptions := make([]string, 0, len(domain.All()))
	for _, d := range domain.All() {
		descriptions = append(descriptions, d.Description())
	}

	var docContext strings.Builder
	for _, d := range domain.All() {
		docs := probes[d]
		if len(docs) == 0 {
			continue
		}
		fmt.Fprintf(&docContext, "\n\n=== %s SAMPLE DOCUMENTS ===\n", strings.ToUpper(d.ShortName()))
		for i, doc := range docs {
			snippet := doc.Content
			if len(snippet) > snippetLen {
				snippet = snippet[:snippetLen]
			}
			fmt.Fprintf(&docContext, "Doc %d: %s - %s...\n", i+1, doc.Title, snippet)
		}
	}

	return fmt.Sprintf(`You are an expert query routing agent. Your task is to classify a user's query into one of the following categories and return only the corresponding index name.

Here are the descriptions of the available indexes:
%s

Here are sample documents from each index to help you classify the query:
%s

---
User Query: "%s"

Based on your analysis of the user's query and the sample documents from each index, which index contains the most relevant content to answer this query? Respond with the index name ONLY.
`, strings.Join(descriptions, "\n---\n"), docContext.String(), query)
}
