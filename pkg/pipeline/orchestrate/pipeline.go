// Package orchestrate ties the conversational pipeline together: query
// rewrite, domain classification, retrieval, and answer generation.
package orchestrate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"answerhub-be/pkg/llm"
	"answerhub-be/pkg/pipeline/domain"
	"answerhub-be/pkg/pipeline/promptkit"
	"answerhub-be/pkg/pipeline/retrieve"
	"answerhub-be/pkg/store"
)

const (
	rewriteMaxTokens  = 200
	generateMaxTokens = 3500

	defaultRetrieveLimit = 3
)

// VisibleErrorText is sent to the user when generation fails after the
// request itself was accepted. Details go to the pipeline log only.
const VisibleErrorText = "**Error:** An unexpected error occurred. Please check the server logs."

const emptyResponseText = "**Error:** Received an empty response from the model."

type Classifier interface {
	Classify(ctx context.Context, query string) domain.Domain
}

type Retriever interface {
	Retrieve(ctx context.Context, d domain.Domain, query string, limit int, filters []string) retrieve.Result
}

// OperationalClient answers regulator-operations queries via the external
// practice-guidance service.
type OperationalClient interface {
	RespondStream(ctx context.Context, query string) (<-chan llm.StreamResult, []store.EvidenceItem, error)
}

type Pipeline struct {
	llmProvider llm.LLMProvider
	classifier  Classifier
	retriever   Retriever
	operational OperationalClient
	logger      *log.Logger
}

func NewPipeline(llmProvider llm.LLMProvider, classifier Classifier, retriever Retriever, operational OperationalClient, logger *log.Logger) *Pipeline {
	return &Pipeline{
		llmProvider: llmProvider,
		classifier:  classifier,
		retriever:   retriever,
		operational: operational,
		logger:      logger,
	}
}

// Input is one user turn plus the prior conversation. Limit caps how many
// evidence items retrieval returns; zero means the default. Filters are
// optional hierarchy range filters forwarded to the search indexes.
type Input struct {
	RawInput string
	History  []store.Turn
	Limit    int
	Filters  []string
}

// Outcome carries the classification result, the citations, and the answer
// fragment stream for one turn.
type Outcome struct {
	Domain             domain.Domain
	StandaloneQuestion string
	References         []store.EvidenceItem
	Fragments          <-chan llm.StreamResult
}

// Run executes the full pipeline and returns a streaming outcome. Generation
// failures never surface as errors; the stream carries a visible error
// message instead so callers can treat every outcome uniformly.
func (p *Pipeline) Run(ctx context.Context, in Input) Outcome {
	// 1. Rewrite follow-ups into a standalone question
	standalone := p.rewriteQuery(ctx, in)
	p.logger.Printf("[PIPELINE] Standalone question: %q", standalone)

	// 2. Classify
	classified := p.classifier.Classify(ctx, standalone)
	p.logger.Printf("[PIPELINE] Classified domain: %s", classified.Key())

	// 3. Regulator operations bypass local retrieval entirely
	if classified == domain.RegulatorOperations {
		fragments, refs, err := p.operational.RespondStream(ctx, in.RawInput)
		if err != nil {
			p.logger.Printf("[PIPELINE] Operational service call failed: %v", err)
			return Outcome{
				Domain:             classified,
				StandaloneQuestion: standalone,
				Fragments:          singleFragment(VisibleErrorText),
			}
		}
		return Outcome{
			Domain:             classified,
			StandaloneQuestion: standalone,
			References:         refs,
			Fragments:          fragments,
		}
	}

	// 4. Retrieve and generate
	limit := in.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}
	result := p.retriever.Retrieve(ctx, classified, standalone, limit, in.Filters)
	p.logger.Printf("[PIPELINE] Retrieved %d documents for domain %s", len(result.Items), classified.Key())

	prompt := promptkit.Build(promptkit.Input{
		Domain:             classified,
		StandaloneQuestion: standalone,
		RawInput:           in.RawInput,
		Evidence:           result.Items,
		ContextMarkdown:    result.ContextMarkdown,
		History:            historyMessages(in.History),
	})

	fragments, err := p.llmProvider.ChatStream(ctx, prompt.ToMessages(),
		llm.WithTemperature(0),
		llm.WithMaxTokens(generateMaxTokens),
	)
	if err != nil {
		p.logger.Printf("[PIPELINE] Generation call failed: %v", err)
		return Outcome{
			Domain:             classified,
			StandaloneQuestion: standalone,
			References:         result.Items,
			Fragments:          singleFragment(VisibleErrorText),
		}
	}

	return Outcome{
		Domain:             classified,
		StandaloneQuestion: standalone,
		References:         result.Items,
		Fragments:          fragments,
	}
}

// RunOnce executes the pipeline without streaming and returns the complete
// answer text.
func (p *Pipeline) RunOnce(ctx context.Context, in Input) (string, Outcome) {
	out := p.Run(ctx, in)

	var b strings.Builder
	for fragment := range out.Fragments {
		if fragment.Err != nil {
			p.logger.Printf("[PIPELINE] Stream failed mid-answer: %v", fragment.Err)
			return VisibleErrorText, out
		}
		b.WriteString(fragment.Content)
	}

	answer := b.String()
	if answer == "" {
		return emptyResponseText, out
	}
	return answer, out
}

// rewriteQuery condenses a follow-up into a standalone question. With at most
// one prior turn there is nothing to condense, so the raw input passes through;
// rewrite failures also fall back to the raw input.
func (p *Pipeline) rewriteQuery(ctx context.Context, in Input) string {
	if len(in.History) <= 1 {
		return in.RawInput
	}

	history := in.History
	if len(history) > promptkit.HistoryWindow {
		history = history[len(history)-promptkit.HistoryWindow:]
	}
	var lines []string
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}

	prompt := fmt.Sprintf("Rephrase the \"Follow-up Question\" below into a self-contained, standalone question based on the Chat History.\n\nChat History:\n%s\n\nFollow-up Question: %s\n\nStandalone Question:",
		strings.Join(lines, "\n"), in.RawInput)

	rewritten, err := p.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0),
		llm.WithMaxTokens(rewriteMaxTokens),
	)
	if err != nil {
		p.logger.Printf("[PIPELINE] Query rewrite failed, using raw input: %v", err)
		return in.RawInput
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return in.RawInput
	}
	return rewritten
}

func historyMessages(turns []store.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == store.TurnRoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages
}

func singleFragment(content string) <-chan llm.StreamResult {
	out := make(chan llm.StreamResult, 1)
	out <- llm.StreamResult{Content: content}
	close(out)
	return out
}
