package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/llm"
)

const searchSystemPrompt = `You are a solution architect helping a small business choose how to build a product.
For the query, list distinct, realistic approaches that are commonly used today.
Respond with JSON: {"candidates": [{"summary": "one sentence", "rationale": "why it fits", "tradeoffs": ["..."], "source": "where this approach is documented, if known"}]}`

// LLMSearcher asks the language model for candidate approaches. Its answers
// are candidates like any other search result and go through the same
// dedupe and ranking.
type LLMSearcher struct {
	provider llm.Provider
	model    string
	max      int
}

// NewLLMSearcher creates a searcher that requests at most max candidates per query.
func NewLLMSearcher(provider llm.Provider, model string, max int) *LLMSearcher {
	if max <= 0 {
		max = 5
	}
	return &LLMSearcher{provider: provider, model: model, max: max}
}

func (s *LLMSearcher) Name() string { return "llm" }

func (s *LLMSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	var out struct {
		Candidates []struct {
			Summary   string   `json:"summary"`
			Rationale string   `json:"rationale"`
			Tradeoffs []string `json:"tradeoffs"`
			Source    string   `json:"source"`
		} `json:"candidates"`
	}
	err := llm.GenerateJSON(ctx, s.provider, s.model, llm.Prompt{
		System:      searchSystemPrompt,
		Sections:    []llm.Section{{Title: "Query", Lines: []string{query}}},
		Instruction: fmt.Sprintf("Return at most %d candidates.", s.max),
		Temperature: 0.3,
		MaxTokens:   1500,
	}, &out)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range out.Candidates {
		summary := strings.TrimSpace(c.Summary)
		if summary == "" {
			continue
		}
		source := strings.TrimSpace(c.Source)
		if source == "" {
			source = "llm:" + s.provider.Name()
		}
		results = append(results, Result{
			Summary:   summary,
			Rationale: strings.TrimSpace(c.Rationale),
			Tradeoffs: c.Tradeoffs,
			SourceRef: source,
		})
		if len(results) == s.max {
			break
		}
	}
	return results, nil
}
