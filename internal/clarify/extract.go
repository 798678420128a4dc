package clarify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/llm"
)

const extractionSystemPrompt = `You are a business analyst reading a product owner's answer.
Pull out any information that answers the listed open questions.
Only use what the text states; never invent values.
Respond with JSON: {"facts": [{"key": "<one of the listed keys>", "value": "<answer in the owner's words>"}]}`

// Candidate is a fact proposed by the language model. It is untrusted until
// the extractor has checked it against the checklist.
type Candidate struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Extractor asks the language model for additional answers hidden in a
// free-text reply ("we're a bakery, customers pay cash on pickup" answers
// three questions at once).
type Extractor struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// NewExtractor creates an extractor. A nil provider yields an extractor that never proposes anything.
func NewExtractor(provider llm.Provider, model string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{provider: provider, model: model, logger: logger}
}

// Extract returns candidates for requirements of list that are still missing
// in store. Keys outside the missing set and empty values are dropped.
func (x *Extractor) Extract(ctx context.Context, list Checklist, store *facts.Store, reply string) ([]Candidate, error) {
	if x == nil || x.provider == nil || strings.TrimSpace(reply) == "" {
		return nil, nil
	}
	missing := list.Missing(store)
	if len(missing) == 0 {
		return nil, nil
	}

	open := make(map[string]bool, len(missing))
	lines := make([]string, 0, len(missing))
	for _, r := range missing {
		open[r.Key] = true
		lines = append(lines, fmt.Sprintf("%s: %s", r.Key, r.Question))
	}

	var out struct {
		Facts []Candidate `json:"facts"`
	}
	err := llm.GenerateJSON(ctx, x.provider, x.model, llm.Prompt{
		System:      extractionSystemPrompt,
		Sections:    []llm.Section{{Title: "Open questions", Lines: lines}, {Title: "Answer", Lines: []string{reply}}},
		Instruction: "Return only facts for the keys above.",
		Temperature: 0.1,
		MaxTokens:   1024,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("extracting facts: %w", err)
	}

	var accepted []Candidate
	for _, c := range out.Facts {
		c.Key = strings.TrimSpace(c.Key)
		c.Value = strings.TrimSpace(c.Value)
		if !open[c.Key] || c.Value == "" {
			x.logger.Debug("dropping extracted fact", "key", c.Key)
			continue
		}
		open[c.Key] = false
		accepted = append(accepted, c)
	}
	return accepted, nil
}
