package synth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/llm"
)

// EpicPlan is what a drafter knows about one epic.
type EpicPlan struct {
	Epic backlog.Epic `json:"epic"`
	// Actors are the roles allowed to own stories in this epic.
	Actors      []string `json:"actors"`
	Capability  string   `json:"capability"`
	Benefits    []string `json:"benefits"`
	Constraints []string `json:"constraints"`
	Feedback    []string `json:"feedback,omitempty"`
}

// StoryDrafter proposes stories for an epic. IDs and status are assigned by
// the synthesizer. Returning no stories omits the epic.
type StoryDrafter interface {
	Draft(ctx context.Context, plan EpicPlan) ([]backlog.Story, error)
}

// TemplateDrafter writes one story per actor from fixed templates.
type TemplateDrafter struct{}

func (TemplateDrafter) Draft(_ context.Context, plan EpicPlan) ([]backlog.Story, error) {
	capability := strings.TrimSpace(plan.Capability)
	if capability == "" {
		return nil, nil
	}

	var out []backlog.Story
	for i, actor := range plan.Actors {
		actor = strings.TrimSpace(actor)
		if actor == "" {
			continue
		}
		benefit := "the product solves my problem"
		if len(plan.Benefits) > 0 {
			benefit = lowerFirst(plan.Benefits[i%len(plan.Benefits)])
		}

		criteria := []backlog.Criterion{{
			Given: fmt.Sprintf("a %s using the product", actor),
			When:  fmt.Sprintf("they use %s", plan.Epic.Title),
			Then:  fmt.Sprintf("the result contributes to %q", benefit),
		}}
		for _, c := range plan.Constraints {
			criteria = append(criteria, backlog.Criterion{
				Given: fmt.Sprintf("the constraint %q", c),
				When:  fmt.Sprintf("a %s uses %s", actor, plan.Epic.Title),
				Then:  "the behaviour respects that constraint",
			})
		}

		out = append(out, backlog.Story{
			Title:              fmt.Sprintf("%s %s, I want %s, so that %s", article(actor), actor, capability, benefit),
			Description:        plan.Epic.Goal,
			AcceptanceCriteria: criteria,
		})
	}
	return out, nil
}

func article(noun string) string {
	if noun != "" && strings.ContainsRune("aeiouAEIOU", rune(noun[0])) {
		return "As an"
	}
	return "As a"
}

// LLMDrafter asks a language model for stories. Its output is a candidate
// that still goes through validation. Responses are cached per plan so an
// unchanged input drafts the same stories.
type LLMDrafter struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string][]backlog.Story
}

// NewLLMDrafter creates a drafter backed by provider.
func NewLLMDrafter(provider llm.Provider, model string, logger *slog.Logger) *LLMDrafter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMDrafter{provider: provider, model: model, logger: logger, cache: make(map[string][]backlog.Story)}
}

type llmStories struct {
	Stories []struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Criteria    []backlog.Criterion `json:"acceptance_criteria"`
	} `json:"stories"`
}

func (d *LLMDrafter) Draft(ctx context.Context, plan EpicPlan) ([]backlog.Story, error) {
	if len(plan.Actors) == 0 {
		return nil, nil
	}
	key := planKey(plan)

	d.mu.Lock()
	cached, ok := d.cache[key]
	d.mu.Unlock()
	if ok {
		return cloneStories(cached), nil
	}

	prompt := llm.Prompt{
		System: "You are a business analyst writing user stories for a product backlog.",
		Sections: []llm.Section{
			{Title: "Epic", Lines: []string{plan.Epic.Title, plan.Epic.Goal}},
			{Title: "Actors (use only these)", Lines: plan.Actors},
			{Title: "Capability", Lines: []string{plan.Capability}},
			{Title: "Benefits", Lines: plan.Benefits},
			{Title: "Constraints", Lines: plan.Constraints},
			{Title: "Feedback on the previous draft", Lines: plan.Feedback},
		},
		Instruction: `Write one story per actor. Every title must read "As a <actor>, I want <capability>, so that <benefit>". ` +
			`Give each story at least one acceptance criterion with non-empty given, when and then. ` +
			`Respond with JSON: {"stories":[{"title":"","description":"","acceptance_criteria":[{"given":"","when":"","then":""}]}]}`,
		JSON: true,
	}

	var resp llmStories
	if err := llm.GenerateJSON(ctx, d.provider, d.model, prompt, &resp); err != nil {
		return nil, err
	}

	var out []backlog.Story
	for _, s := range resp.Stories {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			continue
		}
		out = append(out, backlog.Story{
			Title:              title,
			Description:        strings.TrimSpace(s.Description),
			AcceptanceCriteria: s.Criteria,
		})
	}
	d.logger.Debug("stories drafted by model", "epic", plan.Epic.ID, "stories", len(out))

	d.mu.Lock()
	d.cache[key] = cloneStories(out)
	d.mu.Unlock()
	return out, nil
}

func planKey(plan EpicPlan) string {
	data, _ := json.Marshal(plan)
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cloneStories(in []backlog.Story) []backlog.Story {
	out := make([]backlog.Story, len(in))
	for i, s := range in {
		s.AcceptanceCriteria = append([]backlog.Criterion(nil), s.AcceptanceCriteria...)
		out[i] = s
	}
	return out
}
