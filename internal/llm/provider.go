package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// Generate renders a structured prompt and returns the raw completion text.
// The text is an untrusted candidate; callers validate whatever they parse out of it.
func Generate(ctx context.Context, p Provider, model string, prompt Prompt) (string, error) {
	var messages []Message
	if prompt.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: prompt.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: renderPrompt(prompt)})

	maxTokens := prompt.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	resp, err := p.Complete(ctx, CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: prompt.Temperature,
		JSONMode:    prompt.JSON,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", p.Name(), err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// GenerateJSON runs Generate in JSON mode and decodes the first JSON object
// found in the reply into out.
func GenerateJSON(ctx context.Context, p Provider, model string, prompt Prompt, out any) error {
	prompt.JSON = true
	text, err := Generate(ctx, p, model, prompt)
	if err != nil {
		return err
	}
	return DecodeJSON(text, out)
}

// DecodeJSON extracts the outermost JSON object from text (which may be
// wrapped in a markdown code fence or prose) and unmarshals it.
func DecodeJSON(text string, out any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("decoding JSON response: %w", err)
	}
	return nil
}

func renderPrompt(p Prompt) string {
	var b strings.Builder
	for _, s := range p.Sections {
		fmt.Fprintf(&b, "## %s\n", s.Title)
		if len(s.Lines) == 0 {
			b.WriteString("(none)\n")
		}
		for _, line := range s.Lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}
	b.WriteString(p.Instruction)
	return b.String()
}
