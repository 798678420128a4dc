// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/ziadkadry99/auto-analyst/internal/llm"
)

// Provider returns canned replies. Replies are matched by the first entry in
// Rules whose key appears in the last user message; otherwise Default is used.
type Provider struct {
	mu      sync.Mutex
	Calls   []llm.CompletionRequest
	Rules   map[string]string
	Default string
	Err     error
	// Block makes Complete wait for the context to end.
	Block bool
}

// New returns a Provider that answers every call with reply.
func New(reply string) *Provider {
	return &Provider{Default: reply, Rules: map[string]string{}}
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, req)
	block, err := p.Block, p.Err
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	var last string
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			last = m.Content
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	content := p.Default
	for key, reply := range p.Rules {
		if strings.Contains(last, key) {
			content = reply
			break
		}
	}
	return &llm.CompletionResponse{Content: content, Model: "fake-model", FinishReason: "stop"}, nil
}

// CallCount returns how many completions were requested.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
