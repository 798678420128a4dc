package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-analyst/internal/retry"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Errs     []error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{Content: "mock response", Model: "mock-model", FinishReason: "stop"},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

// Complete pops the next queued error, if any, before answering.
func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	for _, p := range []string{"anthropic", "openai", "openrouter"} {
		_, err := NewProvider(p, "some-model")
		if err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider("unknown", "some-model")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryCreatesOllamaWithDefaultHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	provider, err := NewProvider("ollama", "llama3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ollamaP, ok := provider.(*OllamaProvider)
	if !ok {
		t.Fatal("expected *OllamaProvider")
	}
	if ollamaP.baseURL != defaultOllamaHost {
		t.Errorf("expected default host, got %q", ollamaP.baseURL)
	}
}

func TestFactoryNamesProviders(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	for _, name := range []string{"anthropic", "openai", "openrouter"} {
		provider, err := NewProvider(name, "model")
		require.NoError(t, err)
		assert.Equal(t, name, provider.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}
	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	if _, err := rl.Complete(ctx, req); err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
}

func TestGenerateRendersSections(t *testing.T) {
	mock := NewMockProvider("test")
	out, err := Generate(context.Background(), mock, "m", Prompt{
		System:      "You are a business analyst.",
		Sections:    []Section{{Title: "Facts", Lines: []string{"problem: slow checkout"}}, {Title: "Empty"}},
		Instruction: "Summarise.",
	})
	require.NoError(t, err)
	assert.Equal(t, "mock response", out)

	require.Len(t, mock.Calls, 1)
	msgs := mock.Calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "## Facts\n- problem: slow checkout")
	assert.Contains(t, msgs[1].Content, "## Empty\n(none)")
	assert.Equal(t, "m", mock.Calls[0].Model)
}

func TestDecodeJSONIgnoresFences(t *testing.T) {
	var out struct {
		Facts []string `json:"facts"`
	}
	err := DecodeJSON("```json\n{\"facts\": [\"a\", \"b\"]}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Facts)

	assert.Error(t, DecodeJSON("no json here", &out))
}

func TestWithRetryReturnsCollaboratorTimeout(t *testing.T) {
	mock := NewMockProvider("flaky")
	mock.Errs = []error{errors.New("503"), errors.New("503"), errors.New("503")}

	p := WithRetry(mock, retry.Policy{MaxRetries: 2, Backoff: time.Millisecond}, nil)
	_, err := p.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.True(t, retry.IsCollaboratorTimeout(err))
	assert.Equal(t, 3, mock.CallCount())
}

func TestWithRetryRecovers(t *testing.T) {
	mock := NewMockProvider("flaky")
	mock.Errs = []error{errors.New("timeout")}

	p := WithRetry(mock, retry.Policy{MaxRetries: 2, Backoff: time.Millisecond}, nil)
	resp, err := p.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp.Content)
	assert.Equal(t, 2, mock.CallCount())
}

func TestOllamaClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	calls := 0
	counting := providerFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		calls++
		return NewOllamaProvider(srv.URL, "missing").Complete(ctx, req)
	})
	_, err := WithRetry(counting, retry.Policy{MaxRetries: 2, Backoff: time.Millisecond}, nil).
		Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.False(t, retry.IsCollaboratorTimeout(err))
	assert.Equal(t, 1, calls)
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello"},"model":"llama3","done_reason":"stop","eval_count":3}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL+"/", "llama3").Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestAnthropicSeparatesSystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		var body anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be brief", body.System)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, "user", body.Messages[0].Role)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"model":"claude","stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "claude")
	p.baseURL = srv.URL
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

type providerFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

func (f providerFunc) Name() string { return "func" }
func (f providerFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}
