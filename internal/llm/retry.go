package llm

import (
	"context"
	"log/slog"

	"github.com/ziadkadry99/auto-analyst/internal/retry"
)

// RetryingProvider bounds every completion with the given retry policy.
// Exhausting the budget yields a *retry.CollaboratorTimeoutError.
type RetryingProvider struct {
	provider Provider
	policy   retry.Policy
	logger   *slog.Logger
}

// WithRetry wraps provider so each Complete call honours policy.
func WithRetry(provider Provider, policy retry.Policy, logger *slog.Logger) Provider {
	return &RetryingProvider{provider: provider, policy: policy, logger: logger}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return retry.Do(ctx, r.policy, "llm:"+r.provider.Name(), r.logger, func(ctx context.Context) (*CompletionResponse, error) {
		return r.provider.Complete(ctx, req)
	})
}
