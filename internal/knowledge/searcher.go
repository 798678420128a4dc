// Package knowledge is the knowledge-search collaborator used to gather
// candidate solution approaches. Every implementation is best effort: it may
// return nothing, fail, or time out, and callers treat that as an empty answer.
package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/auto-analyst/internal/retry"
)

// Result is one candidate approach returned by a search.
type Result struct {
	Summary     string    `json:"summary"`
	SourceRef   string    `json:"source_ref"`
	Rationale   string    `json:"rationale,omitempty"`
	Tradeoffs   []string  `json:"tradeoffs,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Similarity  float32   `json:"similarity,omitempty"`
}

// Searcher answers a free-text query with ranked results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
	Name() string
}

// Multi queries several searchers concurrently and concatenates their
// results in searcher order. It fails only when every searcher fails.
type Multi []Searcher

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m Multi) Search(ctx context.Context, query string) ([]Result, error) {
	results := make([][]Result, len(m))
	errs := make([]error, len(m))

	var wg sync.WaitGroup
	for i, s := range m {
		wg.Add(1)
		go func(i int, s Searcher) {
			defer wg.Done()
			results[i], errs[i] = s.Search(ctx, query)
		}(i, s)
	}
	wg.Wait()

	var out []Result
	failed := 0
	for i := range m {
		if errs[i] != nil {
			failed++
			continue
		}
		out = append(out, results[i]...)
	}
	if failed > 0 && failed == len(m) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

type retrying struct {
	searcher Searcher
	policy   retry.Policy
	logger   *slog.Logger
}

// WithRetry bounds every search with policy. Exhaustion yields a
// *retry.CollaboratorTimeoutError.
func WithRetry(s Searcher, policy retry.Policy, logger *slog.Logger) Searcher {
	return &retrying{searcher: s, policy: policy, logger: logger}
}

func (r *retrying) Name() string { return r.searcher.Name() }

func (r *retrying) Search(ctx context.Context, query string) ([]Result, error) {
	return retry.Do(ctx, r.policy, "search:"+r.searcher.Name(), r.logger, func(ctx context.Context) ([]Result, error) {
		return r.searcher.Search(ctx, query)
	})
}
