package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Static is an in-memory Searcher. A query receives the results of every
// key it contains (case-insensitive). It is used for demos and tests.
type Static struct {
	Results map[string][]Result
	Err     error
	// Delay is waited (or the context's end) before answering.
	Delay time.Duration

	mu      sync.Mutex
	queries []string
}

func (s *Static) Name() string { return "static" }

func (s *Static) Search(ctx context.Context, query string) ([]Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	q := strings.ToLower(query)
	var out []Result
	keys := make([]string, 0, len(s.Results))
	for key := range s.Results {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(q, strings.ToLower(key)) {
			out = append(out, s.Results[key]...)
		}
	}
	return out, nil
}

// Queries returns every query received so far.
func (s *Static) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}
