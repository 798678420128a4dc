package options

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/knowledge"
)

// Config bounds and weights option generation.
type Config struct {
	// MaxOptions is K, the most options ever presented at once.
	MaxOptions          int
	Weights             Weights
	SimilarityThreshold float64
	Topics              []Topic
	// QueryTimeout bounds one sub-query including its retries.
	QueryTimeout time.Duration
	// Deadline bounds the whole fan-out; sub-queries still running are dropped.
	Deadline time.Duration
}

// DefaultConfig returns K=4 with relevance weighted over simplicity.
func DefaultConfig() Config {
	return Config{
		MaxOptions:          4,
		Weights:             Weights{Relevance: 0.7, Simplicity: 0.3},
		SimilarityThreshold: 0.6,
		Topics:              DefaultTopics(),
		QueryTimeout:        30 * time.Second,
		Deadline:            45 * time.Second,
	}
}

// Progress receives fan-out progress. progress.Reporter satisfies it.
type Progress interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// Proposal is the outcome of one generation round.
type Proposal struct {
	// Presented holds at most MaxOptions options, best first.
	Presented []SolutionOption `json:"presented"`
	// Considered holds every option that survived deduplication.
	Considered []SolutionOption `json:"considered"`
	Queries    []Query          `json:"queries"`
	Failed     []string         `json:"failed,omitempty"`
}

// Generator fans queries out to a knowledge searcher and ranks the results.
type Generator struct {
	searcher knowledge.Searcher
	cfg      Config
	logger   *slog.Logger
	progress Progress
}

// NewGenerator creates a Generator. Zero config fields take their defaults.
func NewGenerator(searcher knowledge.Searcher, cfg Config, logger *slog.Logger) *Generator {
	def := DefaultConfig()
	if cfg.MaxOptions <= 0 {
		cfg.MaxOptions = def.MaxOptions
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = def.Topics
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{searcher: searcher, cfg: cfg, logger: logger}
}

// SetProgress attaches a progress reporter for subsequent proposals.
func (g *Generator) SetProgress(p Progress) { g.progress = p }

// Basis returns the current version of every fact the queries depend on.
// Keys without a fact are recorded with version 0.
func (g *Generator) Basis(store *facts.Store) map[string]int {
	basis := make(map[string]int)
	for _, k := range BasisKeys(g.cfg.Topics) {
		basis[k] = store.Version(k)
	}
	return basis
}

// Propose runs one generation round over the analysis facts.
func (g *Generator) Propose(ctx context.Context, store *facts.Store) (Proposal, error) {
	return g.propose(ctx, store, false)
}

// Widen reruns generation with constraint terms dropped from every query.
func (g *Generator) Widen(ctx context.Context, store *facts.Store) (Proposal, error) {
	return g.propose(ctx, store, true)
}

func (g *Generator) propose(ctx context.Context, store *facts.Store, widened bool) (Proposal, error) {
	queries := buildQueries(g.cfg.Topics, store, widened)
	raw, failed := g.fanOut(ctx, queries)
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}

	vocab := make(map[string]map[string]bool, len(g.cfg.Topics))
	for _, t := range g.cfg.Topics {
		vocab[t.Name] = constraintWords(t, store)
	}
	var candidates []SolutionOption
	for _, tr := range raw {
		summary := strings.TrimSpace(tr.result.Summary)
		if summary == "" {
			continue
		}
		o := SolutionOption{
			ID:          optionID(tr.topic, summary),
			Topic:       tr.topic,
			Summary:     summary,
			Rationale:   strings.TrimSpace(tr.result.Rationale),
			Tradeoffs:   nonEmpty(tr.result.Tradeoffs),
			SourceRefs:  nonEmpty([]string{tr.result.SourceRef}),
			PublishedAt: tr.result.PublishedAt,
		}
		score(&o, vocab[tr.topic], g.cfg.Weights)
		candidates = append(candidates, o)
	}

	sortRanked(candidates)
	considered := dedupe(candidates, g.cfg.SimilarityThreshold)

	p := Proposal{Considered: considered, Queries: queries, Failed: failed}
	if len(considered) == 0 {
		return p, &InsufficientOptionsError{Queries: len(queries), Failed: len(failed), Widened: widened}
	}
	k := min(g.cfg.MaxOptions, len(considered))
	p.Presented = append([]SolutionOption(nil), considered[:k]...)

	g.logger.Info("solution options proposed",
		"queries", len(queries),
		"failed", len(failed),
		"candidates", len(candidates),
		"considered", len(considered),
		"presented", k,
		"widened", widened,
	)
	return p, nil
}

type topicResult struct {
	topic  string
	result knowledge.Result
}

// fanOut runs every query concurrently under the overall deadline. Failed
// or late sub-queries contribute nothing; their topics are returned in failed.
func (g *Generator) fanOut(ctx context.Context, queries []Query) ([]topicResult, []string) {
	deadlineCtx, cancel := context.WithTimeout(ctx, g.cfg.Deadline)
	defer cancel()

	if g.progress != nil {
		g.progress.Start(len(queries))
		defer g.progress.Finish()
	}

	var (
		mu       sync.Mutex
		closed   bool
		done     int
		answered = make([]bool, len(queries))
		results  = make([][]knowledge.Result, len(queries))
		wg       sync.WaitGroup
	)
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q Query) {
			defer wg.Done()
			qctx, qcancel := context.WithTimeout(deadlineCtx, g.cfg.QueryTimeout)
			defer qcancel()

			res, err := g.searcher.Search(qctx, q.Text)

			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			done++
			if err != nil {
				g.logger.Warn("option query failed", "topic", q.Topic, "error", err)
			} else {
				answered[i] = true
				results[i] = res
			}
			if g.progress != nil {
				g.progress.Update(done, "searched "+q.Topic)
			}
		}(i, q)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-deadlineCtx.Done():
		g.logger.Warn("option fan-out deadline reached", "deadline", g.cfg.Deadline)
	}

	mu.Lock()
	defer mu.Unlock()
	closed = true

	var out []topicResult
	var failed []string
	for i, q := range queries {
		if !answered[i] {
			failed = append(failed, q.Topic)
			continue
		}
		for _, r := range results[i] {
			out = append(out, topicResult{topic: q.Topic, result: r})
		}
	}
	return out, failed
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
