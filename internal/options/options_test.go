package options

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/knowledge"
)

func bakeryFacts(t *testing.T) *facts.Store {
	t.Helper()
	s := facts.New()
	for key, value := range map[string]string{
		"analysis.problem_statement": "Neighbourhood bakery takes orders only by phone",
		"analysis.core_features":     "Catalog (customer), Checkout (customer), Order board (baker)",
		"analysis.payment_model":     "card online",
		"analysis.fulfillment_model": "own courier delivery",
		"analysis.non_functional":    "small budget, mobile web",
	} {
		_, err := s.Record(key, value, facts.SourceOperator)
		require.NoError(t, err)
	}
	return s
}

func bakerySearcher() *knowledge.Static {
	return &knowledge.Static{Results: map[string][]knowledge.Result{
		"payment approach": {
			{Summary: "Accept card payments via Stripe Checkout", SourceRef: "note:stripe.md", Tradeoffs: []string{"per-transaction fee"}},
			{Summary: "Stripe Checkout for card payment", SourceRef: "note:stripe-2.md", Tradeoffs: []string{"per-transaction fee"}},
			{Summary: "Invoice customers monthly by bank transfer", SourceRef: "note:invoice.md", Tradeoffs: []string{"slow cash flow", "manual reconciliation", "credit risk"}},
			{Summary: "   ", SourceRef: "note:blank.md"},
		},
		"fulfillment approach": {
			{Summary: "Own courier delivery with a daily route sheet", SourceRef: "note:courier.md"},
		},
		"product platform": {
			{Summary: "Mobile web storefront on a hosted shop builder", SourceRef: "note:shop.md", Tradeoffs: []string{"monthly subscription"}},
		},
	}}
}

func TestProposeRanksAndDedupes(t *testing.T) {
	g := NewGenerator(bakerySearcher(), Config{MaxOptions: 3}, nil)
	p, err := g.Propose(context.Background(), bakeryFacts(t))
	require.NoError(t, err)

	require.Len(t, p.Queries, 3)
	assert.Len(t, p.Considered, 4, "near-duplicate Stripe options merge, blank summary dropped")
	require.Len(t, p.Presented, 3)

	for i := 1; i < len(p.Presented); i++ {
		assert.GreaterOrEqual(t, p.Presented[i-1].Score, p.Presented[i].Score)
	}

	var stripe *SolutionOption
	for i := range p.Considered {
		if strings.Contains(p.Considered[i].Summary, "Stripe") {
			stripe = &p.Considered[i]
		}
	}
	require.NotNil(t, stripe)
	assert.ElementsMatch(t, []string{"note:stripe.md", "note:stripe-2.md"}, stripe.SourceRefs)

	last := p.Considered[len(p.Considered)-1]
	assert.Contains(t, last.Summary, "Invoice", "three tradeoffs and little constraint overlap rank last")
}

func TestProposeIDsAreStable(t *testing.T) {
	g := NewGenerator(bakerySearcher(), Config{}, nil)
	first, err := g.Propose(context.Background(), bakeryFacts(t))
	require.NoError(t, err)
	second, err := g.Propose(context.Background(), bakeryFacts(t))
	require.NoError(t, err)

	require.Equal(t, len(first.Presented), len(second.Presented))
	for i := range first.Presented {
		assert.Equal(t, first.Presented[i].ID, second.Presented[i].ID)
		assert.True(t, strings.HasPrefix(first.Presented[i].ID, "opt-"))
	}
}

func TestProposeAllQueriesFail(t *testing.T) {
	g := NewGenerator(&knowledge.Static{Err: errors.New("search offline")}, Config{}, nil)
	p, err := g.Propose(context.Background(), bakeryFacts(t))
	require.Error(t, err)
	assert.True(t, IsInsufficientOptions(err))

	var ioe *InsufficientOptionsError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, 3, ioe.Failed)
	assert.Len(t, p.Failed, 3)
	assert.Empty(t, p.Presented)
}

type topicFailing struct {
	inner   knowledge.Searcher
	failing string
}

func (s topicFailing) Name() string { return "topic-failing" }

func (s topicFailing) Search(ctx context.Context, q string) ([]knowledge.Result, error) {
	if strings.Contains(q, s.failing) {
		return nil, errors.New("upstream 503")
	}
	return s.inner.Search(ctx, q)
}

func TestProposePartialFailureContributesNothing(t *testing.T) {
	g := NewGenerator(topicFailing{inner: bakerySearcher(), failing: "payment approach"}, Config{}, nil)
	p, err := g.Propose(context.Background(), bakeryFacts(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"payment"}, p.Failed)
	for _, o := range p.Considered {
		assert.NotEqual(t, "payment", o.Topic)
	}
	assert.Len(t, p.Presented, 2)
}

func TestProposeOverallDeadline(t *testing.T) {
	slow := bakerySearcher()
	slow.Delay = time.Second
	g := NewGenerator(slow, Config{Deadline: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, err := g.Propose(context.Background(), bakeryFacts(t))
	assert.True(t, IsInsufficientOptions(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestProposeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGenerator(bakerySearcher(), Config{}, nil)
	_, err := g.Propose(ctx, bakeryFacts(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWidenDropsConstraints(t *testing.T) {
	s := bakerySearcher()
	g := NewGenerator(s, Config{}, nil)
	p, err := g.Widen(context.Background(), bakeryFacts(t))
	require.NoError(t, err)

	for _, q := range p.Queries {
		assert.True(t, q.Widened)
		assert.NotContains(t, q.Text, "constraint:")
		assert.NotContains(t, q.Text, "features:")
	}

	narrow := buildQueries(DefaultTopics(), bakeryFacts(t), false)
	assert.Contains(t, narrow[0].Text, "constraint: card online")
}

type recorder struct {
	total   int
	updates []string
	done    bool
}

func (r *recorder) Start(total int) { r.total = total }
func (r *recorder) Update(_ int, message string) { r.updates = append(r.updates, message) }
func (r *recorder) Finish() { r.done = true }

func TestProposeReportsProgress(t *testing.T) {
	g := NewGenerator(bakerySearcher(), Config{}, nil)
	rec := &recorder{}
	g.SetProgress(rec)

	_, err := g.Propose(context.Background(), bakeryFacts(t))
	require.NoError(t, err)
	assert.Equal(t, 3, rec.total)
	assert.Len(t, rec.updates, 3)
	assert.True(t, rec.done)
}

func TestSortRankedTieBreaks(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	opts := []SolutionOption{
		{ID: "opt-b", Score: 0.5, PublishedAt: older},
		{ID: "opt-c", Score: 0.5, PublishedAt: newer},
		{ID: "opt-a", Score: 0.5, PublishedAt: older},
		{ID: "opt-d", Score: 0.9},
	}
	sortRanked(opts)
	var ids []string
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"opt-d", "opt-c", "opt-a", "opt-b"}, ids)
}

func TestScoreWeights(t *testing.T) {
	constraints := tokenSet("card online")
	o := SolutionOption{Summary: "card online", Tradeoffs: []string{"fee"}}
	score(&o, constraints, Weights{Relevance: 0.7, Simplicity: 0.3})
	assert.InDelta(t, 1.0, o.Relevance, 1e-9)
	assert.InDelta(t, 0.5, o.Simplicity, 1e-9)
	assert.InDelta(t, 0.85, o.Score, 1e-9)
}

func TestJaccardOnNormalizedTokens(t *testing.T) {
	a := tokenSet("Accept card payments via Stripe Checkout")
	b := tokenSet("Stripe Checkout for card payment")
	assert.InDelta(t, 0.8, jaccard(a, b), 1e-9)
	assert.Equal(t, 1.0, jaccard(tokenSet(""), tokenSet("the and")))
}

func TestFallbackSet(t *testing.T) {
	fb := Fallback()
	require.Len(t, fb, 2)
	assert.True(t, fb[0].Generic)
	assert.Equal(t, GenericOptionID, fb[0].ID)
	assert.True(t, fb[1].Custom)
	assert.Equal(t, CustomOptionID, fb[1].ID)
}

func TestTopicsByName(t *testing.T) {
	topics := TopicsByName([]string{"payment", "", "loyalty_program"})
	require.Len(t, topics, 2)
	assert.Equal(t, []string{"analysis.payment_model"}, topics[0].ConstraintKeys)
	assert.Equal(t, "loyalty program approach", topics[1].Label)
}

func TestBasisCoversQueryFacts(t *testing.T) {
	g := NewGenerator(bakerySearcher(), Config{}, nil)
	store := bakeryFacts(t)
	_, err := store.Record("analysis.payment_model", "cash", facts.SourceOperator)
	require.NoError(t, err)

	basis := g.Basis(store)
	assert.Equal(t, 2, basis["analysis.payment_model"])
	assert.Equal(t, 1, basis["analysis.problem_statement"])
	assert.Contains(t, basis, "analysis.fulfillment_model")
	assert.NotContains(t, basis, "analysis.target_users")
}

func TestRelevanceIgnoresOtherTopicsConstraints(t *testing.T) {
	s := facts.New()
	for key, value := range map[string]string{
		"analysis.problem_statement": "Bakery takes orders only by phone",
		"analysis.core_features":     "Online catalog (customer), Order board (baker)",
		"analysis.payment_model":     "card online",
		"analysis.fulfillment_model": "pickup in store",
	} {
		_, err := s.Record(key, value, facts.SourceOperator)
		require.NoError(t, err)
	}
	searcher := &knowledge.Static{Results: map[string][]knowledge.Result{
		"payment approach": {
			{Summary: "Hosted card checkout", Rationale: "card online without storing card data", Tradeoffs: []string{"per-transaction fee"}},
			{Summary: "Pay at pickup terminal", Rationale: "customers pay in store", Tradeoffs: []string{"no prepayment", "no-shows"}},
		},
	}}
	g := NewGenerator(searcher, Config{Topics: TopicsByName([]string{"payment", "fulfillment"})}, nil)

	p, err := g.Propose(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, p.Presented, 2)

	hosted, terminal := p.Presented[0], p.Presented[1]
	assert.Equal(t, "Hosted card checkout", hosted.Summary)
	assert.InDelta(t, 2.0/7, hosted.Relevance, 1e-9)
	assert.InDelta(t, 1.0/5, terminal.Relevance, 1e-9, "pickup and store belong to the fulfillment constraint")
}
