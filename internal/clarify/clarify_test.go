package clarify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/llm/llmtest"
)

func TestNextStepAsksInPriorityOrder(t *testing.T) {
	e := NewEngine(nil)
	store := facts.New()

	step := e.NextStep(facts.NamespaceAnalysis, store)
	require.False(t, step.Done)
	assert.Equal(t, KeyProblemStatement, step.Requirement.Key)

	store.Record(KeyProblemStatement, "ordering by phone is slow", facts.SourceOperator)
	store.Record(KeyGoals, "orders in under a minute", facts.SourceOperator)
	store.Record(KeyTargetUsers, "neighbourhood bakeries", facts.SourceOperator)
	store.Record(KeyUserRoles, "customer, baker", facts.SourceOperator)

	// Problem and actors are known but no feature list: ask for features.
	step = e.NextStep(facts.NamespaceAnalysis, store)
	require.False(t, step.Done)
	assert.Equal(t, KeyCoreFeatures, step.Requirement.Key)
	assert.Equal(t, CategoryCoreFeatures, step.Requirement.Category)
}

func TestNextStepIsIdempotent(t *testing.T) {
	e := NewEngine(nil)
	store := facts.New()
	store.Record(KeyProblemStatement, "x", facts.SourceOperator)

	first := e.NextStep(facts.NamespaceAnalysis, store)
	second := e.NextStep(facts.NamespaceAnalysis, store)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Question(), second.Question())
}

func TestNextStepDoneWhenAllPresent(t *testing.T) {
	e := NewEngine([]string{KeyProblemStatement, KeyUserRoles})
	store := facts.New()
	store.Record(KeyUserRoles, "customer", facts.SourceOperator)
	assert.Equal(t, KeyProblemStatement, e.NextStep(facts.NamespaceAnalysis, store).Requirement.Key)

	store.Record(KeyProblemStatement, "x", facts.SourceOperator)
	step := e.NextStep(facts.NamespaceAnalysis, store)
	assert.True(t, step.Done)
	assert.Empty(t, step.Question())
}

func TestEmptyValueDoesNotSatisfyRequirement(t *testing.T) {
	e := NewEngine([]string{KeyProblemStatement})
	store := facts.New()
	store.Record(KeyProblemStatement, "first", facts.SourceOperator)
	store.Record(KeyProblemStatement, "", facts.SourceOperator)
	assert.False(t, e.NextStep(facts.NamespaceAnalysis, store).Done)
}

func TestPhasesWithoutChecklistAreDone(t *testing.T) {
	e := NewEngine(nil)
	assert.True(t, e.NextStep(facts.NamespaceSolution, facts.New()).Done)
}

func TestNewChecklistOrdersByCategory(t *testing.T) {
	list := NewChecklist([]string{"analysis.budget", KeyPaymentModel, KeyProblemStatement, KeyUserRoles, KeyPaymentModel})
	require.Len(t, list, 4)
	assert.Equal(t, KeyProblemStatement, list[0].Key)
	assert.Equal(t, KeyUserRoles, list[1].Key)
	assert.Equal(t, KeyPaymentModel, list[2].Key)
	assert.Equal(t, "analysis.budget", list[3].Key)
	assert.Equal(t, "Please describe the budget.", list[3].Question)
}

func TestAnswerRecordsFactForAskedKey(t *testing.T) {
	e := NewEngine(nil)
	store := facts.New()
	step := e.NextStep(facts.NamespaceAnalysis, store)

	f, err := e.Answer(store, step, "  phone orders get lost  ")
	require.NoError(t, err)
	assert.Equal(t, KeyProblemStatement, f.Key)
	assert.Equal(t, "phone orders get lost", store.Value(KeyProblemStatement))
}

func TestAnswerRejectsEmptyReply(t *testing.T) {
	e := NewEngine(nil)
	store := facts.New()
	step := e.NextStep(facts.NamespaceAnalysis, store)

	_, err := e.Answer(store, step, "   ")
	require.Error(t, err)
	assert.True(t, IsIncompleteInput(err))
	assert.Equal(t, 0, store.Len())

	// Asking again yields the same question.
	assert.Equal(t, step, e.NextStep(facts.NamespaceAnalysis, store))
}

func TestCoverage(t *testing.T) {
	e := NewEngine([]string{KeyProblemStatement, KeyGoals})
	store := facts.New()
	store.Record(KeyGoals, "x", facts.SourceOperator)
	c := e.Coverage(facts.NamespaceAnalysis, store)
	assert.Equal(t, 1, c.Covered)
	assert.Equal(t, 2, c.Total)
	assert.Equal(t, []string{KeyProblemStatement}, c.Missing)
}

func TestExtractorKeepsOnlyOpenChecklistKeys(t *testing.T) {
	provider := llmtest.New(`{"facts": [
		{"key": "analysis.payment_model", "value": "cash on pickup"},
		{"key": "analysis.problem_statement", "value": "overwrite attempt"},
		{"key": "analysis.favourite_colour", "value": "blue"},
		{"key": "analysis.fulfillment_model", "value": "  "}
	]}`)
	e := NewEngine(nil)
	store := facts.New()
	store.Record(KeyProblemStatement, "phone orders get lost", facts.SourceOperator)

	x := NewExtractor(provider, "m", nil)
	got, err := x.Extract(context.Background(), e.Checklist(facts.NamespaceAnalysis), store, "we are a bakery, customers pay cash on pickup")
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Key: KeyPaymentModel, Value: "cash on pickup"}}, got)
}

func TestExtractorWithoutProvider(t *testing.T) {
	x := NewExtractor(nil, "", nil)
	got, err := x.Extract(context.Background(), NewChecklist(DefaultKeys()), facts.New(), "anything")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
