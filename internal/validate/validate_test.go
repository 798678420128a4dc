package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
)

func goodStory(id, epic string) backlog.Story {
	return backlog.Story{
		ID:     id,
		EpicID: epic,
		Title:  "As a customer, I want to pay by card, so that I can order without calling",
		AcceptanceCriteria: []backlog.Criterion{
			{Given: "a filled basket", When: "I pay with a valid card", Then: "the order is confirmed"},
		},
		Estimate:  "3",
		Priority:  "high",
		DependsOn: []string{},
	}
}

func rulesOf(vs []backlog.Violation) []string {
	var out []string
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func TestBenefitForm(t *testing.T) {
	assert.True(t, BenefitForm("As a customer, I want to pay by card, so that I can order online"))
	assert.True(t, BenefitForm("as an admin, i want reports, so that I see sales"))
	assert.False(t, BenefitForm("As a customer, I want to pay by card"))
	assert.False(t, BenefitForm("Pay by card"))
	assert.False(t, BenefitForm("I want to pay, so that it works"))
}

func TestValidateAcceptsCleanDraft(t *testing.T) {
	a := goodStory("epic-checkout/story-1", "epic-checkout")
	b := goodStory("epic-checkout/story-2", "epic-checkout")
	b.DependsOn = []string{a.ID}

	res := Validate([]backlog.Epic{{ID: "epic-checkout", Title: "Checkout", StoryIDs: []string{a.ID, b.ID}}}, []backlog.Story{a, b})
	assert.Empty(t, res.Blocking)
	assert.NoError(t, res.Err())
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, []string{a.ID, b.ID}, res.Accepted[0].StoryIDs)
	for _, s := range res.Stories {
		assert.Equal(t, backlog.StatusValidated, s.Status)
	}
	assert.Equal(t, []string{RuleMissingDependencies}, rulesOf(res.Advisory), "first story has no links")
}

func TestValidateEpicWithoutStory(t *testing.T) {
	res := Validate([]backlog.Epic{{ID: "epic-checkout", Title: "Checkout"}}, nil)
	require.Len(t, res.Blocking, 1)
	assert.Equal(t, RuleEpicWithoutStory, res.Blocking[0].Rule)
	assert.Equal(t, "epic-checkout", res.Blocking[0].EpicID)
	assert.Empty(t, res.Accepted)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, IsStructuralViolation(err))
}

func TestValidateRejectsBadStoriesAndKeepsThem(t *testing.T) {
	good := goodStory("epic-a/story-1", "epic-a")
	badTitle := goodStory("epic-a/story-2", "epic-a")
	badTitle.Title = "Pay by card"
	noCriteria := goodStory("epic-b/story-1", "epic-b")
	noCriteria.AcceptanceCriteria = nil
	partial := goodStory("epic-b/story-2", "epic-b")
	partial.AcceptanceCriteria = []backlog.Criterion{{Given: "a basket", Then: "it works"}}

	epics := []backlog.Epic{{ID: "epic-a", Title: "A"}, {ID: "epic-b", Title: "B"}}
	stories := []backlog.Story{good, badTitle, noCriteria, partial}
	res := Validate(epics, stories)

	assert.ElementsMatch(t, []string{RuleTitleNotBenefitForm, RuleMissingCriteria, RuleCriterionNotGWT}, rulesOf(res.Blocking))
	require.Len(t, res.Stories, 4)
	assert.Equal(t, backlog.StatusValidated, res.Stories[0].Status)
	assert.Equal(t, backlog.StatusRejected, res.Stories[1].Status)
	assert.Len(t, res.Rejected(), 3)

	require.Len(t, res.Accepted, 1, "epic-b has no validated story left")
	assert.Equal(t, "epic-a", res.Accepted[0].ID)
	assert.Equal(t, []string{good.ID}, res.Accepted[0].StoryIDs)

	assert.Empty(t, stories[1].Status, "input stories are not modified")
}

func TestValidateStoryWithUnknownEpic(t *testing.T) {
	s := goodStory("ghost/story-1", "ghost")
	res := Validate(nil, []backlog.Story{s})
	assert.Equal(t, []string{RuleStoryWithoutEpic}, rulesOf(res.Blocking))
	assert.Equal(t, backlog.StatusRejected, res.Stories[0].Status)
}

func TestValidateAdvisoryGaps(t *testing.T) {
	s := goodStory("epic-a/story-1", "epic-a")
	s.Estimate = ""
	s.Priority = " "
	s.DependsOn = []string{"epic-z/story-9"}

	res := Validate([]backlog.Epic{{ID: "epic-a"}}, []backlog.Story{s})
	assert.Empty(t, res.Blocking)
	assert.ElementsMatch(t, []string{RuleMissingEstimate, RuleMissingPriority, RuleUnknownDependency}, rulesOf(res.Advisory))
	for _, v := range res.Advisory {
		assert.Equal(t, backlog.SeverityAdvisory, v.Severity)
	}
	assert.Len(t, res.Accepted, 1, "advisory gaps do not block")
}

func TestValidateBrief(t *testing.T) {
	full := backlog.ProductBrief{
		Summary:          "Online ordering for a bakery",
		ProblemStatement: "Orders only by phone",
		TargetUsers:      []string{"customers"},
		Goals:            []string{"online orders"},
		Scope:            []string{"Checkout"},
	}
	assert.Empty(t, ValidateBrief(full))

	vs := ValidateBrief(backlog.ProductBrief{Summary: "x"})
	assert.Len(t, vs, 4)
	for _, v := range vs {
		assert.Equal(t, RuleBriefMissingField, v.Rule)
		assert.Equal(t, backlog.SeverityBlocking, v.Severity)
	}
}
