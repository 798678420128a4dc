package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-analyst/internal/options"
)

func presented() []options.SolutionOption {
	return []options.SolutionOption{
		{ID: "opt-stripe", Topic: "payment", Summary: "Stripe Checkout", Tradeoffs: []string{"fee"}, SourceRefs: []string{"note:stripe.md"}},
		{ID: "opt-cod", Topic: "payment", Summary: "Cash on delivery"},
		options.CustomOption(),
	}
}

func fixedClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
	return now
}

func TestCommitPresentedOption(t *testing.T) {
	now := fixedClock(t)
	var slot Slot
	basis := map[string]int{"analysis.payment_model": 2}

	d, err := slot.Commit(presented(), Selection{OptionID: "opt-stripe"}, basis)
	require.NoError(t, err)
	assert.Equal(t, "opt-stripe", d.OptionID)
	assert.Equal(t, "Stripe Checkout", d.Summary)
	assert.Equal(t, []string{"note:stripe.md"}, d.SourceRefs)
	assert.Equal(t, now, d.CommittedAt)
	assert.True(t, d.DependsOn("analysis.payment_model"))
	assert.False(t, d.Custom())
	assert.True(t, slot.Committed())

	basis["analysis.payment_model"] = 3
	assert.Equal(t, 2, slot.Current.Basis["analysis.payment_model"], "basis is copied")
}

func TestCommitCustomTextOverridesID(t *testing.T) {
	var slot Slot
	d, err := slot.Commit(presented(), Selection{OptionID: "opt-unknown", CustomText: "  Pay at pickup  "}, nil)
	require.NoError(t, err)
	assert.True(t, d.Custom())
	assert.Equal(t, "Pay at pickup", d.Summary)
	assert.Empty(t, d.OptionID)
}

func TestCommitRejectsInvalidSelections(t *testing.T) {
	cases := []struct {
		name string
		sel  Selection
	}{
		{"unknown id", Selection{OptionID: "opt-nope"}},
		{"empty", Selection{}},
		{"custom without text", Selection{OptionID: options.CustomOptionID}},
		{"whitespace text", Selection{CustomText: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var slot Slot
			_, err := slot.Commit(presented(), tc.sel, nil)
			require.Error(t, err)
			assert.True(t, IsInvalidSelection(err))
			assert.False(t, slot.Committed())
		})
	}
}

func TestCommitTwiceLeavesDecisionUnchanged(t *testing.T) {
	var slot Slot
	first, err := slot.Commit(presented(), Selection{OptionID: "opt-cod"}, nil)
	require.NoError(t, err)

	_, err = slot.Commit(presented(), Selection{OptionID: "opt-stripe"}, nil)
	require.Error(t, err)
	assert.True(t, IsAlreadyCommitted(err))

	var ace *AlreadyCommittedError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, "opt-cod", ace.Existing.OptionID)
	assert.Equal(t, first, *slot.Current)
}

func TestClearMovesDecisionToHistory(t *testing.T) {
	fixedClock(t)
	var slot Slot
	assert.False(t, slot.Clear("nothing"))

	_, err := slot.Commit(presented(), Selection{OptionID: "opt-cod"}, nil)
	require.NoError(t, err)
	assert.True(t, slot.Clear("payment_model changed"))
	assert.False(t, slot.Committed())
	require.Len(t, slot.History, 1)
	assert.Equal(t, "payment_model changed", slot.History[0].Reason)

	_, err = slot.Commit(presented(), Selection{OptionID: "opt-stripe"}, nil)
	assert.NoError(t, err, "a cleared slot accepts a new commit")
}
