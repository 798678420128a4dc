package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := after
	after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	t.Cleanup(func() { after = orig })
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	noSleep(t)
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 2}, "search", nil, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	noSleep(t)
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 2}, "llm", nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("503")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsCollaboratorTimeout(err))

	var cte *CollaboratorTimeoutError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, "llm", cte.Collaborator)
	assert.Equal(t, 3, cte.Attempts)
}

func TestDoPermanentErrorStopsImmediately(t *testing.T) {
	noSleep(t)
	bad := errors.New("invalid api key")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 2}, "llm", nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(bad)
	})
	assert.ErrorIs(t, err, bad)
	assert.False(t, IsCollaboratorTimeout(err))
	assert.Equal(t, 1, calls)
}

func TestDoAppliesPerAttemptTimeout(t *testing.T) {
	noSleep(t)
	p := Policy{Timeout: 10 * time.Millisecond, MaxRetries: 1}
	_, err := Do(context.Background(), p, "search", nil, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, IsCollaboratorTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoStopsWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxRetries: 5, Backoff: time.Hour}, "search", nil, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
