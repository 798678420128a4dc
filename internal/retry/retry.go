// Package retry bounds calls to external collaborators (language model,
// knowledge search) with a per-attempt timeout and a small retry budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrCollaboratorTimeout is matched by every CollaboratorTimeoutError.
var ErrCollaboratorTimeout = errors.New("collaborator did not respond within the retry budget")

// CollaboratorTimeoutError reports that a collaborator call failed on every
// attempt of its retry budget.
type CollaboratorTimeoutError struct {
	Collaborator string
	Attempts     int
	Err          error
}

func (e *CollaboratorTimeoutError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Collaborator, e.Attempts, e.Err)
}

func (e *CollaboratorTimeoutError) Unwrap() []error {
	return []error{ErrCollaboratorTimeout, e.Err}
}

// IsCollaboratorTimeout reports whether err came from an exhausted retry budget.
func IsCollaboratorTimeout(err error) bool {
	return errors.Is(err, ErrCollaboratorTimeout)
}

// Permanent marks an error as not worth retrying (bad request, malformed
// configuration). Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Policy describes how a collaborator call is bounded.
type Policy struct {
	// Timeout applies to each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles on each retry.
	Backoff time.Duration
}

// DefaultPolicy allows two retries with exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    20 * time.Second,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}
}

// after is replaced in tests so backoff does not sleep.
var after = time.After

// Do calls fn until it succeeds, returns a permanent error, the parent
// context ends, or the retry budget is exhausted. Each attempt gets its own
// context bounded by p.Timeout.
func Do[T any](ctx context.Context, p Policy, name string, logger *slog.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = slog.Default()
	}

	attempts := p.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := p.Backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-after(backoff):
			}
		}

		result, err := call(ctx, p.Timeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		// The caller gave up (abandoned session, overall deadline): stop now.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		logger.Warn("collaborator call failed",
			"collaborator", name,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"error", err,
		)
	}

	return zero, &CollaboratorTimeoutError{Collaborator: name, Attempts: attempts, Err: lastErr}
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
