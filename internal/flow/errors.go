package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrFinalized is returned for any mutation of a finalized session.
	ErrFinalized = errors.New("session is finalized")
	// ErrAbandoned is returned for turns on an abandoned session that has
	// not been resumed.
	ErrAbandoned = errors.New("session is abandoned")
	// ErrInvariant is matched by every InvariantError.
	ErrInvariant = errors.New("invariant violated")
)

// InvariantError reports state that must never occur. The turn fails and the
// session keeps its last consistent state.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %q violated: %s", e.Invariant, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// IsInvariant reports whether err is an InvariantError.
func IsInvariant(err error) bool { return errors.Is(err, ErrInvariant) }
