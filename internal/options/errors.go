package options

import (
	"errors"
	"fmt"
)

// ErrInsufficientOptions is matched by every InsufficientOptionsError.
var ErrInsufficientOptions = errors.New("no solution options survived filtering")

// InsufficientOptionsError reports a proposal in which no candidate survived.
type InsufficientOptionsError struct {
	Queries int
	Failed  int
	Widened bool
}

func (e *InsufficientOptionsError) Error() string {
	scope := "query"
	if e.Widened {
		scope = "widened query"
	}
	return fmt.Sprintf("no solution options from %d %s(s) (%d failed)", e.Queries, scope, e.Failed)
}

func (e *InsufficientOptionsError) Unwrap() error { return ErrInsufficientOptions }

// IsInsufficientOptions reports whether err is an InsufficientOptionsError.
func IsInsufficientOptions(err error) bool {
	return errors.Is(err, ErrInsufficientOptions)
}
