package clarify

import (
	"errors"
	"fmt"
)

// ErrIncompleteInput is matched by every IncompleteInputError.
var ErrIncompleteInput = errors.New("incomplete input")

// IncompleteInputError means the operator's reply did not answer the
// pending question. The same question is asked again.
type IncompleteInputError struct {
	Key string
}

func (e *IncompleteInputError) Error() string {
	return fmt.Sprintf("no usable answer for %s", e.Key)
}

func (e *IncompleteInputError) Unwrap() error { return ErrIncompleteInput }

// IsIncompleteInput reports whether err is an IncompleteInputError.
func IsIncompleteInput(err error) bool {
	return errors.Is(err, ErrIncompleteInput)
}
