// Package facts holds the append-only record of information elicited from
// the operator. A later fact with the same key supersedes the earlier one for
// reads; every version stays in the history.
package facts

import (
	"errors"
	"strings"
	"time"
)

// Source identifies where a fact came from.
type Source string

const (
	SourceOperator  Source = "operator"
	SourceExtracted Source = "extracted"
	SourceSystem    Source = "system"
)

// Key namespaces.
const (
	NamespaceAnalysis      = "analysis"
	NamespaceSolution      = "solution"
	NamespaceDocumentation = "documentation"
)

// ErrEmptyKey is returned when recording a fact without a key.
var ErrEmptyKey = errors.New("fact key is required")

// Fact is one elicited, namespaced piece of information.
type Fact struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	Value        string    `json:"value"`
	Source       Source    `json:"source"`
	Version      int       `json:"version"`
	RecordedAt   time.Time `json:"recorded_at"`
	SupersededBy string    `json:"superseded_by,omitempty"`
}

// Key joins a namespace and a name: Key("analysis", "payment_model").
func Key(namespace, name string) string {
	return namespace + "." + name
}

// SplitKey returns the namespace and name of a key.
func SplitKey(key string) (namespace, name string) {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

// Current reports whether the fact has not been superseded.
func (f Fact) Current() bool { return f.SupersededBy == "" }
