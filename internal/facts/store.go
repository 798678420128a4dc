package facts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// Store is the in-memory fact log of one session. It is owned by the
// session's single writer and is not safe for concurrent mutation.
type Store struct {
	log   []Fact
	byKey map[string][]int
}

// New returns an empty store.
func New() *Store {
	return &Store{byKey: make(map[string][]int)}
}

// Restore rebuilds a store from a previously serialized ordered fact list.
func Restore(list []Fact) (*Store, error) {
	s := New()
	for i, f := range list {
		if f.Key == "" {
			return nil, fmt.Errorf("fact %d: %w", i, ErrEmptyKey)
		}
		s.byKey[f.Key] = append(s.byKey[f.Key], len(s.log))
		s.log = append(s.log, f)
	}
	return s, nil
}

// Record appends a fact. The previous version of the key, if any, is marked
// superseded by the new one.
func (s *Store) Record(key, value string, source Source) (Fact, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Fact{}, ErrEmptyKey
	}
	if source == "" {
		source = SourceOperator
	}

	f := Fact{
		ID:         ulid.Make().String(),
		Key:        key,
		Value:      strings.TrimSpace(value),
		Source:     source,
		Version:    1,
		RecordedAt: timeNow(),
	}

	if idx := s.byKey[key]; len(idx) > 0 {
		prev := idx[len(idx)-1]
		f.Version = s.log[prev].Version + 1
		s.log[prev].SupersededBy = f.ID
	}

	s.byKey[key] = append(s.byKey[key], len(s.log))
	s.log = append(s.log, f)
	return f, nil
}

// Current returns the latest version of key.
func (s *Store) Current(key string) (Fact, bool) {
	idx := s.byKey[key]
	if len(idx) == 0 {
		return Fact{}, false
	}
	return s.log[idx[len(idx)-1]], true
}

// Value returns the current value of key, or "".
func (s *Store) Value(key string) string {
	f, _ := s.Current(key)
	return f.Value
}

// Has reports whether key is present with a non-empty current value.
func (s *Store) Has(key string) bool {
	return s.Value(key) != ""
}

// Version returns the current version number of key, 0 if absent.
func (s *Store) Version(key string) int {
	f, _ := s.Current(key)
	return f.Version
}

// History returns every version of key, oldest first.
func (s *Store) History(key string) []Fact {
	idx := s.byKey[key]
	out := make([]Fact, len(idx))
	for i, j := range idx {
		out[i] = s.log[j]
	}
	return out
}

// All returns the full ordered log, superseded versions included.
func (s *Store) All() []Fact {
	out := make([]Fact, len(s.log))
	copy(out, s.log)
	return out
}

// Len returns the number of recorded facts.
func (s *Store) Len() int { return len(s.log) }

// Snapshot returns the current value of every key.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.byKey))
	for key := range s.byKey {
		out[key] = s.Value(key)
	}
	return out
}

// Namespace returns the current facts whose key lies in namespace, sorted by key.
func (s *Store) Namespace(namespace string) []Fact {
	prefix := namespace + "."
	var out []Fact
	for key := range s.byKey {
		if strings.HasPrefix(key, prefix) {
			f, _ := s.Current(key)
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Versions returns key -> current version for every key in namespace.
func (s *Store) Versions(namespace string) map[string]int {
	out := make(map[string]int)
	for _, f := range s.Namespace(namespace) {
		out[f.Key] = f.Version
	}
	return out
}
