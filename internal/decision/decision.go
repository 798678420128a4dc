// Package decision records the operator's committed choice for the Solution
// phase. A slot holds at most one decision; only the revise path clears it.
package decision

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/auto-analyst/internal/options"
)

var timeNow = func() time.Time { return time.Now().UTC() }

var (
	// ErrInvalidSelection is matched by every InvalidSelectionError.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrAlreadyCommitted is matched by every AlreadyCommittedError.
	ErrAlreadyCommitted = errors.New("decision already committed")
)

// InvalidSelectionError reports a selection that names no presented option
// and carries no custom text.
type InvalidSelectionError struct {
	OptionID string
	Reason   string
}

func (e *InvalidSelectionError) Error() string {
	if e.OptionID == "" {
		return fmt.Sprintf("invalid selection: %s", e.Reason)
	}
	return fmt.Sprintf("invalid selection %q: %s", e.OptionID, e.Reason)
}

func (e *InvalidSelectionError) Unwrap() error { return ErrInvalidSelection }

// AlreadyCommittedError reports a second commit without an intervening revise.
type AlreadyCommittedError struct {
	Existing Decision
}

func (e *AlreadyCommittedError) Error() string {
	return fmt.Sprintf("decision already committed at %s: %s", e.Existing.CommittedAt.Format(time.RFC3339), e.Existing.Summary)
}

func (e *AlreadyCommittedError) Unwrap() error { return ErrAlreadyCommitted }

// IsInvalidSelection reports whether err is an InvalidSelectionError.
func IsInvalidSelection(err error) bool { return errors.Is(err, ErrInvalidSelection) }

// IsAlreadyCommitted reports whether err is an AlreadyCommittedError.
func IsAlreadyCommitted(err error) bool { return errors.Is(err, ErrAlreadyCommitted) }

// Selection is what the operator picked: a presented option, or free text.
type Selection struct {
	OptionID   string `json:"option_id,omitempty"`
	CustomText string `json:"custom_text,omitempty"`
}

// Decision is the committed choice. Basis records the version of every
// analysis fact the decision was made on, so later revisions can tell
// whether the decision still holds.
type Decision struct {
	OptionID    string         `json:"option_id,omitempty"`
	CustomText  string         `json:"custom_text,omitempty"`
	Topic       string         `json:"topic,omitempty"`
	Summary     string         `json:"summary"`
	Rationale   string         `json:"rationale,omitempty"`
	Tradeoffs   []string       `json:"tradeoffs,omitempty"`
	SourceRefs  []string       `json:"source_refs,omitempty"`
	CommittedAt time.Time      `json:"committed_at"`
	Basis       map[string]int `json:"basis,omitempty"`
}

// Custom reports whether the decision overrides every presented option.
func (d Decision) Custom() bool { return d.CustomText != "" }

// DependsOn reports whether key was part of the decision's basis.
func (d Decision) DependsOn(key string) bool {
	_, ok := d.Basis[key]
	return ok
}

// Cleared is a decision removed by a revision.
type Cleared struct {
	Decision  Decision  `json:"decision"`
	Reason    string    `json:"reason"`
	ClearedAt time.Time `json:"cleared_at"`
}

// Slot holds the session's decision. The zero value is an empty slot.
type Slot struct {
	Current *Decision `json:"current,omitempty"`
	History []Cleared `json:"history,omitempty"`
}

// Committed reports whether the slot is filled.
func (s *Slot) Committed() bool { return s.Current != nil }

// Commit fills the slot from a selection among the presented options. Free
// text always wins over an option id. The slot is unchanged on error.
func (s *Slot) Commit(presented []options.SolutionOption, sel Selection, basis map[string]int) (Decision, error) {
	if s.Current != nil {
		return Decision{}, &AlreadyCommittedError{Existing: *s.Current}
	}

	text := strings.TrimSpace(sel.CustomText)
	id := strings.TrimSpace(sel.OptionID)

	d := Decision{CommittedAt: timeNow(), Basis: copyBasis(basis)}
	switch {
	case text != "":
		d.CustomText = text
		d.Summary = text
		d.Topic = "custom"
	case id == "":
		return Decision{}, &InvalidSelectionError{Reason: "choose an option or describe your own approach"}
	case id == options.CustomOptionID:
		return Decision{}, &InvalidSelectionError{OptionID: id, Reason: "describe your own approach"}
	default:
		opt, ok := find(presented, id)
		if !ok {
			return Decision{}, &InvalidSelectionError{OptionID: id, Reason: "not among the presented options"}
		}
		d.OptionID = opt.ID
		d.Topic = opt.Topic
		d.Summary = opt.Summary
		d.Rationale = opt.Rationale
		d.Tradeoffs = append([]string(nil), opt.Tradeoffs...)
		d.SourceRefs = append([]string(nil), opt.SourceRefs...)
	}

	s.Current = &d
	return d, nil
}

// Clear empties the slot and keeps the old decision in History. It returns
// false when there was nothing to clear.
func (s *Slot) Clear(reason string) bool {
	if s.Current == nil {
		return false
	}
	s.History = append(s.History, Cleared{Decision: *s.Current, Reason: reason, ClearedAt: timeNow()})
	s.Current = nil
	return true
}

func find(presented []options.SolutionOption, id string) (options.SolutionOption, bool) {
	for _, o := range presented {
		if o.ID == id {
			return o, true
		}
	}
	return options.SolutionOption{}, false
}

func copyBasis(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
