// Package session holds the aggregate state of one analyst conversation:
// its facts, phase, option pool, decision, and document generations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/decision"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/options"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Phase is where the conversation stands.
type Phase string

const (
	PhaseAnalysis      Phase = "analysis"
	PhaseSolution      Phase = "solution"
	PhaseDocumentation Phase = "documentation"
	PhaseFinalized     Phase = "finalized"
)

// Status is the session lifecycle, independent of phase.
type Status string

const (
	StatusActive    Status = "active"
	StatusFinalized Status = "finalized"
	StatusAbandoned Status = "abandoned"
	StatusArchived  Status = "archived"
)

// Transition is one entry of the phase log.
type Transition struct {
	From   Phase     `json:"from"`
	To     Phase     `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Document is one synthesized and validated generation of the brief and
// backlog. Epics holds only accepted epics; Stories holds every story with
// its validation status, so rejected stories stay on record.
type Document struct {
	Generation  int                  `json:"generation"`
	Fingerprint string               `json:"fingerprint"`
	Brief       backlog.ProductBrief `json:"brief"`
	Epics       []backlog.Epic       `json:"epics"`
	Stories     []backlog.Story      `json:"stories"`
	Omitted     []string             `json:"omitted,omitempty"`
	Blocking    []backlog.Violation  `json:"blocking,omitempty"`
	Advisory    []backlog.Violation  `json:"advisory,omitempty"`
	// Attempts counts synthesis runs spent on this generation.
	Attempts    int       `json:"attempts"`
	Approved    bool      `json:"approved"`
	Stale       bool      `json:"stale"`
	StaleReason string    `json:"stale_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Passed reports whether the generation has no blocking violations and at
// least one accepted epic.
func (d *Document) Passed() bool {
	return len(d.Blocking) == 0 && len(d.Epics) > 0
}

// AcceptedStories returns the validated stories of accepted epics in epic order.
func (d *Document) AcceptedStories() []backlog.Story {
	var out []backlog.Story
	for _, e := range d.Epics {
		out = append(out, backlog.StoriesFor(e, d.Stories)...)
	}
	return out
}

// BacklogGeneration returns the document as a persisted backlog generation.
func (d *Document) BacklogGeneration() backlog.Generation {
	violations := append(append([]backlog.Violation(nil), d.Blocking...), d.Advisory...)
	return backlog.Generation{Number: d.Generation, Epics: d.Epics, Stories: d.Stories, Violations: violations}
}

// Session is the aggregate for one conversation. It is mutated only by the
// session's single writer (see Registry.Do).
type Session struct {
	ID     string
	Phase  Phase
	Status Status
	Facts  *facts.Store

	// PendingKey is the fact key the last question asked for.
	PendingKey string
	// Presented lists the option ids currently offered, in display order.
	Presented []string
	// Options is the pool of every option considered, presented or not.
	Options []options.SolutionOption
	// Widened and FallbackUsed record how the current option set was obtained.
	Widened      bool
	FallbackUsed bool

	Decision    decision.Slot
	Documents   []Document
	Transitions []Transition

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns an empty active session in the Analysis phase.
func New() *Session {
	now := timeNow()
	return &Session{
		ID:        uuid.New().String(),
		Phase:     PhaseAnalysis,
		Status:    StatusActive,
		Facts:     facts.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MoveTo changes phase and records the transition. Moving to the current
// phase is a no-op.
func (s *Session) MoveTo(to Phase, reason string) {
	if s.Phase == to {
		return
	}
	now := timeNow()
	s.Transitions = append(s.Transitions, Transition{From: s.Phase, To: to, Reason: reason, At: now})
	s.Phase = to
	s.UpdatedAt = now
}

// Touch updates the modification time.
func (s *Session) Touch() { s.UpdatedAt = timeNow() }

// PresentedOptions resolves Presented against the pool.
func (s *Session) PresentedOptions() []options.SolutionOption {
	byID := make(map[string]options.SolutionOption, len(s.Options))
	for _, o := range s.Options {
		byID[o.ID] = o
	}
	out := make([]options.SolutionOption, 0, len(s.Presented))
	for _, id := range s.Presented {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Offer adds every option to the pool and presents presented in order.
func (s *Session) Offer(considered, presented []options.SolutionOption) {
	known := make(map[string]bool, len(s.Options))
	for _, o := range s.Options {
		known[o.ID] = true
	}
	for _, group := range [][]options.SolutionOption{considered, presented} {
		for _, o := range group {
			if !known[o.ID] {
				known[o.ID] = true
				s.Options = append(s.Options, o)
			}
		}
	}
	s.Presented = s.Presented[:0]
	for _, o := range presented {
		s.Presented = append(s.Presented, o.ID)
	}
}

// ClearOffer withdraws the presented options; the pool is kept.
func (s *Session) ClearOffer() {
	s.Presented = nil
	s.Widened = false
	s.FallbackUsed = false
}

// Document returns the latest document generation, or nil.
func (s *Session) Document() *Document {
	if len(s.Documents) == 0 {
		return nil
	}
	return &s.Documents[len(s.Documents)-1]
}

// AddDocument appends a generation numbered after the previous one.
func (s *Session) AddDocument(d Document) *Document {
	d.Generation = len(s.Documents) + 1
	if d.CreatedAt.IsZero() {
		d.CreatedAt = timeNow()
	}
	s.Documents = append(s.Documents, d)
	return s.Document()
}

// MarkStale flags the latest document as outdated. It reports whether there
// was a fresh document to mark.
func (s *Session) MarkStale(reason string) bool {
	d := s.Document()
	if d == nil || d.Stale {
		return false
	}
	d.Stale = true
	d.StaleReason = reason
	return true
}

// Closed reports whether the session accepts no further turns.
func (s *Session) Closed() bool {
	return s.Status == StatusFinalized || s.Status == StatusArchived
}

type snapshot struct {
	ID           string                   `json:"id"`
	Phase        Phase                    `json:"phase"`
	Status       Status                   `json:"status"`
	Facts        []facts.Fact             `json:"facts"`
	PendingKey   string                   `json:"pending_key,omitempty"`
	Presented    []string                 `json:"presented,omitempty"`
	Options      []options.SolutionOption `json:"options,omitempty"`
	Widened      bool                     `json:"widened,omitempty"`
	FallbackUsed bool                     `json:"fallback_used,omitempty"`
	Decision     decision.Slot            `json:"decision"`
	Documents    []Document               `json:"documents,omitempty"`
	Transitions  []Transition             `json:"transitions,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// Snapshot serializes everything needed to resume the session verbatim.
func (s *Session) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		ID:           s.ID,
		Phase:        s.Phase,
		Status:       s.Status,
		Facts:        s.Facts.All(),
		PendingKey:   s.PendingKey,
		Presented:    s.Presented,
		Options:      s.Options,
		Widened:      s.Widened,
		FallbackUsed: s.FallbackUsed,
		Decision:     s.Decision,
		Documents:    s.Documents,
		Transitions:  s.Transitions,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	})
}

// Restore rebuilds a session from Snapshot output.
func Restore(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding session snapshot: %w", err)
	}
	if snap.ID == "" {
		return nil, errors.New("session snapshot has no id")
	}
	store, err := facts.Restore(snap.Facts)
	if err != nil {
		return nil, fmt.Errorf("restoring facts of %s: %w", snap.ID, err)
	}
	return &Session{
		ID:           snap.ID,
		Phase:        snap.Phase,
		Status:       snap.Status,
		Facts:        store,
		PendingKey:   snap.PendingKey,
		Presented:    snap.Presented,
		Options:      snap.Options,
		Widened:      snap.Widened,
		FallbackUsed: snap.FallbackUsed,
		Decision:     snap.Decision,
		Documents:    snap.Documents,
		Transitions:  snap.Transitions,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}, nil
}

// Clone returns a deep copy through the snapshot encoding.
func (s *Session) Clone() (*Session, error) {
	data, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return Restore(data)
}

// Summary is the listing view of a session.
type Summary struct {
	ID        string    `json:"id"`
	Phase     Phase     `json:"phase"`
	Status    Status    `json:"status"`
	Facts     int       `json:"facts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summarize returns the listing view of s.
func (s *Session) Summarize() Summary {
	return Summary{ID: s.ID, Phase: s.Phase, Status: s.Status, Facts: s.Facts.Len(), CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}
