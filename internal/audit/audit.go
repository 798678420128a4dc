// Package audit records who changed what in a session: phase changes,
// recorded facts, decisions, rejected actions, and document outcomes.
package audit

import (
	"context"
	"time"
)

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorOperator     ActorType = "operator"
	ActorSystem       ActorType = "system"
	ActorCollaborator ActorType = "collaborator"
)

// Action describes what was done.
type Action string

const (
	ActionSessionCreated    Action = "session_created"
	ActionPhaseChanged      Action = "phase_changed"
	ActionFactRecorded      Action = "fact_recorded"
	ActionFactRevised       Action = "fact_revised"
	ActionOptionsPresented  Action = "options_presented"
	ActionDecisionCommitted Action = "decision_committed"
	ActionDecisionCleared   Action = "decision_cleared"
	ActionActionRejected    Action = "action_rejected"
	ActionDocumentGenerated Action = "document_generated"
	ActionDocumentRejected  Action = "document_rejected"
	ActionDocumentStale     Action = "document_stale"
	ActionCollaboratorFail  Action = "collaborator_failed"
	ActionSessionFinalized  Action = "session_finalized"
	ActionSessionAbandoned  Action = "session_abandoned"
	ActionSessionResumed    Action = "session_resumed"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorType ActorType `json:"actor_type"`
	ActorID   string    `json:"actor_id,omitempty"`
	Action    Action    `json:"action"`
	SessionID string    `json:"session_id"`
	Phase     string    `json:"phase,omitempty"`
	// Subject is what the action touched: a fact key, option id, or epic id.
	Subject       string `json:"subject,omitempty"`
	Summary       string `json:"summary"`
	Detail        string `json:"detail,omitempty"`
	PreviousValue string `json:"previous_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
}

// Logger accepts audit entries. *Store implements it.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// Discard drops every entry.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(context.Context, Entry) error { return nil }
