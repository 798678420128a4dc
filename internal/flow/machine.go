// Package flow is the phase state machine of an analyst session. It owns
// every transition between Analysis, Solution, Documentation, and
// Finalized, and turns operator input into exactly one prompt per turn.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/clarify"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/options"
	"github.com/ziadkadry99/auto-analyst/internal/session"
	"github.com/ziadkadry99/auto-analyst/internal/synth"
)

// DefaultMaxRegenerations bounds synthesis retries after blocking violations.
const DefaultMaxRegenerations = 2

// Deps are the collaborators of the machine. Extractor and Audit are optional.
type Deps struct {
	Clarify   *clarify.Engine
	Extractor *clarify.Extractor
	Options   *options.Generator
	Synth     *synth.Synthesizer
	Audit     audit.Logger
	Logger    *slog.Logger
}

// Machine drives sessions through their phases. It holds no session state
// and may be shared; callers serialize turns per session.
type Machine struct {
	clarify          *clarify.Engine
	extractor        *clarify.Extractor
	options          *options.Generator
	synth            *synth.Synthesizer
	audit            audit.Logger
	logger           *slog.Logger
	maxRegenerations int
}

// New creates a Machine. maxRegenerations < 0 disables regeneration; 0
// uses the default.
func New(deps Deps, maxRegenerations int) *Machine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = audit.Discard
	}
	if deps.Clarify == nil {
		deps.Clarify = clarify.NewEngine(nil)
	}
	if deps.Synth == nil {
		deps.Synth = synth.New(nil, 0, deps.Logger)
	}
	switch {
	case maxRegenerations == 0:
		maxRegenerations = DefaultMaxRegenerations
	case maxRegenerations < 0:
		maxRegenerations = 0
	}
	return &Machine{
		clarify:          deps.Clarify,
		extractor:        deps.Extractor,
		options:          deps.Options,
		synth:            deps.Synth,
		audit:            deps.Audit,
		logger:           deps.Logger,
		maxRegenerations: maxRegenerations,
	}
}

// Start opens a new session and returns its first prompt.
func (m *Machine) Start(ctx context.Context, sess *session.Session) (Prompt, error) {
	m.record(ctx, sess, audit.Entry{
		ActorType: audit.ActorSystem,
		Action:    audit.ActionSessionCreated,
		Summary:   "session started",
	})
	return m.Current(ctx, sess)
}

// Current returns the prompt for the session's present state, doing any
// pending work (option generation, synthesis) that state needs.
func (m *Machine) Current(ctx context.Context, sess *session.Session) (Prompt, error) {
	switch sess.Status {
	case session.StatusAbandoned:
		return Prompt{}, ErrAbandoned
	case session.StatusFinalized, session.StatusArchived:
		return m.final(sess), nil
	}

	switch sess.Phase {
	case session.PhaseAnalysis:
		return m.nextQuestion(ctx, sess, "")
	case session.PhaseSolution:
		if sess.Decision.Committed() {
			m.transition(ctx, sess, session.PhaseDocumentation, "decision already committed")
			return m.Current(ctx, sess)
		}
		if len(sess.Presented) == 0 {
			return m.proposeOptions(ctx, sess)
		}
		return m.optionsPrompt(sess, ""), nil
	case session.PhaseDocumentation:
		if doc := sess.Document(); doc != nil && !doc.Stale {
			return m.previewPrompt(sess, doc, ""), nil
		}
		return m.synthesize(ctx, sess, "")
	case session.PhaseFinalized:
		return m.final(sess), nil
	}
	return Prompt{}, &InvariantError{Invariant: "known_phase", Detail: fmt.Sprintf("unknown phase %q", sess.Phase)}
}

// Advance applies one operator input and returns the next prompt.
// Recoverable operator mistakes come back as a Rejected prompt with a nil
// error; the session is unchanged by them.
func (m *Machine) Advance(ctx context.Context, sess *session.Session, in Input) (Prompt, error) {
	if err := m.writable(sess); err != nil {
		return Prompt{}, err
	}

	switch in.Kind {
	case InputAbandon:
		return m.Abandon(ctx, sess)
	case InputRevise:
		return m.Revise(ctx, sess, in.Key, in.Value)
	case InputRetry:
		return m.retry(ctx, sess)
	}

	switch sess.Phase {
	case session.PhaseAnalysis:
		if in.Kind != InputReply {
			return m.reject(ctx, sess, in, "Please answer the question first.")
		}
		return m.answer(ctx, sess, in.Text)
	case session.PhaseSolution:
		return m.choose(ctx, sess, in)
	case session.PhaseDocumentation:
		switch in.Kind {
		case InputApprove:
			return m.approve(ctx, sess)
		case InputReject:
			return m.rejectDocument(ctx, sess, in.Text)
		}
		return m.reject(ctx, sess, in, "Approve the document with /approve or ask for changes with /reject <feedback>.")
	}
	return Prompt{}, ErrFinalized
}

// Abandon stops the session. Facts and the decision are kept so the session
// can be resumed. In-flight collaborator calls are cancelled by the caller
// through the turn context.
func (m *Machine) Abandon(ctx context.Context, sess *session.Session) (Prompt, error) {
	if sess.Status == session.StatusFinalized || sess.Status == session.StatusArchived {
		return Prompt{}, ErrFinalized
	}
	if sess.Status != session.StatusAbandoned {
		sess.Status = session.StatusAbandoned
		sess.Touch()
		m.record(ctx, sess, audit.Entry{
			ActorType: audit.ActorOperator,
			Action:    audit.ActionSessionAbandoned,
			Summary:   "session abandoned",
		})
	}
	return Prompt{
		Kind:      KindNotice,
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Notice:    "Session abandoned. Your answers and decision are kept; resume the session to continue.",
	}, nil
}

// Resume reactivates an abandoned session and returns its current prompt.
func (m *Machine) Resume(ctx context.Context, sess *session.Session) (Prompt, error) {
	if sess.Status == session.StatusFinalized || sess.Status == session.StatusArchived {
		return Prompt{}, ErrFinalized
	}
	if sess.Status == session.StatusAbandoned {
		sess.Status = session.StatusActive
		sess.Touch()
		m.record(ctx, sess, audit.Entry{
			ActorType: audit.ActorOperator,
			Action:    audit.ActionSessionResumed,
			Summary:   "session resumed",
		})
	}
	return m.Current(ctx, sess)
}

func (m *Machine) writable(sess *session.Session) error {
	switch {
	case sess.Closed(), sess.Phase == session.PhaseFinalized:
		return ErrFinalized
	case sess.Status == session.StatusAbandoned:
		return ErrAbandoned
	}
	return nil
}

func (m *Machine) retry(ctx context.Context, sess *session.Session) (Prompt, error) {
	switch sess.Phase {
	case session.PhaseSolution:
		sess.ClearOffer()
		return m.proposeOptions(ctx, sess)
	case session.PhaseDocumentation:
		sess.MarkStale("operator asked to retry")
		return m.draft(ctx, sess, "", false)
	}
	return m.Current(ctx, sess)
}

// reject re-presents the current prompt with a notice and logs the refusal.
func (m *Machine) reject(ctx context.Context, sess *session.Session, in Input, reason string) (Prompt, error) {
	m.record(ctx, sess, audit.Entry{
		ActorType: audit.ActorOperator,
		Action:    audit.ActionActionRejected,
		Subject:   string(in.Kind),
		Summary:   reason,
		Detail:    in.Text,
	})
	p, err := m.Current(ctx, sess)
	if err != nil {
		return Prompt{}, err
	}
	p.Notice = joinNotice(reason, p.Notice)
	p.Rejected = true
	return p, nil
}

func (m *Machine) transition(ctx context.Context, sess *session.Session, to session.Phase, reason string) {
	from := sess.Phase
	if from == to {
		return
	}
	sess.MoveTo(to, reason)
	m.logger.Info("phase changed", "session_id", sess.ID, "from", from, "to", to, "reason", reason)
	m.record(ctx, sess, audit.Entry{
		ActorType:     audit.ActorSystem,
		Action:        audit.ActionPhaseChanged,
		Summary:       reason,
		PreviousValue: string(from),
		NewValue:      string(to),
	})
}

// record writes an audit entry. Audit failures never fail a turn.
func (m *Machine) record(ctx context.Context, sess *session.Session, e audit.Entry) {
	e.SessionID = sess.ID
	if e.Phase == "" {
		e.Phase = string(sess.Phase)
	}
	if err := m.audit.Log(context.WithoutCancel(ctx), e); err != nil {
		m.logger.Warn("writing audit entry", "session_id", sess.ID, "action", e.Action, "error", err)
	}
}

func (m *Machine) recordFact(ctx context.Context, sess *session.Session, f facts.Fact, action audit.Action, previous string) {
	actor := audit.ActorOperator
	if f.Source == facts.SourceExtracted {
		actor = audit.ActorCollaborator
	}
	m.record(ctx, sess, audit.Entry{
		ActorType:     actor,
		Action:        action,
		Subject:       f.Key,
		Summary:       fmt.Sprintf("%s v%d recorded", f.Key, f.Version),
		PreviousValue: previous,
		NewValue:      f.Value,
	})
}

func joinNotice(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
