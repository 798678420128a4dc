package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/session"
	"github.com/ziadkadry99/auto-analyst/internal/synth"
	"github.com/ziadkadry99/auto-analyst/internal/validate"
)

// synthesize drafts a new document generation unless the latest one was
// drafted from identical inputs. Blocking violations are fed back to the
// synthesizer up to maxRegenerations times; whatever remains is kept on the
// document and blocks approval.
func (m *Machine) synthesize(ctx context.Context, sess *session.Session, notice string) (Prompt, error) {
	return m.draft(ctx, sess, notice, true)
}

func (m *Machine) draft(ctx context.Context, sess *session.Session, notice string, reuse bool) (Prompt, error) {
	in := synth.Input{
		Facts:    sess.Facts.Snapshot(),
		Decision: sess.Decision.Current,
		Revision: len(sess.Documents),
	}
	fingerprint := synth.Fingerprint(in)

	if prev := sess.Document(); reuse && prev != nil && prev.Fingerprint == fingerprint {
		prev.Stale = false
		prev.StaleReason = ""
		return m.previewPrompt(sess, prev, notice), nil
	}

	var doc session.Document
	for attempt := 0; attempt <= m.maxRegenerations; attempt++ {
		draft, err := m.synth.Synthesize(ctx, in)
		if err != nil {
			return Prompt{}, err
		}
		res := validate.Validate(draft.Epics, draft.Stories)
		blocking := append(validate.ValidateBrief(draft.Brief), res.Blocking...)

		doc = session.Document{
			Fingerprint: fingerprint,
			Brief:       draft.Brief,
			Epics:       res.Accepted,
			Stories:     res.Stories,
			Omitted:     draft.Omitted,
			Blocking:    blocking,
			Advisory:    res.Advisory,
			Attempts:    attempt + 1,
		}
		if doc.Passed() {
			break
		}
		if err := res.Err(); err != nil {
			m.logger.Info("draft rejected by validation", "session_id", sess.ID, "attempt", attempt+1, "error", err)
		}
		in.Feedback = res.Blocking
	}

	stored := sess.AddDocument(doc)
	sess.Touch()
	m.record(ctx, sess, audit.Entry{
		ActorType: audit.ActorSystem,
		Action:    audit.ActionDocumentGenerated,
		Subject:   fmt.Sprintf("generation-%d", stored.Generation),
		Summary: fmt.Sprintf("%d epics, %d stories, %d blocking, %d advisory",
			len(stored.Epics), len(stored.AcceptedStories()), len(stored.Blocking), len(stored.Advisory)),
		NewValue: stored.Fingerprint,
	})

	if !stored.Passed() {
		notice = joinNotice(notice, fmt.Sprintf(
			"The draft still has %d blocking issue(s) after %d attempt(s). Add guidance with /reject <feedback> or correct facts with /revise key=value.",
			len(stored.Blocking), stored.Attempts))
	}
	return m.previewPrompt(sess, stored, notice), nil
}

func (m *Machine) previewPrompt(sess *session.Session, doc *session.Document, notice string) Prompt {
	return Prompt{
		Kind:      KindPreview,
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Document:  doc,
		Notice:    notice,
	}
}

func (m *Machine) final(sess *session.Session) Prompt {
	return Prompt{
		Kind:      KindFinal,
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Document:  sess.Document(),
	}
}

// approve finalizes the session when the latest document passed validation.
func (m *Machine) approve(ctx context.Context, sess *session.Session) (Prompt, error) {
	doc := sess.Document()
	if doc == nil || doc.Stale {
		return m.reject(ctx, sess, Input{Kind: InputApprove}, "The document is out of date and has been regenerated; review it before approving.")
	}
	if len(doc.Blocking) > 0 {
		return m.reject(ctx, sess, Input{Kind: InputApprove},
			fmt.Sprintf("The document cannot be approved while %d blocking issue(s) remain.", len(doc.Blocking)))
	}
	if len(doc.Epics) == 0 {
		return m.reject(ctx, sess, Input{Kind: InputApprove}, "The document has no accepted epics.")
	}
	if err := checkFinal(doc); err != nil {
		return Prompt{}, err
	}

	doc.Approved = true
	sess.Status = session.StatusFinalized
	m.transition(ctx, sess, session.PhaseFinalized, "operator approved the document")
	m.record(ctx, sess, audit.Entry{
		ActorType: audit.ActorOperator,
		Action:    audit.ActionSessionFinalized,
		Subject:   fmt.Sprintf("generation-%d", doc.Generation),
		Summary:   fmt.Sprintf("document finalized with %d epics", len(doc.Epics)),
		NewValue:  doc.Fingerprint,
	})
	return m.final(sess), nil
}

// checkFinal re-checks what a finalized document guarantees: every epic has
// a validated story, and every validated story is well formed.
func checkFinal(doc *session.Document) error {
	for _, e := range doc.Epics {
		stories := backlog.StoriesFor(e, doc.Stories)
		if len(stories) == 0 {
			return &InvariantError{Invariant: "epic_has_story", Detail: fmt.Sprintf("epic %s has no stories", e.ID)}
		}
		for _, s := range stories {
			if s.Status != backlog.StatusValidated {
				return &InvariantError{Invariant: "story_validated", Detail: fmt.Sprintf("story %s is %s", s.ID, s.Status)}
			}
			if !validate.BenefitForm(s.Title) || len(s.AcceptanceCriteria) == 0 {
				return &InvariantError{Invariant: "story_well_formed", Detail: fmt.Sprintf("story %s", s.ID)}
			}
		}
	}
	return nil
}

// rejectDocument records the operator's feedback and drafts a new generation.
func (m *Machine) rejectDocument(ctx context.Context, sess *session.Session, feedback string) (Prompt, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return m.reject(ctx, sess, Input{Kind: InputReject}, "Tell me what to change: /reject <feedback>.")
	}

	prev := sess.Facts.Value(synth.KeyFeedback)
	f, err := sess.Facts.Record(synth.KeyFeedback, feedback, facts.SourceOperator)
	if err != nil {
		return Prompt{}, err
	}
	m.recordFact(ctx, sess, f, audit.ActionDocumentRejected, prev)
	sess.MarkStale("operator feedback")
	return m.synthesize(ctx, sess, "")
}
