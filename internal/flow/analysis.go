package flow

import (
	"context"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/clarify"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/retry"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

// nextQuestion asks for the highest-priority missing analysis fact, or
// moves to Solution when none is missing.
func (m *Machine) nextQuestion(ctx context.Context, sess *session.Session, notice string) (Prompt, error) {
	step := m.clarify.NextStep(facts.NamespaceAnalysis, sess.Facts)
	if step.Done {
		sess.PendingKey = ""
		m.transition(ctx, sess, session.PhaseSolution, "analysis checklist complete")
		p, err := m.proposeOptions(ctx, sess)
		if err != nil {
			return Prompt{}, err
		}
		p.Notice = joinNotice(notice, p.Notice)
		return p, nil
	}

	sess.PendingKey = step.Requirement.Key
	coverage := m.clarify.Coverage(facts.NamespaceAnalysis, sess.Facts)
	return Prompt{
		Kind:      KindQuestion,
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Key:       step.Requirement.Key,
		Question:  step.Question(),
		Coverage:  &coverage,
		Notice:    notice,
	}, nil
}

// answer records a reply to the pending question, lets the extractor pick
// up any other facts the reply contains, and asks the next question.
func (m *Machine) answer(ctx context.Context, sess *session.Session, reply string) (Prompt, error) {
	step := m.clarify.NextStep(facts.NamespaceAnalysis, sess.Facts)
	if step.Done {
		return m.nextQuestion(ctx, sess, "")
	}

	f, err := m.clarify.Answer(sess.Facts, step, reply)
	if clarify.IsIncompleteInput(err) {
		return m.reject(ctx, sess, Input{Kind: InputReply, Text: reply}, "I need an answer to this question before we can continue.")
	}
	if err != nil {
		return Prompt{}, err
	}
	sess.Touch()
	m.recordFact(ctx, sess, f, audit.ActionFactRecorded, "")

	notice := ""
	if m.extractor != nil {
		candidates, err := m.extractor.Extract(ctx, m.clarify.Checklist(facts.NamespaceAnalysis), sess.Facts, reply)
		switch {
		case err != nil && ctx.Err() != nil:
			return Prompt{}, ctx.Err()
		case err != nil:
			m.logger.Warn("fact extraction failed", "session_id", sess.ID, "error", err)
			if retry.IsCollaboratorTimeout(err) {
				m.record(ctx, sess, audit.Entry{
					ActorType: audit.ActorCollaborator,
					Action:    audit.ActionCollaboratorFail,
					Subject:   "extractor",
					Summary:   "fact extraction unavailable",
					Detail:    err.Error(),
				})
			}
		}
		for _, c := range candidates {
			ef, err := sess.Facts.Record(c.Key, c.Value, facts.SourceExtracted)
			if err != nil {
				continue
			}
			m.recordFact(ctx, sess, ef, audit.ActionFactRecorded, "")
		}
		if len(candidates) > 0 {
			notice = "I also picked up other details from your answer; use /revise key=value to correct them."
		}
	}
	return m.nextQuestion(ctx, sess, notice)
}
