package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

// Revise records a new value for key from any open phase. A bare key is
// taken to be an analysis fact. When the revised fact was part of the basis
// of the committed decision, the decision is cleared, the latest document
// is marked stale, and the session returns to Analysis.
func (m *Machine) Revise(ctx context.Context, sess *session.Session, key, value string) (Prompt, error) {
	if err := m.writable(sess); err != nil {
		return Prompt{}, err
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	in := Input{Kind: InputRevise, Key: key, Value: value}
	if key == "" || value == "" {
		return m.reject(ctx, sess, in, "Use /revise key=value with a non-empty key and value.")
	}
	if !strings.Contains(key, ".") {
		key = facts.Key(facts.NamespaceAnalysis, key)
	}
	if ns, _ := facts.SplitKey(key); ns == facts.NamespaceSolution {
		return m.reject(ctx, sess, in, "The decision is changed by selecting an option, not by revising it.")
	}

	previous := sess.Facts.Value(key)
	f, err := sess.Facts.Record(key, value, facts.SourceOperator)
	if err != nil {
		return Prompt{}, err
	}
	sess.Touch()
	m.recordFact(ctx, sess, f, audit.ActionFactRevised, previous)
	changed := previous != value

	switch {
	case changed && sess.Decision.Committed() && sess.Decision.Current.DependsOn(key):
		reason := fmt.Sprintf("%s was revised", key)
		cleared := *sess.Decision.Current
		sess.Decision.Clear(reason)
		m.record(ctx, sess, audit.Entry{
			ActorType:     audit.ActorSystem,
			Action:        audit.ActionDecisionCleared,
			Subject:       cleared.OptionID,
			Summary:       reason,
			PreviousValue: cleared.Summary,
		})
		if sess.MarkStale(reason) {
			m.record(ctx, sess, audit.Entry{
				ActorType: audit.ActorSystem,
				Action:    audit.ActionDocumentStale,
				Subject:   fmt.Sprintf("generation-%d", sess.Document().Generation),
				Summary:   reason,
			})
		}
		sess.ClearOffer()
		m.transition(ctx, sess, session.PhaseAnalysis, reason)
		p, err := m.Current(ctx, sess)
		if err != nil {
			return Prompt{}, err
		}
		p.Notice = joinNotice("Your earlier decision depended on that answer, so it has been cleared.", p.Notice)
		return p, nil

	case changed && sess.Phase == session.PhaseDocumentation:
		reason := fmt.Sprintf("%s was revised", key)
		if sess.MarkStale(reason) {
			m.record(ctx, sess, audit.Entry{
				ActorType: audit.ActorSystem,
				Action:    audit.ActionDocumentStale,
				Subject:   fmt.Sprintf("generation-%d", sess.Document().Generation),
				Summary:   reason,
			})
		}
		return m.synthesize(ctx, sess, "The document was regenerated with your change.")

	case changed && sess.Phase == session.PhaseSolution && len(sess.Presented) > 0 && inBasis(m.basis(sess), key):
		sess.ClearOffer()
		p, err := m.proposeOptions(ctx, sess)
		if err != nil {
			return Prompt{}, err
		}
		p.Notice = joinNotice("The options were refreshed for your change.", p.Notice)
		return p, nil
	}
	return m.Current(ctx, sess)
}

func inBasis(basis map[string]int, key string) bool {
	_, ok := basis[key]
	return ok
}
