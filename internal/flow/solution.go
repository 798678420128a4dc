package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/decision"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/options"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

// KeyDecision mirrors the committed decision into the fact log.
var KeyDecision = facts.Key(facts.NamespaceSolution, "decision")

// proposeOptions generates the option set. An empty result is retried once
// with a widened query, then replaced by the fallback set.
func (m *Machine) proposeOptions(ctx context.Context, sess *session.Session) (Prompt, error) {
	if m.options == nil {
		return m.offerFallback(ctx, sess, "No knowledge search is configured.")
	}

	p, err := m.options.Propose(ctx, sess.Facts)
	notice := ""
	if options.IsInsufficientOptions(err) {
		m.logger.Info("no options found, widening query", "session_id", sess.ID)
		sess.Widened = true
		notice = "Nothing matched all of your constraints, so I widened the search."
		p, err = m.options.Widen(ctx, sess.Facts)
	}
	if options.IsInsufficientOptions(err) {
		return m.offerFallback(ctx, sess, "I could not find researched options for this product.")
	}
	if err != nil {
		return Prompt{}, err
	}

	sess.FallbackUsed = false
	sess.Offer(p.Considered, p.Presented)
	sess.Touch()
	if len(p.Failed) > 0 {
		m.record(ctx, sess, audit.Entry{
			ActorType: audit.ActorCollaborator,
			Action:    audit.ActionCollaboratorFail,
			Subject:   "knowledge",
			Summary:   fmt.Sprintf("%d of %d option queries failed", len(p.Failed), len(p.Queries)),
			Detail:    strings.Join(p.Failed, ", "),
		})
	}
	m.recordOffer(ctx, sess)
	return m.optionsPrompt(sess, notice), nil
}

func (m *Machine) offerFallback(ctx context.Context, sess *session.Session, reason string) (Prompt, error) {
	sess.FallbackUsed = true
	sess.Offer(nil, options.Fallback())
	sess.Touch()
	m.recordOffer(ctx, sess)
	return m.optionsPrompt(sess, reason+" Choose the simple default or describe your own approach."), nil
}

func (m *Machine) recordOffer(ctx context.Context, sess *session.Session) {
	m.record(ctx, sess, audit.Entry{
		ActorType: audit.ActorSystem,
		Action:    audit.ActionOptionsPresented,
		Summary:   fmt.Sprintf("%d options presented", len(sess.Presented)),
		NewValue:  strings.Join(sess.Presented, ","),
	})
}

func (m *Machine) optionsPrompt(sess *session.Session, notice string) Prompt {
	return Prompt{
		Kind:      KindOptions,
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Options:   sess.PresentedOptions(),
		Fallback:  sess.FallbackUsed,
		Notice:    notice,
	}
}

// choose commits the operator's selection and moves on to Documentation.
func (m *Machine) choose(ctx context.Context, sess *session.Session, in Input) (Prompt, error) {
	presented := sess.PresentedOptions()

	var sel decision.Selection
	switch in.Kind {
	case InputSelect:
		sel.OptionID = in.OptionID
		if in.Index > 0 {
			if in.Index > len(presented) {
				return m.reject(ctx, sess, in, fmt.Sprintf("There is no option %d.", in.Index))
			}
			sel.OptionID = presented[in.Index-1].ID
		}
	case InputCustom:
		sel.CustomText = in.Text
	case InputReply:
		return m.reject(ctx, sess, in, "Pick an option with /select <number> or describe your own with /custom <text>.")
	default:
		return m.reject(ctx, sess, in, "Choose a solution option first.")
	}

	d, err := sess.Decision.Commit(presented, sel, m.basis(sess))
	if decision.IsInvalidSelection(err) || decision.IsAlreadyCommitted(err) {
		return m.reject(ctx, sess, in, err.Error()+".")
	}
	if err != nil {
		return Prompt{}, err
	}

	f, err := sess.Facts.Record(KeyDecision, d.Summary, facts.SourceOperator)
	if err != nil {
		return Prompt{}, err
	}
	m.record(ctx, sess, audit.Entry{
		ActorType: audit.ActorOperator,
		Action:    audit.ActionDecisionCommitted,
		Subject:   d.OptionID,
		Summary:   "decision committed",
		NewValue:  f.Value,
	})
	m.logger.Info("decision committed", "session_id", sess.ID, "option_id", d.OptionID, "custom", d.Custom())

	sess.ClearOffer()
	m.transition(ctx, sess, session.PhaseDocumentation, "decision committed")
	return m.synthesize(ctx, sess, "")
}

func (m *Machine) basis(sess *session.Session) map[string]int {
	if m.options != nil {
		return m.options.Basis(sess.Facts)
	}
	basis := make(map[string]int)
	for _, k := range options.BasisKeys(options.DefaultTopics()) {
		basis[k] = sess.Facts.Version(k)
	}
	return basis
}
