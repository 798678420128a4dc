// Package synth turns the analysis facts and the committed decision into a
// product brief and an epic/story hierarchy. Synthesis is deterministic for
// an unchanged input; language-model drafts are cached per input.
package synth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/clarify"
	"github.com/ziadkadry99/auto-analyst/internal/decision"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
)

// KeyFeedback holds the operator's latest rejection note for a preview.
var KeyFeedback = facts.Key(facts.NamespaceDocumentation, "feedback")

// DefaultMaxStories caps stories per epic.
const DefaultMaxStories = 3

// Input is everything a synthesis run may read.
type Input struct {
	// Facts maps every key to its current value.
	Facts    map[string]string
	Decision *decision.Decision
	// Feedback holds blocking violations of the previous attempt.
	Feedback []backlog.Violation
	// Revision counts earlier generations of this document.
	Revision int
}

// Draft is one synthesized, not yet validated, document.
type Draft struct {
	Brief   backlog.ProductBrief `json:"brief"`
	Epics   []backlog.Epic       `json:"epics"`
	Stories []backlog.Story      `json:"stories"`
	// Omitted lists epic titles dropped because no story could be drafted.
	Omitted     []string `json:"omitted,omitempty"`
	Fingerprint string   `json:"fingerprint"`
}

// Synthesizer builds drafts. The deterministic drafter always backs up the
// configured one.
type Synthesizer struct {
	drafter    StoryDrafter
	fallback   StoryDrafter
	maxStories int
	logger     *slog.Logger
}

// New creates a Synthesizer. A nil drafter means deterministic drafting only.
func New(drafter StoryDrafter, maxStories int, logger *slog.Logger) *Synthesizer {
	if maxStories <= 0 {
		maxStories = DefaultMaxStories
	}
	if logger == nil {
		logger = slog.Default()
	}
	fallback := TemplateDrafter{}
	if drafter == nil {
		drafter = fallback
	}
	return &Synthesizer{drafter: drafter, fallback: fallback, maxStories: maxStories, logger: logger}
}

// Synthesize produces a draft. Epics for which no story can be drafted are
// omitted, never returned empty.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (Draft, error) {
	d := Draft{Fingerprint: Fingerprint(in)}
	d.Brief = buildBrief(in)

	flagged := make(map[string]bool)
	for _, v := range in.Feedback {
		if v.EpicID != "" {
			flagged[v.EpicID] = true
		}
	}

	used := make(map[string]bool)
	for _, plan := range epicPlans(in) {
		if err := ctx.Err(); err != nil {
			return Draft{}, err
		}
		plan.Epic.ID = uniqueID(plan.Epic.ID, used)
		plan.Feedback = feedbackFor(plan.Epic.ID, in)

		drafter := s.drafter
		if flagged[plan.Epic.ID] {
			drafter = s.fallback
		}
		drafts, err := drafter.Draft(ctx, plan)
		if err != nil {
			if ctx.Err() != nil {
				return Draft{}, ctx.Err()
			}
			s.logger.Warn("story drafting failed, using templates", "epic", plan.Epic.ID, "error", err)
			drafts, err = s.fallback.Draft(ctx, plan)
			if err != nil {
				return Draft{}, fmt.Errorf("drafting stories for %s: %w", plan.Epic.ID, err)
			}
		}
		if len(drafts) > s.maxStories {
			drafts = drafts[:s.maxStories]
		}
		if len(drafts) == 0 {
			d.Omitted = append(d.Omitted, plan.Epic.Title)
			continue
		}

		epic := plan.Epic
		for i, st := range drafts {
			st.ID = fmt.Sprintf("%s/story-%d", epic.ID, i+1)
			st.EpicID = epic.ID
			st.Status = backlog.StatusDraft
			epic.StoryIDs = append(epic.StoryIDs, st.ID)
			d.Stories = append(d.Stories, st)
		}
		d.Epics = append(d.Epics, epic)
	}
	linkToDecision(&d)

	s.logger.Debug("document synthesized",
		"epics", len(d.Epics),
		"stories", len(d.Stories),
		"omitted", len(d.Omitted),
		"fingerprint", d.Fingerprint,
	)
	return d, nil
}

// linkToDecision makes the first story of every feature epic depend on the
// first story of the decision epic, which puts the chosen approach in place.
func linkToDecision(d *Draft) {
	if len(d.Epics) == 0 || d.Epics[0].Source != "decision" || len(d.Epics[0].StoryIDs) == 0 {
		return
	}
	root := d.Epics[0].StoryIDs[0]
	first := make(map[string]bool)
	for _, e := range d.Epics[1:] {
		if len(e.StoryIDs) > 0 {
			first[e.StoryIDs[0]] = true
		}
	}
	for i := range d.Stories {
		if first[d.Stories[i].ID] {
			d.Stories[i].DependsOn = append(d.Stories[i].DependsOn, root)
		}
	}
}

func buildBrief(in Input) backlog.ProductBrief {
	users := facts.ParseList(in.Facts[clarify.KeyTargetUsers])
	var scope []string
	for _, f := range facts.ParseScopedList(in.Facts[clarify.KeyCoreFeatures]) {
		scope = append(scope, f.Name)
	}

	b := backlog.ProductBrief{
		ProblemStatement: strings.TrimSpace(in.Facts[clarify.KeyProblemStatement]),
		TargetUsers:      users,
		Goals:            facts.ParseList(in.Facts[clarify.KeyGoals]),
		Scope:            scope,
		RevisionCount:    in.Revision,
	}
	if in.Decision != nil {
		b.Decisions = append(b.Decisions, decisionLine(*in.Decision))
	}
	if len(users) > 0 && len(scope) > 0 {
		b.Summary = fmt.Sprintf("A first release for %s covering %s.", strings.Join(users, ", "), strings.Join(scope, ", "))
		if in.Decision != nil {
			b.Summary += " Chosen approach: " + in.Decision.Summary + "."
		}
	}
	return b
}

func decisionLine(d decision.Decision) string {
	if d.Custom() {
		return "Custom approach: " + d.Summary
	}
	topic := d.Topic
	if topic == "" {
		topic = "approach"
	}
	return fmt.Sprintf("%s: %s", capitalize(topic), d.Summary)
}

func decisionCapability(d decision.Decision) string {
	if d.Custom() || d.Topic == "" || d.Topic == "general" {
		return fmt.Sprintf("the approach %q in place", d.Summary)
	}
	return fmt.Sprintf("the %s approach %q in place", d.Topic, d.Summary)
}

// epicPlans maps the decision and every core feature to one epic each.
func epicPlans(in Input) []EpicPlan {
	roles := knownRoles(in.Facts)
	goals := facts.ParseList(in.Facts[clarify.KeyGoals])
	if len(goals) == 0 && strings.TrimSpace(in.Facts[clarify.KeyProblemStatement]) != "" {
		goals = []string{"the problem \"" + strings.TrimSpace(in.Facts[clarify.KeyProblemStatement]) + "\" is solved"}
	}
	constraints := constraintsOf(in.Facts)

	var plans []EpicPlan
	if in.Decision != nil {
		var actors []string
		if len(roles) > 0 {
			actors = roles[:1]
		}
		goal := in.Decision.Rationale
		if goal == "" {
			goal = "Deliver the chosen approach: " + in.Decision.Summary
		}
		plans = append(plans, EpicPlan{
			Epic: backlog.Epic{
				ID:     "epic-decision",
				Title:  decisionLine(*in.Decision),
				Goal:   goal,
				Source: "decision",
			},
			Actors:      actors,
			Capability:  decisionCapability(*in.Decision),
			Benefits:    goals,
			Constraints: constraints,
		})
	}

	for _, f := range facts.ParseScopedList(in.Facts[clarify.KeyCoreFeatures]) {
		plans = append(plans, EpicPlan{
			Epic: backlog.Epic{
				ID:     "epic-" + slug(f.Name),
				Title:  f.Name,
				Goal:   fmt.Sprintf("Users can rely on %s in the first release", f.Name),
				Source: "feature:" + f.Name,
			},
			Actors:      actorsFor(f, roles),
			Capability:  "to use " + lowerFirst(f.Name),
			Benefits:    goals,
			Constraints: constraints,
		})
	}
	return plans
}

// knownRoles are the declared user roles, or the target users when no
// roles were given.
func knownRoles(fs map[string]string) []string {
	if roles := facts.ParseList(fs[clarify.KeyUserRoles]); len(roles) > 0 {
		return roles
	}
	return facts.ParseList(fs[clarify.KeyTargetUsers])
}

// actorsFor keeps the feature's scoped actors that are known roles. An
// unscoped feature belongs to the primary role.
func actorsFor(f facts.Scoped, roles []string) []string {
	if len(f.Scope) == 0 {
		if len(roles) == 0 {
			return nil
		}
		return roles[:1]
	}
	var out []string
	for _, a := range f.Scope {
		for _, r := range roles {
			if strings.EqualFold(a, r) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func constraintsOf(fs map[string]string) []string {
	var out []string
	for _, key := range []string{clarify.KeyPaymentModel, clarify.KeyFulfillmentModel, clarify.KeyNonFunctional} {
		if v := strings.TrimSpace(fs[key]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func feedbackFor(epicID string, in Input) []string {
	var out []string
	if note := strings.TrimSpace(in.Facts[KeyFeedback]); note != "" {
		out = append(out, note)
	}
	for _, v := range in.Feedback {
		if v.EpicID == epicID {
			out = append(out, v.Message)
		}
	}
	return out
}

// Fingerprint hashes every input that influences the draft.
func Fingerprint(in Input) string {
	type fp struct {
		Facts    [][2]string         `json:"facts"`
		Decision *decision.Decision  `json:"decision,omitempty"`
		Feedback []backlog.Violation `json:"feedback,omitempty"`
	}
	keys := make([]string, 0, len(in.Facts))
	for k := range in.Facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	v := fp{Feedback: in.Feedback}
	for _, k := range keys {
		v.Facts = append(v.Facts, [2]string{k, in.Facts[k]})
	}
	if in.Decision != nil {
		d := *in.Decision
		d.CommittedAt = d.CommittedAt.UTC()
		v.Decision = &d
	}
	data, _ := json.Marshal(v)
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "feature"
	}
	return out
}

func uniqueID(id string, used map[string]bool) string {
	candidate := id
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	used[candidate] = true
	return candidate
}

func lowerFirst(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	// Keep acronyms such as "SMS" intact.
	if len(r) > 1 && unicode.IsUpper(r[1]) {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
