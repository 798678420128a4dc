// Package validate checks synthesized epics and stories against the
// structural rules a backlog must satisfy before it can be finalized.
// Violations are reported, never repaired.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
)

// Rule names.
const (
	RuleEpicWithoutStory    = "epic_without_story"
	RuleStoryWithoutEpic    = "story_without_epic"
	RuleMissingCriteria     = "story_missing_acceptance_criteria"
	RuleCriterionNotGWT     = "story_criterion_not_given_when_then"
	RuleTitleNotBenefitForm = "story_title_not_benefit_form"
	RuleMissingEstimate     = "story_missing_estimate"
	RuleMissingDependencies = "story_missing_dependencies"
	RuleUnknownDependency   = "story_unknown_dependency"
	RuleMissingPriority     = "story_missing_priority"
	RuleBriefMissingField   = "brief_missing_field"
)

var benefitForm = regexp.MustCompile(`(?i)^as an? .+, i want .+, so that .+$`)

// BenefitForm reports whether a story title reads
// "As a [actor], I want [capability], so that [benefit]".
func BenefitForm(title string) bool {
	return benefitForm.MatchString(strings.TrimSpace(title))
}

// ErrStructuralViolation is matched by every StructuralViolationError.
var ErrStructuralViolation = errors.New("structural violation")

// StructuralViolationError carries the blocking violations of a draft.
type StructuralViolationError struct {
	Violations []backlog.Violation
}

func (e *StructuralViolationError) Error() string {
	if len(e.Violations) == 1 {
		return "structural violation: " + e.Violations[0].String()
	}
	return fmt.Sprintf("%d structural violations, first: %s", len(e.Violations), e.Violations[0].String())
}

func (e *StructuralViolationError) Unwrap() error { return ErrStructuralViolation }

// IsStructuralViolation reports whether err is a StructuralViolationError.
func IsStructuralViolation(err error) bool { return errors.Is(err, ErrStructuralViolation) }

// Result is the outcome of validating one draft.
type Result struct {
	// Accepted holds the epics with at least one validated story; their
	// StoryIDs list only validated stories.
	Accepted []backlog.Epic `json:"accepted"`
	// Stories holds every input story with its status set.
	Stories  []backlog.Story     `json:"stories"`
	Blocking []backlog.Violation `json:"blocking"`
	Advisory []backlog.Violation `json:"advisory"`
}

// Err returns a StructuralViolationError when any blocking violation exists.
func (r Result) Err() error {
	if len(r.Blocking) == 0 {
		return nil
	}
	return &StructuralViolationError{Violations: r.Blocking}
}

// Rejected returns the stories that failed validation.
func (r Result) Rejected() []backlog.Story {
	var out []backlog.Story
	for _, s := range r.Stories {
		if s.Status == backlog.StatusRejected {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks epics and their stories. Inputs are not modified.
func Validate(epics []backlog.Epic, stories []backlog.Story) Result {
	var res Result

	epicIDs := make(map[string]bool, len(epics))
	for _, e := range epics {
		epicIDs[e.ID] = true
	}
	storyIDs := make(map[string]bool, len(stories))
	for _, s := range stories {
		storyIDs[s.ID] = true
	}

	validatedByEpic := make(map[string][]string)
	storiesByEpic := make(map[string]int)
	res.Stories = make([]backlog.Story, len(stories))
	for i, s := range stories {
		s.AcceptanceCriteria = append([]backlog.Criterion(nil), s.AcceptanceCriteria...)
		s.DependsOn = append([]string(nil), s.DependsOn...)

		blocking := checkStory(s, epicIDs)
		res.Blocking = append(res.Blocking, blocking...)
		res.Advisory = append(res.Advisory, adviseStory(s, storyIDs)...)

		if epicIDs[s.EpicID] {
			storiesByEpic[s.EpicID]++
		}
		if len(blocking) == 0 {
			s.Status = backlog.StatusValidated
			validatedByEpic[s.EpicID] = append(validatedByEpic[s.EpicID], s.ID)
		} else {
			s.Status = backlog.StatusRejected
		}
		res.Stories[i] = s
	}

	for _, e := range epics {
		if storiesByEpic[e.ID] == 0 {
			res.Blocking = append(res.Blocking, backlog.Violation{
				Rule:     RuleEpicWithoutStory,
				Severity: backlog.SeverityBlocking,
				EpicID:   e.ID,
				Message:  fmt.Sprintf("epic %q has no stories", e.Title),
			})
			continue
		}
		validated := validatedByEpic[e.ID]
		if len(validated) == 0 {
			continue
		}
		e.StoryIDs = append([]string(nil), validated...)
		res.Accepted = append(res.Accepted, e)
	}
	return res
}

func checkStory(s backlog.Story, epicIDs map[string]bool) []backlog.Violation {
	var out []backlog.Violation
	block := func(rule, msg string) {
		out = append(out, backlog.Violation{
			Rule:     rule,
			Severity: backlog.SeverityBlocking,
			EpicID:   s.EpicID,
			StoryID:  s.ID,
			Message:  msg,
		})
	}

	if !epicIDs[s.EpicID] {
		block(RuleStoryWithoutEpic, fmt.Sprintf("story belongs to unknown epic %q", s.EpicID))
	}
	if !BenefitForm(s.Title) {
		block(RuleTitleNotBenefitForm, fmt.Sprintf("title %q must read \"As a <actor>, I want <capability>, so that <benefit>\"", s.Title))
	}
	if len(s.AcceptanceCriteria) == 0 {
		block(RuleMissingCriteria, "story has no acceptance criteria")
	}
	for i, c := range s.AcceptanceCriteria {
		if !c.Complete() {
			block(RuleCriterionNotGWT, fmt.Sprintf("criterion %d is not a complete Given/When/Then triple", i+1))
		}
	}
	return out
}

func adviseStory(s backlog.Story, storyIDs map[string]bool) []backlog.Violation {
	var out []backlog.Violation
	advise := func(rule, msg string) {
		out = append(out, backlog.Violation{
			Rule:     rule,
			Severity: backlog.SeverityAdvisory,
			EpicID:   s.EpicID,
			StoryID:  s.ID,
			Message:  msg,
		})
	}

	if strings.TrimSpace(s.Estimate) == "" {
		advise(RuleMissingEstimate, "no effort estimate")
	}
	if strings.TrimSpace(s.Priority) == "" {
		advise(RuleMissingPriority, "no explicit priority")
	}
	if len(s.DependsOn) == 0 {
		advise(RuleMissingDependencies, "no dependency links")
	}
	for _, dep := range s.DependsOn {
		if !storyIDs[dep] {
			advise(RuleUnknownDependency, fmt.Sprintf("depends on unknown story %q", dep))
		}
	}
	return out
}

// ValidateBrief reports a blocking violation for every empty brief field.
func ValidateBrief(b backlog.ProductBrief) []backlog.Violation {
	var out []backlog.Violation
	missing := func(field string) {
		out = append(out, backlog.Violation{
			Rule:     RuleBriefMissingField,
			Severity: backlog.SeverityBlocking,
			Message:  "product brief has no " + field,
		})
	}
	if strings.TrimSpace(b.Summary) == "" {
		missing("summary")
	}
	if strings.TrimSpace(b.ProblemStatement) == "" {
		missing("problem statement")
	}
	if len(b.TargetUsers) == 0 {
		missing("target users")
	}
	if len(b.Goals) == 0 {
		missing("goals")
	}
	if len(b.Scope) == 0 {
		missing("scope")
	}
	return out
}
