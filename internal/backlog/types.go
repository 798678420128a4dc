// Package backlog defines the documentation artifacts produced for a
// session (product brief, epics, user stories) and the violations found in
// them, plus their persistence.
package backlog

import (
	"fmt"
	"strings"
)

// ProductBrief summarizes what is being built and why.
type ProductBrief struct {
	Summary          string   `json:"summary"`
	ProblemStatement string   `json:"problem_statement"`
	TargetUsers      []string `json:"target_users"`
	Goals            []string `json:"goals"`
	Scope            []string `json:"scope"`
	Decisions        []string `json:"decisions"`
	RevisionCount    int      `json:"revision_count"`
}

// Epic is a large body of work grouping related stories.
type Epic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Goal  string `json:"goal,omitempty"`
	// Source names what the epic was derived from: "decision" or "feature:<name>".
	Source   string   `json:"source,omitempty"`
	StoryIDs []string `json:"story_ids"`
}

// Criterion is one acceptance criterion in Given/When/Then form.
type Criterion struct {
	Given string `json:"given"`
	When  string `json:"when"`
	Then  string `json:"then"`
}

// Complete reports whether all three clauses are present.
func (c Criterion) Complete() bool {
	return strings.TrimSpace(c.Given) != "" && strings.TrimSpace(c.When) != "" && strings.TrimSpace(c.Then) != ""
}

func (c Criterion) String() string {
	return fmt.Sprintf("Given %s, when %s, then %s", c.Given, c.When, c.Then)
}

// StoryStatus is where a story stands after validation.
type StoryStatus string

const (
	StatusDraft     StoryStatus = "draft"
	StatusValidated StoryStatus = "validated"
	StatusRejected  StoryStatus = "rejected"
)

// Story is a user story belonging to exactly one epic.
type Story struct {
	ID                 string      `json:"id"`
	EpicID             string      `json:"epic_id"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	AcceptanceCriteria []Criterion `json:"acceptance_criteria"`
	Status             StoryStatus `json:"status"`
	Estimate           string      `json:"estimate,omitempty"`
	Priority           string      `json:"priority,omitempty"`
	DependsOn          []string    `json:"depends_on,omitempty"`
}

// Severity separates violations that block approval from advice.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Violation is one rule a brief, epic, or story breaks.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	EpicID   string   `json:"epic_id,omitempty"`
	StoryID  string   `json:"story_id,omitempty"`
	Message  string   `json:"message"`
}

func (v Violation) String() string {
	target := v.StoryID
	if target == "" {
		target = v.EpicID
	}
	if target == "" {
		return fmt.Sprintf("[%s] %s: %s", v.Severity, v.Rule, v.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", v.Severity, v.Rule, target, v.Message)
}

// Generation is one persisted synthesis result.
type Generation struct {
	Number     int         `json:"generation"`
	Epics      []Epic      `json:"epics"`
	Stories    []Story     `json:"stories"`
	Violations []Violation `json:"violations"`
}

// StoriesFor returns the stories of one epic in order.
func StoriesFor(epic Epic, stories []Story) []Story {
	byID := make(map[string]Story, len(stories))
	for _, s := range stories {
		byID[s.ID] = s
	}
	out := make([]Story, 0, len(epic.StoryIDs))
	for _, id := range epic.StoryIDs {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
