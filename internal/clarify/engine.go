package clarify

import (
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
)

// Step is the result of NextStep: either a question for one requirement or done.
type Step struct {
	Done        bool         `json:"done"`
	Requirement *Requirement `json:"requirement,omitempty"`
}

// Question returns the text to show the operator, or "" when done.
func (s Step) Question() string {
	if s.Requirement == nil {
		return ""
	}
	return s.Requirement.Question
}

// Engine holds a checklist per phase namespace.
type Engine struct {
	checklists map[string]Checklist
}

// NewEngine creates an engine whose Analysis checklist covers analysisKeys
// (DefaultKeys when empty). Other phases have no requirements.
func NewEngine(analysisKeys []string) *Engine {
	if len(analysisKeys) == 0 {
		analysisKeys = DefaultKeys()
	}
	return &Engine{checklists: map[string]Checklist{
		facts.NamespaceAnalysis: NewChecklist(analysisKeys),
	}}
}

// Checklist returns the checklist of a phase namespace.
func (e *Engine) Checklist(namespace string) Checklist {
	return e.checklists[namespace]
}

// NextStep returns the highest-priority missing requirement of the phase
// as a question, or Done when every required key has a non-empty value.
// It has no side effects, so repeated calls on an unchanged store agree.
func (e *Engine) NextStep(namespace string, store *facts.Store) Step {
	missing := e.checklists[namespace].Missing(store)
	if len(missing) == 0 {
		return Step{Done: true}
	}
	req := missing[0]
	return Step{Requirement: &req}
}

// Answer records reply as the fact for the step's requirement.
func (e *Engine) Answer(store *facts.Store, step Step, reply string) (facts.Fact, error) {
	if step.Requirement == nil {
		return facts.Fact{}, &IncompleteInputError{Key: "(none pending)"}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return facts.Fact{}, &IncompleteInputError{Key: step.Requirement.Key}
	}
	return store.Record(step.Requirement.Key, reply, facts.SourceOperator)
}

// Coverage summarises checklist progress for status views.
type Coverage struct {
	Covered int      `json:"covered"`
	Total   int      `json:"total"`
	Missing []string `json:"missing,omitempty"`
}

// Coverage reports how much of a phase checklist is satisfied.
func (e *Engine) Coverage(namespace string, store *facts.Store) Coverage {
	list := e.checklists[namespace]
	c := Coverage{Total: len(list)}
	for _, r := range list.Missing(store) {
		c.Missing = append(c.Missing, r.Key)
	}
	c.Covered = c.Total - len(c.Missing)
	return c
}
