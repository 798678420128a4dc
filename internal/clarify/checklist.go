// Package clarify decides which question the analyst asks next. Each phase
// has a static checklist of required fact keys; the engine asks for the
// highest-priority key that has no non-empty value yet.
package clarify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
)

// Category groups requirements. Lower values are asked first.
type Category int

const (
	CategoryProblem Category = iota
	CategoryActors
	CategoryCoreFeatures
	CategoryConstraints
	CategoryNonFunctional
)

var categoryNames = map[Category]string{
	CategoryProblem:       "problem",
	CategoryActors:        "actors",
	CategoryCoreFeatures:  "core_features",
	CategoryConstraints:   "constraints",
	CategoryNonFunctional: "non_functional",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Requirement is one fact key a phase needs before it can complete.
type Requirement struct {
	Key      string   `json:"key"`
	Category Category `json:"category"`
	Question string   `json:"question"`
}

// Analysis fact keys.
var (
	KeyProblemStatement = facts.Key(facts.NamespaceAnalysis, "problem_statement")
	KeyGoals            = facts.Key(facts.NamespaceAnalysis, "goals")
	KeyTargetUsers      = facts.Key(facts.NamespaceAnalysis, "target_users")
	KeyUserRoles        = facts.Key(facts.NamespaceAnalysis, "user_roles")
	KeyCoreFeatures     = facts.Key(facts.NamespaceAnalysis, "core_features")
	KeyPaymentModel     = facts.Key(facts.NamespaceAnalysis, "payment_model")
	KeyFulfillmentModel = facts.Key(facts.NamespaceAnalysis, "fulfillment_model")
	KeyNonFunctional    = facts.Key(facts.NamespaceAnalysis, "non_functional")
)

// catalog holds the phrasing for every known requirement.
var catalog = []Requirement{
	{KeyProblemStatement, CategoryProblem, "What problem are you trying to solve, and for whom does it hurt today?"},
	{KeyGoals, CategoryProblem, "What should be true once this product exists? List the outcomes you want."},
	{KeyTargetUsers, CategoryActors, "Who are the target users of the product?"},
	{KeyUserRoles, CategoryActors, "Which user roles interact with the product (for example customer, courier, admin)?"},
	{KeyCoreFeatures, CategoryCoreFeatures, "What is the minimum feature set for a first release? List the features; add the roles that use a feature in parentheses, e.g. \"Checkout (customer)\"."},
	{KeyPaymentModel, CategoryConstraints, "How will customers pay (for example card online, cash on delivery, subscription)?"},
	{KeyFulfillmentModel, CategoryConstraints, "How is the product or service delivered to customers (for example own couriers, third-party delivery, pickup)?"},
	{KeyNonFunctional, CategoryNonFunctional, "Any non-functional constraints: budget, timeline, expected scale, compliance, platforms?"},
}

// DefaultKeys is the Analysis checklist used when no override is configured.
func DefaultKeys() []string {
	keys := make([]string, len(catalog))
	for i, r := range catalog {
		keys[i] = r.Key
	}
	return keys
}

// Checklist is an ordered set of requirements for one phase.
type Checklist []Requirement

// NewChecklist builds a checklist for the given keys. Known keys take their
// catalog phrasing; unknown keys become non-functional requirements with a
// generic question. Requirements are ordered by category, then by catalog
// position, then by the order given.
func NewChecklist(keys []string) Checklist {
	var out Checklist
	seen := make(map[string]bool)
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if req, ok := lookup(key); ok {
			out = append(out, req)
			continue
		}
		_, name := facts.SplitKey(key)
		out = append(out, Requirement{
			Key:      key,
			Category: CategoryNonFunctional,
			Question: fmt.Sprintf("Please describe the %s.", strings.ReplaceAll(name, "_", " ")),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return catalogIndex(out[i].Key) < catalogIndex(out[j].Key)
	})
	return out
}

// Missing returns the requirements without a non-empty fact, in priority order.
func (c Checklist) Missing(store *facts.Store) []Requirement {
	var out []Requirement
	for _, r := range c {
		if !store.Has(r.Key) {
			out = append(out, r)
		}
	}
	return out
}

// Contains reports whether key is part of the checklist.
func (c Checklist) Contains(key string) bool {
	for _, r := range c {
		if r.Key == key {
			return true
		}
	}
	return false
}

func lookup(key string) (Requirement, bool) {
	for _, r := range catalog {
		if r.Key == key {
			return r, true
		}
	}
	return Requirement{}, false
}

// catalogIndex places unknown keys after every catalog entry.
func catalogIndex(key string) int {
	for i, r := range catalog {
		if r.Key == key {
			return i
		}
	}
	return len(catalog)
}
