package options

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/facts"
)

// Topic is one aspect of the solution that gets its own search query.
type Topic struct {
	Name string
	// Label phrases the topic inside the query.
	Label string
	// ConstraintKeys are the fact keys whose values constrain this topic.
	ConstraintKeys []string
}

// DefaultTopics covers how customers pay, how orders reach them, and what
// the product runs on.
func DefaultTopics() []Topic {
	return []Topic{
		{Name: "payment", Label: "payment approach", ConstraintKeys: []string{"analysis.payment_model"}},
		{Name: "fulfillment", Label: "order fulfillment approach", ConstraintKeys: []string{"analysis.fulfillment_model"}},
		{Name: "platform", Label: "product platform", ConstraintKeys: []string{"analysis.non_functional"}},
	}
}

// TopicsByName resolves configured topic names. Unknown names become topics
// without constraint keys.
func TopicsByName(names []string) []Topic {
	known := make(map[string]Topic)
	for _, t := range DefaultTopics() {
		known[t.Name] = t
	}
	out := make([]Topic, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if t, ok := known[n]; ok {
			out = append(out, t)
			continue
		}
		out = append(out, Topic{Name: n, Label: strings.ReplaceAll(n, "_", " ") + " approach"})
	}
	return out
}

// Query is one search sent to the knowledge collaborator.
type Query struct {
	Topic   string `json:"topic"`
	Text    string `json:"text"`
	Widened bool   `json:"widened,omitempty"`
}

// buildQueries derives one query per topic from the analysis facts.
func buildQueries(topics []Topic, store *facts.Store, widened bool) []Query {
	problem := store.Value("analysis.problem_statement")
	features := store.Value("analysis.core_features")

	queries := make([]Query, 0, len(topics))
	for _, t := range topics {
		var b strings.Builder
		fmt.Fprintf(&b, "%s for: %s", t.Label, problem)
		if !widened {
			if features != "" {
				fmt.Fprintf(&b, "; features: %s", features)
			}
			for _, key := range t.ConstraintKeys {
				if v := store.Value(key); v != "" {
					fmt.Fprintf(&b, "; constraint: %s", v)
				}
			}
		}
		queries = append(queries, Query{Topic: t.Name, Text: b.String(), Widened: widened})
	}
	return queries
}

// constraintWords is the vocabulary options for topic t are scored against:
// the core features plus the topic's own constraint facts. Constraints of
// other topics are left out so a payment option is not rewarded for echoing
// the fulfillment model.
func constraintWords(t Topic, store *facts.Store) map[string]bool {
	keys := append([]string{"analysis.core_features"}, t.ConstraintKeys...)
	words := make(map[string]bool)
	for _, k := range keys {
		for w := range tokenSet(store.Value(k)) {
			words[w] = true
		}
	}
	return words
}

// BasisKeys are the fact keys that shape the queries, and therefore the
// options a decision is chosen from.
func BasisKeys(topics []Topic) []string {
	keys := []string{"analysis.problem_statement", "analysis.core_features"}
	seen := map[string]bool{keys[0]: true, keys[1]: true}
	for _, t := range topics {
		for _, k := range t.ConstraintKeys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
