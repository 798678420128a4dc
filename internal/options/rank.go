package options

import (
	"sort"
)

// Weights configure the ranking function
//
//	score = Relevance*relevance + Simplicity*simplicity
//
// where relevance is the share of an option's words that appear in the
// stated constraints and simplicity is 1/(1+number of tradeoffs).
type Weights struct {
	Relevance  float64
	Simplicity float64
}

func score(o *SolutionOption, constraints map[string]bool, w Weights) {
	words := tokenSet(o.Summary + " " + o.Rationale)
	if len(words) > 0 {
		hits := 0
		for word := range words {
			if constraints[word] {
				hits++
			}
		}
		o.Relevance = float64(hits) / float64(len(words))
	}
	o.Simplicity = 1 / float64(1+len(o.Tradeoffs))
	o.Score = w.Relevance*o.Relevance + w.Simplicity*o.Simplicity
}

// sortRanked orders by score, then by recency of source, then by ID.
func sortRanked(opts []SolutionOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}

// dedupe keeps the first of every group of options whose normalized
// summaries have Jaccard similarity >= threshold. Source references of the
// dropped duplicates are merged into the survivor. opts must already be ranked.
func dedupe(opts []SolutionOption, threshold float64) []SolutionOption {
	var kept []SolutionOption
	var keptSets []map[string]bool
	for _, o := range opts {
		set := tokenSet(o.Summary)
		dup := -1
		for i, ks := range keptSets {
			if jaccard(set, ks) >= threshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, o)
			keptSets = append(keptSets, set)
			continue
		}
		kept[dup].SourceRefs = mergeRefs(kept[dup].SourceRefs, o.SourceRefs)
	}
	return kept
}

func mergeRefs(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, r := range a {
		seen[r] = true
	}
	for _, r := range b {
		if r != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
