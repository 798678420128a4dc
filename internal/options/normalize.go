package options

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true,
	"for": true, "with": true, "in": true, "on": true, "by": true, "via": true, "your": true,
	"you": true, "it": true, "is": true, "are": true, "be": true, "that": true, "this": true,
	"from": true, "at": true, "as": true, "use": true, "using": true, "our": true, "we": true,
}

// normalize lowercases text, drops punctuation and stopwords, and strips a
// plural "s" so "Payments via Stripe" and "stripe payment" compare equal.
func normalize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = strings.TrimSuffix(w, "s")
		}
		out = append(out, w)
	}
	return out
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range normalize(text) {
		set[w] = true
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b|; two empty sets are identical.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
