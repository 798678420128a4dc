package facts

import (
	"regexp"
	"strings"
)

var listSeparators = regexp.MustCompile(`\s*(?:[,;\n]|\band\b)\s*`)

// ParseList splits a free-text list answer ("browse, cart; checkout and
// delivery tracking") into trimmed, de-duplicated items in input order.
// Bullet markers are stripped.
func ParseList(value string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range listSeparators.Split(value, -1) {
		item := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*•"))
		if item == "" {
			continue
		}
		k := strings.ToLower(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

// Scoped is a list item with an optional parenthesised scope:
// "Checkout (customer, guest)" -> {Name: "Checkout", Scope: [customer guest]}.
type Scoped struct {
	Name  string
	Scope []string
}

var scopedItem = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

// ParseScopedList is ParseList for items that may carry a parenthesised
// scope. Separators inside parentheses do not split items.
func ParseScopedList(value string) []Scoped {
	var out []Scoped
	for _, raw := range splitOutsideParens(value) {
		raw = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "-*•"))
		if raw == "" {
			continue
		}
		if m := scopedItem.FindStringSubmatch(raw); m != nil {
			out = append(out, Scoped{Name: strings.TrimSpace(m[1]), Scope: ParseList(m[2])})
			continue
		}
		for _, item := range ParseList(raw) {
			out = append(out, Scoped{Name: item})
		}
	}
	return out
}

func splitOutsideParens(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',', ';', '\n':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
