// Package options turns a complete analysis brief into a small ranked set of
// solution options by fanning queries out to the knowledge collaborator.
package options

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// CustomOptionID identifies the "none of these" choice.
const CustomOptionID = "custom"

// GenericOptionID identifies the built-in default offered when search finds nothing.
const GenericOptionID = "opt-generic"

// SolutionOption is one candidate approach. Options are immutable once
// created; decisions refer to them by ID.
type SolutionOption struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Summary     string    `json:"summary"`
	Rationale   string    `json:"rationale,omitempty"`
	Tradeoffs   []string  `json:"tradeoffs,omitempty"`
	SourceRefs  []string  `json:"source_refs,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Relevance   float64   `json:"relevance"`
	Simplicity  float64   `json:"simplicity"`
	Score       float64   `json:"score"`
	Generic     bool      `json:"generic,omitempty"`
	Custom      bool      `json:"custom,omitempty"`
}

// optionID derives a stable ID from the topic and normalized summary, so the
// same candidate found twice gets the same ID.
func optionID(topic, summary string) string {
	sum := blake3.Sum256([]byte(topic + "|" + strings.Join(normalize(summary), " ")))
	return "opt-" + hex.EncodeToString(sum[:5])
}

// Fallback is the choice set offered when no candidate survives even a
// widened search: one generic default plus the custom override.
func Fallback() []SolutionOption {
	return []SolutionOption{
		{
			ID:         GenericOptionID,
			Topic:      "general",
			Summary:    "Start with the simplest manual process and automate it once demand is proven",
			Rationale:  "No researched approach matched the stated constraints. A manual first release keeps every later option open.",
			Tradeoffs:  []string{"manual effort for each order", "limited scale"},
			SourceRefs: []string{"built-in"},
			Generic:    true,
		},
		CustomOption(),
	}
}

// CustomOption is the "none of these" choice; committing it requires free text.
func CustomOption() SolutionOption {
	return SolutionOption{
		ID:      CustomOptionID,
		Topic:   "general",
		Summary: "None of these: describe your own approach",
		Custom:  true,
	}
}
