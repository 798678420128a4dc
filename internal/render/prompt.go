package render

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/flow"
)

// PromptText renders a prompt as plain text for terminals and tool output.
func PromptText(p flow.Prompt) string {
	var b strings.Builder
	if p.Notice != "" {
		fmt.Fprintf(&b, "Note: %s\n\n", p.Notice)
	}

	switch p.Kind {
	case flow.KindQuestion:
		if p.Coverage != nil {
			fmt.Fprintf(&b, "[%s %d/%d] ", p.Phase, p.Coverage.Covered, p.Coverage.Total)
		}
		b.WriteString(p.Question)
		b.WriteString("\n")

	case flow.KindOptions:
		if p.Fallback {
			b.WriteString("No researched options are available. You can still choose:\n")
		} else {
			b.WriteString("Solution options:\n")
		}
		for i, o := range p.Options {
			fmt.Fprintf(&b, "\n%d. %s", i+1, o.Summary)
			if o.Topic != "" && !o.Custom && !o.Generic {
				fmt.Fprintf(&b, " (%s, score %.2f)", o.Topic, o.Score)
			}
			b.WriteString("\n")
			if o.Rationale != "" {
				fmt.Fprintf(&b, "   Why: %s\n", o.Rationale)
			}
			if len(o.Tradeoffs) > 0 {
				fmt.Fprintf(&b, "   Trade-offs: %s\n", strings.Join(o.Tradeoffs, "; "))
			}
			if len(o.SourceRefs) > 0 {
				fmt.Fprintf(&b, "   Sources: %s\n", strings.Join(o.SourceRefs, ", "))
			}
		}
		b.WriteString("\nChoose with /select <number>, or describe your own approach with /custom <text>.\n")

	case flow.KindPreview, flow.KindFinal:
		if p.Document == nil {
			b.WriteString("No document has been generated.\n")
			break
		}
		text, err := Markdown(p.Document)
		if err != nil {
			fmt.Fprintf(&b, "Rendering failed: %v\n", err)
			break
		}
		b.WriteString(text)
		if p.Kind == flow.KindPreview {
			b.WriteString("\nApprove with /approve, ask for changes with /reject <feedback>, or correct a fact with /revise key=value.\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
