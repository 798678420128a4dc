package render

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

const maxLabel = 60

// StoryMap renders the accepted backlog as a mermaid flowchart: one
// subgraph per epic and an edge from every prerequisite to the stories that
// depend on it. Dependencies on stories outside the accepted backlog are
// left out. It returns "" when there is nothing to draw.
func StoryMap(doc *session.Document) string {
	stories := doc.AcceptedStories()
	if len(stories) == 0 {
		return ""
	}
	shown := make(map[string]bool, len(stories))
	for _, s := range stories {
		shown[s.ID] = true
	}

	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, e := range doc.Epics {
		epicStories := backlog.StoriesFor(e, doc.Stories)
		if len(epicStories) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    subgraph %s[\"%s\"]\n", sanitizeID(e.ID), escapeMermaid(truncate(e.Title)))
		for _, s := range epicStories {
			fmt.Fprintf(&b, "        %s[\"%s\"]\n", sanitizeID(s.ID), escapeMermaid(truncate(s.Title)))
		}
		b.WriteString("    end\n")
	}
	for _, s := range stories {
		for _, dep := range s.DependsOn {
			if shown[dep] {
				fmt.Fprintf(&b, "    %s --> %s\n", sanitizeID(dep), sanitizeID(s.ID))
			}
		}
	}
	return b.String()
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-3]) + "..."
}

var idReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	".", "_",
	"-", "_",
	" ", "_",
	"(", "_",
	")", "_",
	"[", "_",
	"]", "_",
	"{", "_",
	"}", "_",
	":", "_",
)

// sanitizeID converts a string into a safe mermaid node ID.
func sanitizeID(s string) string {
	return idReplacer.Replace(s)
}

// escapeMermaid escapes characters that have special meaning in mermaid labels.
func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "(", "#lpar;")
	s = strings.ReplaceAll(s, ")", "#rpar;")
	s = strings.ReplaceAll(s, "[", "#lsqb;")
	s = strings.ReplaceAll(s, "]", "#rsqb;")
	s = strings.ReplaceAll(s, "{", "#lbrace;")
	s = strings.ReplaceAll(s, "}", "#rbrace;")
	s = strings.ReplaceAll(s, "<", "#lt;")
	s = strings.ReplaceAll(s, ">", "#gt;")
	return s
}
