package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/clarify"
	"github.com/ziadkadry99/auto-analyst/internal/flow"
	"github.com/ziadkadry99/auto-analyst/internal/options"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

func sampleDocument() *session.Document {
	return &session.Document{
		Generation: 2,
		Brief: backlog.ProductBrief{
			Summary:          "A first release for local customers covering Online catalog.",
			ProblemStatement: "Orders only arrive by phone",
			TargetUsers:      []string{"local customers"},
			Goals:            []string{"customers order online"},
			Scope:            []string{"Online catalog"},
			Decisions:        []string{"Payment: Hosted card checkout"},
		},
		Epics: []backlog.Epic{{ID: "epic-online-catalog", Title: "Online catalog", Goal: "Users can browse", StoryIDs: []string{"epic-online-catalog/story-1"}}},
		Stories: []backlog.Story{
			{
				ID: "epic-online-catalog/story-1", EpicID: "epic-online-catalog", Status: backlog.StatusValidated,
				Title:              "As a customer, I want to browse bread, so that I can order",
				AcceptanceCriteria: []backlog.Criterion{{Given: "the catalog", When: "I open it", Then: "I see items"}},
			},
			{
				ID: "epic-online-catalog/story-2", EpicID: "epic-online-catalog", Status: backlog.StatusRejected,
				Title: "Rejected story",
			},
		},
		Omitted:  []string{"Checkout"},
		Advisory: []backlog.Violation{{Rule: "story_missing_estimate", Severity: backlog.SeverityAdvisory, StoryID: "epic-online-catalog/story-1", Message: "story has no estimate"}},
	}
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown(sampleDocument())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Product Brief\n"))
	assert.Contains(t, out, "## Decisions\n\n- Payment: Hosted card checkout")
	assert.Contains(t, out, "### As a customer, I want to browse bread, so that I can order")
	assert.Contains(t, out, "- Given the catalog, when I open it, then I see items")
	assert.NotContains(t, out, "Rejected story")
	assert.Contains(t, out, "## Not Included")
	assert.Contains(t, out, "- `story_missing_estimate` (epic-online-catalog/story-1) story has no estimate")
	assert.NotContains(t, out, "Blocking Issues")
	assert.NotContains(t, out, "\n\n\n")
}

func TestStoryMap(t *testing.T) {
	doc := sampleDocument()
	doc.Epics = append([]backlog.Epic{{ID: "epic-decision", Title: "Payment: Hosted card checkout", StoryIDs: []string{"epic-decision/story-1"}}}, doc.Epics...)
	doc.Stories = append(doc.Stories, backlog.Story{
		ID: "epic-decision/story-1", EpicID: "epic-decision", Status: backlog.StatusValidated,
		Title: "As a customer, I want the payment approach \"Hosted card checkout\" in place, so that customers order online",
	})
	doc.Stories[0].DependsOn = []string{"epic-decision/story-1", "epic-online-catalog/story-2"}

	graph := StoryMap(doc)
	assert.True(t, strings.HasPrefix(graph, "graph TD\n"))
	assert.Contains(t, graph, `subgraph epic_decision["Payment: Hosted card checkout"]`)
	assert.Contains(t, graph, `epic_online_catalog_story_1["As a customer, I want to browse bread, so that I can order"]`)
	assert.Contains(t, graph, "epic_decision_story_1 --> epic_online_catalog_story_1")
	assert.NotContains(t, graph, "story_2", "rejected stories are not drawn")
	assert.Contains(t, graph, "#quot;Hosted card c...", "long labels are cut and escaped")

	out, err := Markdown(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "## Story Map\n\n```mermaid\ngraph TD\n")

	assert.Empty(t, StoryMap(&session.Document{}))
}

func TestMarkdownMarksStaleDocuments(t *testing.T) {
	doc := sampleDocument()
	doc.Stale = true
	doc.StaleReason = "analysis.goals was revised"

	out, err := Markdown(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "**Out of date:** analysis.goals was revised.")
}

func TestMarkdownWithoutDocument(t *testing.T) {
	_, err := Markdown(nil)
	assert.Error(t, err)
}

func TestHTML(t *testing.T) {
	doc := sampleDocument()
	doc.Brief.ProblemStatement = "Orders <script>alert(1)</script> by phone"

	page, err := HTML(doc)
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, "<title>Product Brief (generation 2)</title>")
	assert.Contains(t, html, `<h1 id="product-brief">Product Brief</h1>`)
	assert.Contains(t, html, "<li>Payment: Hosted card checkout</li>")
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestPromptText(t *testing.T) {
	q := PromptText(flow.Prompt{
		Kind:     flow.KindQuestion,
		Phase:    session.PhaseAnalysis,
		Question: "Who are the target users of the product?",
		Coverage: &clarify.Coverage{Covered: 2, Total: 8},
		Notice:   "I need an answer.",
	})
	assert.Equal(t, "Note: I need an answer.\n\n[analysis 2/8] Who are the target users of the product?\n", q)

	o := PromptText(flow.Prompt{Kind: flow.KindOptions, Options: []options.SolutionOption{
		{ID: "opt-1", Topic: "payment", Summary: "Hosted checkout", Score: 0.5, Tradeoffs: []string{"fees"}},
		options.CustomOption(),
	}})
	assert.Contains(t, o, "1. Hosted checkout (payment, score 0.50)")
	assert.Contains(t, o, "Trade-offs: fees")
	assert.Contains(t, o, "/custom <text>")

	d := PromptText(flow.Prompt{Kind: flow.KindPreview, Document: sampleDocument()})
	assert.Contains(t, d, "# Product Brief")
	assert.Contains(t, d, "/approve")
	assert.NotContains(t, PromptText(flow.Prompt{Kind: flow.KindFinal, Document: sampleDocument()}), "/approve")
}
