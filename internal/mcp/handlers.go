package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/auto-analyst/internal/flow"
	"github.com/ziadkadry99/auto-analyst/internal/render"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.service.Start(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("starting session: %v", err)), nil
	}
	return promptResult(p), nil
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	input, err := request.RequireString("input")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: input"), nil
	}

	p, err := s.service.Turn(ctx, id, flow.ParseInput(input))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
	}
	return promptResult(p), nil
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	sess, err := s.service.Snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading session: %v", err)), nil
	}
	return mcp.NewToolResultText(formatStatus(sess)), nil
}

func (s *Server) handleDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	sess, err := s.service.Snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading session: %v", err)), nil
	}
	doc := sess.Document()
	if doc == nil {
		return mcp.NewToolResultError("No document yet. Finish the analysis and choose a solution first."), nil
	}
	text, err := render.Markdown(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func promptResult(p flow.Prompt) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf("Session: %s\nPhase: %s\n\n%s", p.SessionID, p.Phase, render.PromptText(p)))
}

func formatStatus(sess *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nPhase: %s\nStatus: %s\n", sess.ID, sess.Phase, sess.Status)

	current := sess.Facts.Snapshot()
	if len(current) > 0 {
		b.WriteString("\nFacts:\n")
		for _, f := range sess.Facts.All() {
			if f.Current() {
				fmt.Fprintf(&b, "- %s = %s (v%d, %s)\n", f.Key, f.Value, f.Version, f.Source)
			}
		}
	}
	if d := sess.Decision.Current; d != nil {
		fmt.Fprintf(&b, "\nDecision: %s\n", d.Summary)
	}
	if n := len(sess.Decision.History); n > 0 {
		fmt.Fprintf(&b, "Cleared decisions: %d\n", n)
	}
	if doc := sess.Document(); doc != nil {
		state := "fresh"
		switch {
		case doc.Approved:
			state = "approved"
		case doc.Stale:
			state = "stale: " + doc.StaleReason
		}
		fmt.Fprintf(&b, "\nDocument: generation %d (%s), %d epics, %d blocking, %d advisory\n",
			doc.Generation, state, len(doc.Epics), len(doc.Blocking), len(doc.Advisory))
	}
	if sess.PendingKey != "" && sess.Phase == session.PhaseAnalysis {
		fmt.Fprintf(&b, "\nWaiting for: %s\n", sess.PendingKey)
	}
	return b.String()
}
