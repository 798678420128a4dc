package mcp

import "github.com/mark3labs/mcp-go/mcp"

var startTool = mcp.NewTool("analyst_start",
	mcp.WithDescription("Start a new product analysis session. Returns the session id and the first question."),
)

var turnTool = mcp.NewTool("analyst_turn",
	mcp.WithDescription("Send the operator's next input to a session. Plain text answers the current question; "+
		"commands are /select N, /custom <text>, /approve, /reject <feedback>, /revise key=value, /abandon, /retry."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by analyst_start"),
	),
	mcp.WithString("input",
		mcp.Required(),
		mcp.Description("Answer text or command"),
	),
)

var statusTool = mcp.NewTool("analyst_status",
	mcp.WithDescription("Show a session's phase, gathered facts, decision, and the prompt it is waiting on."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id"),
	),
)

var documentTool = mcp.NewTool("analyst_document",
	mcp.WithDescription("Get the latest product brief and backlog of a session as Markdown."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id"),
	),
)
