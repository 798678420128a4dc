package flow

import (
	"strconv"
	"strings"

	"github.com/ziadkadry99/auto-analyst/internal/clarify"
	"github.com/ziadkadry99/auto-analyst/internal/options"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

// Kind says what a prompt asks of the operator.
type Kind string

const (
	KindQuestion Kind = "question"
	KindOptions  Kind = "options"
	KindPreview  Kind = "preview"
	KindFinal    Kind = "final"
	// KindNotice is used only when there is nothing to ask, e.g. after abandon.
	KindNotice Kind = "notice"
)

// Prompt is the single thing a turn presents. Notice carries collaborator
// fallbacks and rejected actions alongside it.
type Prompt struct {
	Kind      Kind          `json:"kind"`
	SessionID string        `json:"session_id"`
	Phase     session.Phase `json:"phase"`

	Key      string            `json:"key,omitempty"`
	Question string            `json:"question,omitempty"`
	Coverage *clarify.Coverage `json:"coverage,omitempty"`

	Options  []options.SolutionOption `json:"options,omitempty"`
	Fallback bool                     `json:"fallback,omitempty"`

	Document *session.Document `json:"document,omitempty"`

	Notice string `json:"notice,omitempty"`
	// Rejected is set when the operator's action was refused; state is unchanged.
	Rejected bool `json:"rejected,omitempty"`
}

// InputKind is the operator action of a turn.
type InputKind string

const (
	InputReply   InputKind = "reply"
	InputSelect  InputKind = "select"
	InputCustom  InputKind = "custom"
	InputApprove InputKind = "approve"
	InputReject  InputKind = "reject"
	InputRevise  InputKind = "revise"
	InputAbandon InputKind = "abandon"
	InputRetry   InputKind = "retry"
)

// Input is one operator turn.
type Input struct {
	Kind InputKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	// OptionID or Index (1-based) identify the selected option.
	OptionID string `json:"option_id,omitempty"`
	Index    int    `json:"index,omitempty"`
	// Key and Value carry a revision.
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// ParseInput maps a chat line to an input. Lines that are not commands are
// replies.
func ParseInput(line string) Input {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Input{Kind: InputReply, Text: line}
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(cmd) {
	case "select", "s":
		if n, err := strconv.Atoi(rest); err == nil {
			return Input{Kind: InputSelect, Index: n}
		}
		return Input{Kind: InputSelect, OptionID: rest}
	case "custom":
		return Input{Kind: InputCustom, Text: rest}
	case "approve":
		return Input{Kind: InputApprove}
	case "reject":
		return Input{Kind: InputReject, Text: rest}
	case "revise":
		key, value, _ := strings.Cut(rest, "=")
		return Input{Kind: InputRevise, Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}
	case "abandon":
		return Input{Kind: InputAbandon}
	case "retry":
		return Input{Kind: InputRetry}
	}
	return Input{Kind: InputReply, Text: line}
}
