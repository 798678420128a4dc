package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/auto-analyst/internal/flow"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"` // "start", "turn", "current", or "resume"
	SessionID string `json:"session_id"`
	Line      string `json:"line"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type      string       `json:"type"` // "prompt" or "error"
	SessionID string       `json:"session_id,omitempty"`
	Prompt    *flow.Prompt `json:"prompt,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// handleWebSocket carries a chat conversation. Messages are handled in
// order, one turn at a time.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWS(conn, wsResponse{Type: "error", Error: "invalid message format"})
			continue
		}
		if req.Type != "start" && req.SessionID == "" {
			s.sendWS(conn, wsResponse{Type: "error", Error: "session_id is required"})
			continue
		}

		turnCtx, done := context.WithTimeout(ctx, s.cfg.TurnTimeout)
		p, err := s.dispatchWS(turnCtx, req)
		done()
		if err != nil {
			s.sendWS(conn, wsResponse{Type: "error", SessionID: req.SessionID, Error: err.Error()})
			continue
		}
		s.sendWS(conn, wsResponse{Type: "prompt", SessionID: p.SessionID, Prompt: &p})
	}
}

func (s *Server) dispatchWS(ctx context.Context, req wsRequest) (flow.Prompt, error) {
	switch req.Type {
	case "start":
		return s.service.Start(ctx)
	case "turn":
		return s.service.Turn(ctx, req.SessionID, flow.ParseInput(req.Line))
	case "current":
		return s.service.Current(ctx, req.SessionID)
	case "resume":
		return s.service.Resume(ctx, req.SessionID)
	}
	return flow.Prompt{}, &unknownTypeError{req.Type}
}

type unknownTypeError struct{ typ string }

func (e *unknownTypeError) Error() string { return "unknown message type: " + e.typ }

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", "error", err)
	}
}
