package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/decision"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/flow"
	"github.com/ziadkadry99/auto-analyst/internal/render"
	"github.com/ziadkadry99/auto-analyst/internal/retry"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

func (s *Server) registerSessionRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Get("/prompt", s.handlePrompt)
			r.Post("/turns", s.handleTurn)
			r.Post("/abandon", s.handleAbandon)
			r.Post("/resume", s.handleResume)
			r.Delete("/", s.handleArchive)
			r.Get("/document", s.handleDocument)
			if s.audit != nil {
				r.Get("/audit", audit.HandleQuery(s.audit, "id"))
			}
		})
	})
}

// turnRequest accepts either a chat line or a structured input.
type turnRequest struct {
	Line string `json:"line"`
	flow.Input
}

func (t turnRequest) input() flow.Input {
	if t.Line != "" {
		return flow.ParseInput(t.Line)
	}
	return t.Input
}

// sessionView is the detail view of a session.
type sessionView struct {
	session.Summary
	Facts       []facts.Fact         `json:"facts"`
	Decision    *decision.Decision   `json:"decision,omitempty"`
	Cleared     []decision.Cleared   `json:"cleared_decisions,omitempty"`
	Transitions []session.Transition `json:"transitions"`
	Documents   int                  `json:"documents"`
	Latest      *session.Document    `json:"document,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Start(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.List(r.Context(), session.Status(r.URL.Query().Get("status")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []session.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := sessionView{
		Summary:     sess.Summarize(),
		Facts:       sess.Facts.All(),
		Decision:    sess.Decision.Current,
		Cleared:     sess.Decision.History,
		Transitions: sess.Transitions,
		Documents:   len(sess.Documents),
		Latest:      sess.Document(),
	}
	if view.Transitions == nil {
		view.Transitions = []session.Transition{}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.service.Current)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	in := req.input()
	if in.Kind == "" {
		http.Error(w, "line or kind is required", http.StatusBadRequest)
		return
	}
	s.respond(w, r, func(ctx context.Context, id string) (flow.Prompt, error) {
		return s.service.Turn(ctx, id, in)
	})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.service.Abandon)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.service.Resume)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	doc := sess.Document()
	if doc == nil {
		http.Error(w, "no document yet", http.StatusNotFound)
		return
	}

	switch r.URL.Query().Get("format") {
	case "html":
		page, err := render.HTML(doc)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	case "json":
		writeJSON(w, http.StatusOK, doc)
	default:
		text, err := render.Markdown(doc)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(text))
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (flow.Prompt, error)) {
	p, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrFinalized), errors.Is(err, flow.ErrAbandoned):
		return http.StatusConflict
	case retry.IsCollaboratorTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
