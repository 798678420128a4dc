package flow

import (
	"context"

	"github.com/ziadkadry99/auto-analyst/internal/session"
)

// Service runs turns against sessions held by a registry. Every transport
// (terminal chat, HTTP, WebSocket, MCP) goes through it, so each session
// has exactly one writer no matter where its turns come from.
type Service struct {
	registry *session.Registry
	machine  *Machine
}

// NewService binds a machine to a registry.
func NewService(registry *session.Registry, machine *Machine) *Service {
	return &Service{registry: registry, machine: machine}
}

// Start creates a session and returns its first prompt.
func (s *Service) Start(ctx context.Context) (Prompt, error) {
	sess, err := s.registry.Create(ctx)
	if err != nil {
		return Prompt{}, err
	}
	return s.run(ctx, sess.ID, func(ctx context.Context, sess *session.Session) (Prompt, error) {
		return s.machine.Start(ctx, sess)
	})
}

// Turn applies one operator input to session id.
func (s *Service) Turn(ctx context.Context, id string, in Input) (Prompt, error) {
	if in.Kind == InputAbandon {
		return s.Abandon(ctx, id)
	}
	return s.run(ctx, id, func(ctx context.Context, sess *session.Session) (Prompt, error) {
		return s.machine.Advance(ctx, sess, in)
	})
}

// Current returns the prompt session id is waiting on.
func (s *Service) Current(ctx context.Context, id string) (Prompt, error) {
	return s.run(ctx, id, s.machine.Current)
}

// Abandon cancels any turn in flight on id, then marks the session abandoned.
func (s *Service) Abandon(ctx context.Context, id string) (Prompt, error) {
	s.registry.Signal(id)
	return s.run(ctx, id, s.machine.Abandon)
}

// Resume reactivates an abandoned session.
func (s *Service) Resume(ctx context.Context, id string) (Prompt, error) {
	return s.run(ctx, id, s.machine.Resume)
}

// Archive stops any turn in flight and retires session id. Archived
// sessions stay listable but accept no further turns.
func (s *Service) Archive(ctx context.Context, id string) error {
	s.registry.Signal(id)
	return s.registry.Archive(ctx, id)
}

// Snapshot returns a copy of session id for read-only use.
func (s *Service) Snapshot(ctx context.Context, id string) (*session.Session, error) {
	var out *session.Session
	err := s.registry.View(ctx, id, func(sess *session.Session) error {
		out = sess
		return nil
	})
	return out, err
}

// List summarises sessions with the given status (all when empty).
func (s *Service) List(ctx context.Context, status session.Status) ([]session.Summary, error) {
	return s.registry.List(ctx, status)
}

func (s *Service) run(ctx context.Context, id string, fn func(context.Context, *session.Session) (Prompt, error)) (Prompt, error) {
	var p Prompt
	err := s.registry.Do(ctx, id, func(ctx context.Context, sess *session.Session) error {
		var err error
		p, err = fn(ctx, sess)
		return err
	})
	return p, err
}
