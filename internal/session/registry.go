package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, status Status) ([]Summary, error)
}

type entry struct {
	// writer serializes turns on the session.
	writer sync.Mutex
	sess   *Session

	// cancel ends the running turn; guarded by Registry.mu.
	cancel context.CancelFunc
}

// Registry keeps live sessions and gives each one a single writer. A nil
// Store keeps sessions in memory only.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	store   Store
	logger  *slog.Logger
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{entries: make(map[string]*entry), store: store, logger: logger}
}

// Create starts and stores a new session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	s := New()
	if r.store != nil {
		if err := r.store.Save(ctx, s); err != nil {
			return nil, fmt.Errorf("saving new session: %w", err)
		}
	}
	r.mu.Lock()
	r.entries[s.ID] = &entry{sess: s}
	r.mu.Unlock()
	r.logger.Info("session created", "session_id", s.ID)
	return s, nil
}

// lookup returns the live entry for id, loading it from the store if needed.
func (r *Registry) lookup(ctx context.Context, id string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if ok {
		return e, nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have loaded it meanwhile.
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	e = &entry{sess: s}
	r.entries[id] = e
	return e, nil
}

// Do runs fn as the session's single writer and persists the session
// afterwards. fn's context is cancelled by Signal. The session is saved even
// when fn fails, so fn must leave it consistent.
func (r *Registry) Do(ctx context.Context, id string, fn func(ctx context.Context, s *Session) error) error {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return err
	}

	e.writer.Lock()
	defer e.writer.Unlock()

	turnCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	e.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		e.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	fnErr := fn(turnCtx, e.sess)

	if r.store != nil {
		// The turn context may be cancelled; persistence must still happen.
		if err := r.store.Save(context.WithoutCancel(ctx), e.sess); err != nil {
			return errors.Join(fnErr, fmt.Errorf("saving session %s: %w", id, err))
		}
	}
	return fnErr
}

// View runs fn on a copy of the session under the writer lock.
func (r *Registry) View(ctx context.Context, id string, fn func(s *Session) error) error {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return err
	}
	e.writer.Lock()
	clone, err := e.sess.Clone()
	e.writer.Unlock()
	if err != nil {
		return err
	}
	return fn(clone)
}

// Signal cancels the turn running on id, if any, without waiting for the
// writer lock. It reports whether a turn was running.
func (r *Registry) Signal(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Archive marks a session archived and drops it from memory.
func (r *Registry) Archive(ctx context.Context, id string) error {
	err := r.Do(ctx, id, func(_ context.Context, s *Session) error {
		s.Status = StatusArchived
		s.Touch()
		return nil
	})
	if err != nil {
		return err
	}
	r.Evict(id)
	r.logger.Info("session archived", "session_id", id)
	return nil
}

// Evict drops a session from memory. The stored copy is kept.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// List returns stored sessions with the given status (all when empty),
// merged with the live ones, most recently updated first.
func (r *Registry) List(ctx context.Context, status Status) ([]Summary, error) {
	byID := make(map[string]Summary)
	if r.store != nil {
		stored, err := r.store.List(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, s := range stored {
			byID[s.ID] = s
		}
	}

	r.mu.Lock()
	live := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		live = append(live, e)
	}
	r.mu.Unlock()
	for _, e := range live {
		if !e.writer.TryLock() {
			continue
		}
		sum := e.sess.Summarize()
		e.writer.Unlock()
		if status == "" || sum.Status == status {
			byID[sum.ID] = sum
		}
	}

	out := make([]Summary, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
