package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/db"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
)

// SQLStore persists sessions in sqlite. The snapshot column is the source of
// truth; facts, options, and document generations are mirrored into their
// own tables for querying.
type SQLStore struct {
	db      *db.DB
	facts   *facts.SQLStore
	backlog *backlog.Store
}

// NewSQLStore creates a session store.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{
		db:      database,
		facts:   facts.NewSQLStore(database),
		backlog: backlog.NewStore(database),
	}
}

// Backlog exposes the document generation store.
func (s *SQLStore) Backlog() *backlog.Store { return s.backlog }

// Facts exposes the fact history mirror.
func (s *SQLStore) Facts() *facts.SQLStore { return s.facts }

// Save writes the snapshot and refreshes the mirrors.
func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	snap, err := sess.Snapshot()
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, phase, status, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET phase = excluded.phase, status = excluded.status,
		   snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		sess.ID, sess.Phase, sess.Status, string(snap), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}

	if err := s.facts.Save(ctx, sess.ID, sess.Facts.All()); err != nil {
		return err
	}
	if err := s.saveOptions(ctx, sess); err != nil {
		return err
	}
	if doc := sess.Document(); doc != nil {
		if err := s.backlog.SaveGeneration(ctx, sess.ID, doc.BacklogGeneration()); err != nil {
			return fmt.Errorf("saving document generation %d: %w", doc.Generation, err)
		}
	}
	return nil
}

func (s *SQLStore) saveOptions(ctx context.Context, sess *Session) error {
	presented := make(map[string]bool, len(sess.Presented))
	for _, id := range sess.Presented {
		presented[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning option transaction: %w", err)
	}
	defer tx.Rollback()

	for _, o := range sess.Options {
		tradeoffs, _ := json.Marshal(o.Tradeoffs)
		refs, _ := json.Marshal(o.SourceRefs)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO solution_options (id, session_id, topic, summary, rationale, tradeoffs, source_refs, score, presented, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, id) DO UPDATE SET presented = excluded.presented`,
			o.ID, sess.ID, o.Topic, o.Summary, o.Rationale, string(tradeoffs), string(refs), o.Score, presented[o.ID], timeNow(),
		); err != nil {
			return fmt.Errorf("saving option %s: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

// Load restores a session from its snapshot.
func (s *SQLStore) Load(ctx context.Context, id string) (*Session, error) {
	var snap string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return Restore([]byte(snap))
}

// List returns summaries of stored sessions, filtered by status when set.
func (s *SQLStore) List(ctx context.Context, status Status) ([]Summary, error) {
	query := `SELECT s.id, s.phase, s.status, s.created_at, s.updated_at,
		(SELECT COUNT(*) FROM facts f WHERE f.session_id = s.id)
		FROM sessions s`
	var args []any
	if status != "" {
		query += ` WHERE s.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY s.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Phase, &sum.Status, &sum.CreatedAt, &sum.UpdatedAt, &sum.Facts); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
