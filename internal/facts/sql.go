package facts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ziadkadry99/auto-analyst/internal/db"
)

// SQLStore mirrors session fact logs into the facts table so the history of
// every key can be audited outside the session snapshot.
type SQLStore struct {
	db *db.DB
}

// NewSQLStore creates a fact mirror backed by the given database.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

// Save upserts every fact of the log. Supersession links are refreshed
// because they are set after the superseded fact was first written.
func (s *SQLStore) Save(ctx context.Context, sessionID string, log []Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning fact transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facts (id, session_id, key, value, source, version, superseded_by, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET superseded_by = excluded.superseded_by`)
	if err != nil {
		return fmt.Errorf("preparing fact insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range log {
		var superseded sql.NullString
		if f.SupersededBy != "" {
			superseded = sql.NullString{String: f.SupersededBy, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, f.ID, sessionID, f.Key, f.Value, string(f.Source), f.Version, superseded, f.RecordedAt); err != nil {
			return fmt.Errorf("saving fact %s: %w", f.Key, err)
		}
	}
	return tx.Commit()
}

// History returns every stored version of key for a session, oldest first.
func (s *SQLStore) History(ctx context.Context, sessionID, key string) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, value, source, version, superseded_by, recorded_at
		 FROM facts WHERE session_id = ? AND key = ? ORDER BY version ASC`, sessionID, key)
	if err != nil {
		return nil, fmt.Errorf("querying fact history: %w", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var f Fact
		var source string
		var superseded sql.NullString
		if err := rows.Scan(&f.ID, &f.Key, &f.Value, &source, &f.Version, &superseded, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		f.Source = Source(source)
		f.SupersededBy = superseded.String
		out = append(out, f)
	}
	return out, rows.Err()
}
