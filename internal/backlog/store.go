package backlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ziadkadry99/auto-analyst/internal/db"
)

// Store persists synthesized generations of epics, stories, and violations.
type Store struct {
	db *db.DB
}

// NewStore creates a new backlog store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// SaveGeneration replaces the stored rows of one generation.
func (s *Store) SaveGeneration(ctx context.Context, sessionID string, g Generation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"epics", "stories", "violations"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE session_id = ? AND generation = ?`, sessionID, g.Number,
		); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for i, e := range g.Epics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO epics (id, session_id, generation, title, goal, source, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, sessionID, g.Number, e.Title, e.Goal, e.Source, i,
		); err != nil {
			return fmt.Errorf("inserting epic %s: %w", e.ID, err)
		}
	}

	for i, st := range g.Stories {
		criteria, err := json.Marshal(st.AcceptanceCriteria)
		if err != nil {
			return fmt.Errorf("encoding criteria: %w", err)
		}
		deps, err := json.Marshal(st.DependsOn)
		if err != nil {
			return fmt.Errorf("encoding dependencies: %w", err)
		}
		status := st.Status
		if status == "" {
			status = StatusDraft
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stories (id, session_id, generation, epic_id, title, description, acceptance_criteria, status, estimate, priority, depends_on, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.ID, sessionID, g.Number, st.EpicID, st.Title, st.Description, string(criteria), status, st.Estimate, st.Priority, string(deps), i,
		); err != nil {
			return fmt.Errorf("inserting story %s: %w", st.ID, err)
		}
	}

	for _, v := range g.Violations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO violations (session_id, generation, rule, severity, epic_id, story_id, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, g.Number, v.Rule, v.Severity, v.EpicID, v.StoryID, v.Message,
		); err != nil {
			return fmt.Errorf("inserting violation: %w", err)
		}
	}

	return tx.Commit()
}

// Latest returns the highest stored generation for a session, or nil if
// nothing has been synthesized yet.
func (s *Store) Latest(ctx context.Context, sessionID string) (*Generation, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(generation) FROM epics WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("finding latest generation: %w", err)
	}
	if !n.Valid {
		return nil, nil
	}
	return s.Get(ctx, sessionID, int(n.Int64))
}

// Get loads one generation.
func (s *Store) Get(ctx context.Context, sessionID string, generation int) (*Generation, error) {
	g := &Generation{Number: generation}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, goal, source FROM epics
		 WHERE session_id = ? AND generation = ? ORDER BY position`, sessionID, generation)
	if err != nil {
		return nil, fmt.Errorf("listing epics: %w", err)
	}
	for rows.Next() {
		var e Epic
		if err := rows.Scan(&e.ID, &e.Title, &e.Goal, &e.Source); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning epic: %w", err)
		}
		g.Epics = append(g.Epics, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, epic_id, title, description, acceptance_criteria, status, estimate, priority, depends_on FROM stories
		 WHERE session_id = ? AND generation = ? ORDER BY position`, sessionID, generation)
	if err != nil {
		return nil, fmt.Errorf("listing stories: %w", err)
	}
	for rows.Next() {
		var st Story
		var criteria, deps string
		if err := rows.Scan(&st.ID, &st.EpicID, &st.Title, &st.Description, &criteria, &st.Status, &st.Estimate, &st.Priority, &deps); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning story: %w", err)
		}
		if err := json.Unmarshal([]byte(criteria), &st.AcceptanceCriteria); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding criteria of %s: %w", st.ID, err)
		}
		if err := json.Unmarshal([]byte(deps), &st.DependsOn); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding dependencies of %s: %w", st.ID, err)
		}
		g.Stories = append(g.Stories, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range g.Epics {
		for _, st := range g.Stories {
			if st.EpicID == g.Epics[i].ID {
				g.Epics[i].StoryIDs = append(g.Epics[i].StoryIDs, st.ID)
			}
		}
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT rule, severity, epic_id, story_id, message FROM violations
		 WHERE session_id = ? AND generation = ? ORDER BY id`, sessionID, generation)
	if err != nil {
		return nil, fmt.Errorf("listing violations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.Rule, &v.Severity, &v.EpicID, &v.StoryID, &v.Message); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		g.Violations = append(g.Violations, v)
	}
	return g, rows.Err()
}

// CountBySeverity returns how many violations of each severity the
// generation recorded.
func (s *Store) CountBySeverity(ctx context.Context, sessionID string, generation int) (map[Severity]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT severity, COUNT(*) FROM violations
		 WHERE session_id = ? AND generation = ? GROUP BY severity`, sessionID, generation)
	if err != nil {
		return nil, fmt.Errorf("counting violations: %w", err)
	}
	defer rows.Close()

	counts := make(map[Severity]int)
	for rows.Next() {
		var sev Severity
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		counts[sev] = n
	}
	return counts, rows.Err()
}
