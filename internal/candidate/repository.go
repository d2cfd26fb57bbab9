package candidate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed store for the candidate pool. Rows are
// replaced wholesale on sync from the nutrient data service; clipped meals
// are inserted one at a time.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts or updates a candidate.
func (r *Repository) Save(ctx context.Context, c Candidate) error {
	if c.ID == "" {
		return fmt.Errorf("candidate has no id")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO candidates (id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		c.ID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save candidate %s: %w", c.ID, err)
	}
	return nil
}

// Candidates returns the whole pool ordered by candidate ID. Implements
// Source.
func (r *Repository) Candidates(ctx context.Context) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM candidates ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var pool []Candidate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		var c Candidate
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate row: %w", err)
		}
		pool = append(pool, c)
	}
	return pool, rows.Err()
}

// Get retrieves one candidate, or (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Candidate, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM candidates WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", id, err)
	}
	var c Candidate
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate %s: %w", id, err)
	}
	return &c, nil
}
