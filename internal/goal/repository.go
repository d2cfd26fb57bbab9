package goal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed store for user goal sets. Goals are stored
// as JSON documents keyed by goal ID, one row per goal per user.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts or replaces a goal for a user.
func (r *Repository) Save(ctx context.Context, userID string, g Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal goal: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		g.ID, userID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save goal %s: %w", g.ID, err)
	}
	return nil
}

// Get retrieves a single goal by ID, or (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, userID, goalID string) (*Goal, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM goals WHERE id = ? AND user_id = ?`, goalID, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal %s: %w", goalID, err)
	}
	var g Goal
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal goal %s: %w", goalID, err)
	}
	return &g, nil
}

// ListActive returns the user's goal set ordered by goal ID for deterministic
// downstream merging.
func (r *Repository) ListActive(ctx context.Context, userID string) ([]Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM goals WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals for user %s: %w", userID, err)
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan goal row: %w", err)
		}
		var g Goal
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goal row: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdatePriority rewrites a goal's priority in place and returns the updated
// snapshot. Returns (nil, nil) when the goal does not exist.
func (r *Repository) UpdatePriority(ctx context.Context, userID, goalID string, priority int) (*Goal, error) {
	if err := ValidatePriority(priority); err != nil {
		return nil, err
	}
	g, err := r.Get(ctx, userID, goalID)
	if err != nil || g == nil {
		return nil, err
	}
	g.Priority = priority
	if err := r.Save(ctx, userID, *g); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes a retracted goal.
func (r *Repository) Delete(ctx context.Context, userID, goalID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal %s: %w", goalID, err)
	}
	return nil
}
