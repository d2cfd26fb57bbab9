package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed store for generated meal plans. Plans are
// kept as JSON documents; only the newest version per user matters at read
// time, older rows stay for history.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save persists a plan for a user.
func (r *Repository) Save(ctx context.Context, userID string, p MealPlan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (user_id, plan_version, plan_data, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, p.PlanVersion, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save meal plan for user %s: %w", userID, err)
	}
	return nil
}

// Latest returns the user's newest plan by version, or (nil, nil) when the
// user has none yet.
func (r *Repository) Latest(ctx context.Context, userID string) (*MealPlan, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT plan_data FROM meal_plans
		WHERE user_id = ?
		ORDER BY plan_version DESC, id DESC
		LIMIT 1`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest plan for user %s: %w", userID, err)
	}
	var p MealPlan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan for user %s: %w", userID, err)
	}
	return &p, nil
}

// LatestVersion returns the newest stored plan version for a user, 0 when
// none exists. The app layer seeds its in-memory version counter from this
// on restart.
func (r *Repository) LatestVersion(ctx context.Context, userID string) (int64, error) {
	var v sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(plan_version) FROM meal_plans WHERE user_id = ?`, userID).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read plan version for user %s: %w", userID, err)
	}
	if !v.Valid {
		return 0, nil
	}
	return v.Int64, nil
}

// Cleanup removes plan rows older than the retention window, keeping at
// least the newest row per user via the version guard.
func (r *Repository) Cleanup(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC()
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM meal_plans
		WHERE created_at < ?
		AND plan_version < (
			SELECT MAX(p2.plan_version) FROM meal_plans p2
			WHERE p2.user_id = meal_plans.user_id
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up meal plans: %w", err)
	}
	return res.RowsAffected()
}
