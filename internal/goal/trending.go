package goal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// TrendingLabel is one row of the trending counter, exported to the
// analytics collaborator that decides on promoting labels to kinds.
type TrendingLabel struct {
	Label    string    `json:"label"`
	Hits     int64     `json:"hits"`
	LastSeen time.Time `json:"last_seen"`
}

// TrendingStore persists label counters to SQLite.
type TrendingStore struct {
	db *sql.DB
}

// NewTrendingStore wraps an existing database connection.
func NewTrendingStore(db *sql.DB) *TrendingStore {
	return &TrendingStore{db: db}
}

// RecordLabel increments the counter for a normalized label.
func (s *TrendingStore) RecordLabel(ctx context.Context, label string) error {
	if label == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trending_labels (label, hits, last_seen)
		VALUES (?, 1, ?)
		ON CONFLICT(label) DO UPDATE SET
			hits = hits + 1,
			last_seen = excluded.last_seen`,
		label, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record trending label: %w", err)
	}
	return nil
}

// Top returns the most-resolved labels, highest hit count first, label order
// breaking ties.
func (s *TrendingStore) Top(ctx context.Context, limit int) ([]TrendingLabel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, hits, last_seen
		FROM trending_labels
		ORDER BY hits DESC, label ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending labels: %w", err)
	}
	defer rows.Close()

	var labels []TrendingLabel
	for rows.Next() {
		var tl TrendingLabel
		if err := rows.Scan(&tl.Label, &tl.Hits, &tl.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan trending label: %w", err)
		}
		labels = append(labels, tl)
	}
	return labels, rows.Err()
}

// MemoryTrending is an in-memory recorder for tests and CLI dry runs.
type MemoryTrending struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryTrending creates an empty in-memory recorder.
func NewMemoryTrending() *MemoryTrending {
	return &MemoryTrending{counts: make(map[string]int64)}
}

// RecordLabel increments the in-memory counter.
func (m *MemoryTrending) RecordLabel(_ context.Context, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[label]++
	return nil
}

// Count returns the hits recorded for a label.
func (m *MemoryTrending) Count(label string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[label]
}
