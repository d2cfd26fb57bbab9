package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileStore provides a file-based candidate pool, one JSON file per
// candidate. The CLI's seed-candidates command imports such a directory
// into the database, so a pool can be assembled by hand.
type FileStore struct {
	basePath string
}

// NewFileStore creates a FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create candidate directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.basePath, id+".json")
}

// Save writes a candidate to its own file.
func (s *FileStore) Save(c Candidate) error {
	if c.ID == "" {
		return fmt.Errorf("candidate has no id")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal candidate: %w", err)
	}
	if err := os.WriteFile(s.path(c.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write candidate file: %w", err)
	}
	return nil
}

// Candidates loads every candidate file, ordered by ID. Implements Source.
func (s *FileStore) Candidates(_ context.Context) ([]Candidate, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob candidate files: %w", err)
	}
	sort.Strings(matches)

	var pool []Candidate
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate file %s: %w", path, err)
		}
		var c Candidate
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate file %s: %w", path, err)
		}
		pool = append(pool, c)
	}
	return pool, nil
}
