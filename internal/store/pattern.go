package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"kotadb/internal/kerrors"
)

// Pattern records a recurring implementation approach worth reusing.
type Pattern struct {
	ID           string
	RepositoryID string
	PatternType  string
	FilePath     string
	Description  string
	Example      string
}

// UpsertPattern inserts a Pattern or updates the existing row for the same
// unique pattern_type.
func (s *Store) UpsertPattern(p Pattern) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	err := s.db.QueryRow("SELECT id FROM patterns WHERE pattern_type = ?", p.PatternType).Scan(&existingID)
	switch err {
	case nil:
		_, err = s.db.Exec(
			"UPDATE patterns SET file_path = ?, description = ?, example = ? WHERE id = ?",
			p.FilePath, p.Description, p.Example, existingID,
		)
		if err != nil {
			return "", fmt.Errorf("failed to update pattern: %w", err)
		}
		return existingID, nil
	case sql.ErrNoRows:
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = s.db.Exec(
			`INSERT INTO patterns (id, repository_id, pattern_type, file_path, description, example)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, nullableString(p.RepositoryID), p.PatternType, p.FilePath, p.Description, p.Example,
		)
		if err != nil {
			return "", fmt.Errorf("%w: insert pattern: %v", kerrors.ErrConflict, err)
		}
		return id, nil
	default:
		return "", fmt.Errorf("failed to look up pattern: %w", err)
	}
}

// SearchPatterns returns patterns most-recent-first, optionally filtered by
// pattern_type, file_path, and repository_id. No FTS ranking (§4.5).
func (s *Store) SearchPatterns(patternType, filePath, repositoryID string, limit int) ([]Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, repository_id, pattern_type, file_path, description, example FROM patterns WHERE 1=1"
	var args []interface{}
	if patternType != "" {
		query += " AND pattern_type = ?"
		args = append(args, patternType)
	}
	if filePath != "" {
		query += " AND file_path = ?"
		args = append(args, filePath)
	}
	if repositoryID != "" {
		query += " AND repository_id = ?"
		args = append(args, repositoryID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search patterns: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		var repoID, filePathCol sql.NullString
		if err := rows.Scan(&p.ID, &repoID, &p.PatternType, &filePathCol, &p.Description, &p.Example); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.RepositoryID = repoID.String
		p.FilePath = filePathCol.String
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
