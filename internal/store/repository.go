package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kotadb/internal/kerrors"
)

// Repository is a single indexed codebase root.
type Repository struct {
	ID            string
	FullName      string
	GitURL        string
	CreatedAt     time.Time
	LastIndexedAt *time.Time
}

// UpsertRepository inserts a Repository or returns the existing row keyed
// by the unique full_name.
func (s *Store) UpsertRepository(fullName, gitURL string) (*Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.getRepositoryByFullNameLocked(fullName); err == nil {
		return existing, nil
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO repositories (id, full_name, git_url) VALUES (?, ?, ?)",
		id, fullName, gitURL,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert repository: %v", kerrors.ErrConflict, err)
	}

	return s.getRepositoryByFullNameLocked(fullName)
}

func (s *Store) getRepositoryByFullNameLocked(fullName string) (*Repository, error) {
	row := s.db.QueryRow(
		"SELECT id, full_name, git_url, created_at, last_indexed_at FROM repositories WHERE full_name = ?",
		fullName,
	)
	return scanRepository(row)
}

// GetRepository fetches a Repository by id.
func (s *Store) GetRepository(id string) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, full_name, git_url, created_at, last_indexed_at FROM repositories WHERE id = ?",
		id,
	)
	repo, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: repository %s", kerrors.ErrNotFound, id)
	}
	return repo, err
}

// TouchLastIndexed advances Repository.last_indexed_at to now. The spec
// requires this value be non-decreasing, which a plain overwrite with the
// current timestamp already satisfies for a single-writer store.
func (s *Store) TouchLastIndexed(repositoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE repositories SET last_indexed_at = CURRENT_TIMESTAMP WHERE id = ?",
		repositoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last_indexed_at: %w", err)
	}
	return nil
}

func scanRepository(row *sql.Row) (*Repository, error) {
	var r Repository
	var lastIndexed sql.NullTime
	if err := row.Scan(&r.ID, &r.FullName, &r.GitURL, &r.CreatedAt, &lastIndexed); err != nil {
		return nil, err
	}
	if lastIndexed.Valid {
		r.LastIndexedAt = &lastIndexed.Time
	}
	return &r, nil
}
