package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kotadb/internal/kerrors"
)

// File is a single source file owned by a Repository.
type File struct {
	ID           string
	RepositoryID string
	Path         string
	Language     string
	ContentHash  string
	Size         int64
	Content      string
	IndexedAt    time.Time
}

// UpsertFile inserts or updates a File keyed by (repository_id, path),
// returning the resulting row. The caller is responsible for deleting and
// re-inserting that file's Symbols/References in the same transaction per
// §4.4's ordering guarantee — use WithTx for that.
func (s *Store) UpsertFile(tx *sql.Tx, f File) (*File, error) {
	existing, err := queryFileByPath(tx, f.RepositoryID, f.Path)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to look up file: %w", err)
	}

	id := f.ID
	if existing != nil {
		id = existing.ID
		_, err = tx.Exec(
			`UPDATE files SET language = ?, content_hash = ?, size = ?, content = ?,
			 indexed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			f.Language, f.ContentHash, f.Size, f.Content, id,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update file: %w", err)
		}
	} else {
		if id == "" {
			id = uuid.NewString()
		}
		_, err = tx.Exec(
			`INSERT INTO files (id, repository_id, path, language, content_hash, size, content)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, f.RepositoryID, f.Path, f.Language, f.ContentHash, f.Size, f.Content,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: insert file: %v", kerrors.ErrConflict, err)
		}
	}

	return queryFileByID(tx, id)
}

// DeleteFile removes a File; CASCADE removes its Symbols and References.
func (s *Store) DeleteFile(tx *sql.Tx, fileID string) error {
	_, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetFileByPath resolves a File by repository and path, used by
// resolve_file_path and module-resolution logic.
func (s *Store) GetFileByPath(repositoryID, path string) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE repository_id = ? AND path = ?",
		repositoryID, path,
	)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: file %s", kerrors.ErrNotFound, path)
	}
	return f, err
}

// ListFilesByRepository returns every File owned by a repository, used by
// module resolution during an incremental index.
func (s *Store) ListFilesByRepository(repositoryID string) ([]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE repository_id = ?",
		repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// fileByIDLocked is the lock-free counterpart of a by-ID lookup, used by
// traversal code that already holds the Store's RLock.
func (s *Store) fileByIDLocked(id string) (*File, error) {
	row := s.db.QueryRow(
		"SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE id = ?",
		id,
	)
	return scanFile(row)
}

// listFilesByRepositoryLocked is the lock-free counterpart of
// ListFilesByRepository, used by traversal code that already holds the
// Store's RLock for the whole operation.
func (s *Store) listFilesByRepositoryLocked(repositoryID string) ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE repository_id = ?",
		repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListRecentFiles returns the most recently indexed files, optionally
// scoped to a repository, newest first — backs the list_recent_files tool.
func (s *Store) ListRecentFiles(repositoryID string, limit int) ([]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE 1=1"
	var args []interface{}
	if repositoryID != "" {
		query += " AND repository_id = ?"
		args = append(args, repositoryID)
	}
	query += " ORDER BY indexed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SearchFiles finds files whose path or content contains term, boosting
// path matches above pure content matches, ties broken by indexed_at
// descending.
func (s *Store) SearchFiles(term, repositoryID string, limit int) ([]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, repository_id, path, language, content_hash, size, content, indexed_at
		FROM files
		WHERE (path LIKE ? OR content LIKE ?)`
	like := "%" + term + "%"
	args := []interface{}{like, like}

	if repositoryID != "" {
		query += " AND repository_id = ?"
		args = append(args, repositoryID)
	}
	query += " ORDER BY (CASE WHEN path LIKE ? THEN 0 ELSE 1 END) ASC, indexed_at DESC LIMIT ?"
	args = append(args, like, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func queryFileByPath(tx *sql.Tx, repositoryID, path string) (*File, error) {
	row := tx.QueryRow(
		"SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE repository_id = ? AND path = ?",
		repositoryID, path,
	)
	return scanFile(row)
}

func queryFileByID(tx *sql.Tx, id string) (*File, error) {
	row := tx.QueryRow(
		"SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files WHERE id = ?",
		id,
	)
	return scanFile(row)
}

func scanFile(row *sql.Row) (*File, error) {
	var f File
	var content sql.NullString
	if err := row.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Language, &f.ContentHash, &f.Size, &content, &f.IndexedAt); err != nil {
		return nil, err
	}
	f.Content = content.String
	return &f, nil
}

func scanFileRows(rows *sql.Rows) (*File, error) {
	var f File
	var content sql.NullString
	if err := rows.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Language, &f.ContentHash, &f.Size, &content, &f.IndexedAt); err != nil {
		return nil, err
	}
	f.Content = content.String
	return &f, nil
}
