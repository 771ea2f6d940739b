package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Failure records an approach that was tried and didn't work, kept as a
// search target so future agents don't repeat it.
type Failure struct {
	ID            string
	RepositoryID  string
	Title         string
	Problem       string
	Approach      string
	FailureReason string
	RelatedFiles  []string
}

// InsertFailure inserts a Failure; its fts5 shadow row is populated by the
// failures_ai trigger.
func (s *Store) InsertFailure(f Failure) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO failures (id, repository_id, title, problem, approach, failure_reason, related_files)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullableString(f.RepositoryID), f.Title, f.Problem, f.Approach, f.FailureReason, marshalStrings(f.RelatedFiles),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert failure: %w", err)
	}
	return f.ID, nil
}

// SearchFailures runs a BM25-ranked FTS query over title|problem|approach|failure_reason.
func (s *Store) SearchFailures(query string, limit int) ([]Failure, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := searchFailuresFTS(s.db, query, limit)
	if err != nil {
		return nil, nil, err
	}

	var failures []Failure
	var scores []float64
	for _, h := range hits {
		row := s.db.QueryRow(
			`SELECT id, repository_id, title, problem, approach, failure_reason, related_files
			 FROM failures WHERE rowid = ?`, h.RowID,
		)
		f, err := scanFailure(row)
		if err != nil {
			continue
		}
		failures = append(failures, *f)
		scores = append(scores, h.Score)
	}
	return failures, scores, nil
}

func scanFailure(row *sql.Row) (*Failure, error) {
	var f Failure
	var repoID, relatedFiles sql.NullString
	if err := row.Scan(&f.ID, &repoID, &f.Title, &f.Problem, &f.Approach, &f.FailureReason, &relatedFiles); err != nil {
		return nil, fmt.Errorf("failed to scan failure: %w", err)
	}
	f.RepositoryID = repoID.String
	f.RelatedFiles = unmarshalStrings(relatedFiles.String)
	return &f, nil
}
