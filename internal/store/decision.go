package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Decision scopes, per §3's Data Model.
const (
	DecisionArchitecture = "architecture"
	DecisionPattern      = "pattern"
	DecisionConvention   = "convention"
	DecisionWorkaround   = "workaround"
)

// Decision records an architectural or convention choice with its rationale.
type Decision struct {
	ID           string
	RepositoryID string
	Title        string
	Context      string
	DecisionText string
	Scope        string
	Rationale    string
	Alternatives []string
	RelatedFiles []string
}

// InsertDecision inserts a Decision; its fts5 shadow row is populated by
// the decisions_ai trigger.
func (s *Store) InsertDecision(d Decision) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO decisions (id, repository_id, title, context, decision, scope, rationale, alternatives, related_files)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, nullableString(d.RepositoryID), d.Title, d.Context, d.DecisionText, d.Scope,
		d.Rationale, marshalStrings(d.Alternatives), marshalStrings(d.RelatedFiles),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert decision: %w", err)
	}
	return d.ID, nil
}

// SearchDecisions runs a BM25-ranked FTS query over title|context|decision|rationale.
func (s *Store) SearchDecisions(query string, limit int) ([]Decision, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := searchDecisionsFTS(s.db, query, limit)
	if err != nil {
		return nil, nil, err
	}

	var decisions []Decision
	var scores []float64
	for _, h := range hits {
		row := s.db.QueryRow(
			`SELECT id, repository_id, title, context, decision, scope, rationale, alternatives, related_files
			 FROM decisions WHERE rowid = ?`, h.RowID,
		)
		d, err := scanDecision(row)
		if err != nil {
			continue
		}
		decisions = append(decisions, *d)
		scores = append(scores, h.Score)
	}
	return decisions, scores, nil
}

func scanDecision(row *sql.Row) (*Decision, error) {
	var d Decision
	var repoID, alternatives, relatedFiles sql.NullString
	if err := row.Scan(&d.ID, &repoID, &d.Title, &d.Context, &d.DecisionText, &d.Scope, &d.Rationale, &alternatives, &relatedFiles); err != nil {
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}
	d.RepositoryID = repoID.String
	d.Alternatives = unmarshalStrings(alternatives.String)
	d.RelatedFiles = unmarshalStrings(relatedFiles.String)
	return &d, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
