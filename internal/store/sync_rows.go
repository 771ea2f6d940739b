package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// This file backs internal/sync's export/import: one ListAllX per syncable
// table (rows ordered by primary key, for stable hashing and JSONL output)
// and one ImportX per table (INSERT OR REPLACE by the row's own id, used to
// replay an imported JSONL stream verbatim rather than through each table's
// production Upsert, which dedupes by a business key instead of id).

// ListAllRepositories returns every Repository ordered by id.
func (s *Store) ListAllRepositories() ([]Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, full_name, git_url, created_at, last_indexed_at FROM repositories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var out []Repository
	for rows.Next() {
		var r Repository
		var lastIndexed sql.NullTime
		if err := rows.Scan(&r.ID, &r.FullName, &r.GitURL, &r.CreatedAt, &lastIndexed); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		if lastIndexed.Valid {
			r.LastIndexedAt = &lastIndexed.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ImportRepository replays a Repository row verbatim, preserving its id.
func ImportRepository(tx *sql.Tx, r Repository) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO repositories (id, full_name, git_url, created_at, last_indexed_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.FullName, r.GitURL, r.CreatedAt, r.LastIndexedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to import repository: %w", err)
	}
	return nil
}

// ListAllFiles returns every File ordered by id.
func (s *Store) ListAllFiles() ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, repository_id, path, language, content_hash, size, content, indexed_at FROM files ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ImportFile replays a File row verbatim, preserving its id.
func ImportFile(tx *sql.Tx, f File) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO files (id, repository_id, path, language, content_hash, size, content, indexed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RepositoryID, f.Path, f.Language, f.ContentHash, f.Size, f.Content, f.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to import file: %w", err)
	}
	return nil
}

// ListAllSymbols returns every Symbol ordered by id.
func (s *Store) ListAllSymbols() ([]Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, file_id, name, kind, signature, documentation, line_start, line_end, metadata FROM symbols ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var out []Symbol
	for rows.Next() {
		sym, meta, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		sym.Metadata = meta
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ImportSymbol replays a Symbol row verbatim, preserving its id.
func ImportSymbol(tx *sql.Tx, sym Symbol) error {
	var metaJSON []byte
	if sym.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(sym.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal symbol metadata: %w", err)
		}
	}
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO symbols (id, file_id, name, kind, signature, documentation, line_start, line_end, metadata) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.ID, sym.FileID, sym.Name, sym.Kind, sym.Signature, sym.Documentation, sym.LineStart, sym.LineEnd, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to import symbol: %w", err)
	}
	return nil
}

// ListAllReferences returns every Reference ordered by id.
func (s *Store) ListAllReferences() ([]Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, file_id, target_file_path, target_symbol_name, reference_type, import_source FROM references_ ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// ImportReference replays a Reference row verbatim, preserving its id.
func ImportReference(tx *sql.Tx, ref Reference) error {
	var targetPath interface{}
	if ref.TargetFilePath != "" {
		targetPath = ref.TargetFilePath
	}
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO references_ (id, file_id, target_file_path, target_symbol_name, reference_type, import_source) VALUES (?, ?, ?, ?, ?, ?)`,
		ref.ID, ref.FileID, targetPath, ref.TargetSymbolName, ref.ReferenceType, ref.ImportSource,
	)
	if err != nil {
		return fmt.Errorf("failed to import reference: %w", err)
	}
	return nil
}

// ListAllDecisions returns every Decision ordered by id.
func (s *Store) ListAllDecisions() ([]Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, repository_id, title, context, decision, scope, rationale, alternatives, related_files FROM decisions ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var repoID, alternatives, relatedFiles sql.NullString
		if err := rows.Scan(&d.ID, &repoID, &d.Title, &d.Context, &d.DecisionText, &d.Scope, &d.Rationale, &alternatives, &relatedFiles); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.RepositoryID = repoID.String
		d.Alternatives = unmarshalStrings(alternatives.String)
		d.RelatedFiles = unmarshalStrings(relatedFiles.String)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ImportDecision replays a Decision row verbatim, preserving its id; the
// decisions_ai trigger repopulates its fts5 shadow row.
func ImportDecision(tx *sql.Tx, d Decision) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO decisions (id, repository_id, title, context, decision, scope, rationale, alternatives, related_files) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, nullableString(d.RepositoryID), d.Title, d.Context, d.DecisionText, d.Scope,
		d.Rationale, marshalStrings(d.Alternatives), marshalStrings(d.RelatedFiles),
	)
	if err != nil {
		return fmt.Errorf("failed to import decision: %w", err)
	}
	return nil
}

// ListAllFailures returns every Failure ordered by id.
func (s *Store) ListAllFailures() ([]Failure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, repository_id, title, problem, approach, failure_reason, related_files FROM failures ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var repoID, relatedFiles sql.NullString
		if err := rows.Scan(&f.ID, &repoID, &f.Title, &f.Problem, &f.Approach, &f.FailureReason, &relatedFiles); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.RepositoryID = repoID.String
		f.RelatedFiles = unmarshalStrings(relatedFiles.String)
		out = append(out, f)
	}
	return out, rows.Err()
}

// ImportFailure replays a Failure row verbatim, preserving its id.
func ImportFailure(tx *sql.Tx, f Failure) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO failures (id, repository_id, title, problem, approach, failure_reason, related_files) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullableString(f.RepositoryID), f.Title, f.Problem, f.Approach, f.FailureReason, marshalStrings(f.RelatedFiles),
	)
	if err != nil {
		return fmt.Errorf("failed to import failure: %w", err)
	}
	return nil
}

// ListAllPatterns returns every Pattern ordered by id.
func (s *Store) ListAllPatterns() ([]Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, repository_id, pattern_type, file_path, description, example FROM patterns ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		var p Pattern
		var repoID, filePath sql.NullString
		if err := rows.Scan(&p.ID, &repoID, &p.PatternType, &filePath, &p.Description, &p.Example); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.RepositoryID = repoID.String
		p.FilePath = filePath.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// ImportPattern replays a Pattern row verbatim, preserving its id.
func ImportPattern(tx *sql.Tx, p Pattern) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO patterns (id, repository_id, pattern_type, file_path, description, example) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, nullableString(p.RepositoryID), p.PatternType, p.FilePath, p.Description, p.Example,
	)
	if err != nil {
		return fmt.Errorf("failed to import pattern: %w", err)
	}
	return nil
}

// ListAllInsights returns every Insight ordered by id.
func (s *Store) ListAllInsights() ([]Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, session_id, content, insight_type, related_file FROM insights ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	var out []Insight
	for rows.Next() {
		var i Insight
		var sessionID, relatedFile sql.NullString
		if err := rows.Scan(&i.ID, &sessionID, &i.Content, &i.InsightType, &relatedFile); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		i.SessionID = sessionID.String
		i.RelatedFile = relatedFile.String
		out = append(out, i)
	}
	return out, rows.Err()
}

// ImportInsight replays an Insight row verbatim, preserving its id.
func ImportInsight(tx *sql.Tx, i Insight) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO insights (id, session_id, content, insight_type, related_file) VALUES (?, ?, ?, ?, ?)`,
		i.ID, nullableString(i.SessionID), i.Content, i.InsightType, nullableString(i.RelatedFile),
	)
	if err != nil {
		return fmt.Errorf("failed to import insight: %w", err)
	}
	return nil
}

// ListAllWorkflowContexts returns every WorkflowContext ordered by id.
func (s *Store) ListAllWorkflowContexts() ([]WorkflowContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, workflow_id, phase, context_data FROM workflow_contexts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow contexts: %w", err)
	}
	defer rows.Close()

	var out []WorkflowContext
	for rows.Next() {
		var wc WorkflowContext
		if err := rows.Scan(&wc.ID, &wc.WorkflowID, &wc.Phase, &wc.ContextData); err != nil {
			return nil, fmt.Errorf("failed to scan workflow context: %w", err)
		}
		out = append(out, wc)
	}
	return out, rows.Err()
}

// ImportWorkflowContext replays a WorkflowContext row verbatim, preserving
// its id.
func ImportWorkflowContext(tx *sql.Tx, wc WorkflowContext) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO workflow_contexts (id, workflow_id, phase, context_data) VALUES (?, ?, ?, ?)`,
		wc.ID, wc.WorkflowID, wc.Phase, wc.ContextData,
	)
	if err != nil {
		return fmt.Errorf("failed to import workflow context: %w", err)
	}
	return nil
}

// DeleteRowByID removes a single row from table by id, used by sync import
// to apply the deletion manifest before streaming table data.
func DeleteRowByID(tx *sql.Tx, table, id string) error {
	_, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s row %s: %w", table, id, err)
	}
	return nil
}
