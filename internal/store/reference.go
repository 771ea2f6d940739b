package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Reference types, per §3's Data Model.
const (
	ReferenceImport        = "import"
	ReferenceReExport      = "re_export"
	ReferenceExportAll     = "export_all"
	ReferenceDynamicImport = "dynamic_import"
)

// Reference is a single directed edge in the file-level dependency graph.
type Reference struct {
	ID               string
	FileID           string
	TargetFilePath   string
	TargetSymbolName string
	ReferenceType    string
	ImportSource     string
}

// DeleteReferencesForFile removes all References owned by a file.
func DeleteReferencesForFile(tx *sql.Tx, fileID string) error {
	_, err := tx.Exec("DELETE FROM references_ WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete references: %w", err)
	}
	return nil
}

// InsertReference inserts a single Reference row. TargetFilePath is left
// empty (stored as NULL) when the reference is unresolved.
func InsertReference(tx *sql.Tx, ref Reference) error {
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	var targetPath interface{}
	if ref.TargetFilePath != "" {
		targetPath = ref.TargetFilePath
	}
	_, err := tx.Exec(
		`INSERT INTO references_ (id, file_id, target_file_path, target_symbol_name, reference_type, import_source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ref.ID, ref.FileID, targetPath, ref.TargetSymbolName, ref.ReferenceType, ref.ImportSource,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reference: %w", err)
	}
	return nil
}

// UpdateReferenceTarget re-resolves a single reference's target path,
// used by incremental indexing when a previously unresolved import starts
// resolving to a newly-added file (or vice versa).
func UpdateReferenceTarget(tx *sql.Tx, referenceID, targetFilePath string) error {
	var targetPath interface{}
	if targetFilePath != "" {
		targetPath = targetFilePath
	}
	_, err := tx.Exec("UPDATE references_ SET target_file_path = ? WHERE id = ?", targetPath, referenceID)
	if err != nil {
		return fmt.Errorf("failed to update reference target: %w", err)
	}
	return nil
}

// ReferencesTargeting returns every Reference whose target_file_path equals
// path, used when re-resolving references after a file is added/removed
// during incremental indexing.
func (s *Store) ReferencesTargeting(path string) ([]Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referencesTargetingLocked(path)
}

func (s *Store) referencesTargetingLocked(path string) ([]Reference, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, target_file_path, target_symbol_name, reference_type, import_source FROM references_ WHERE target_file_path = ?",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// ReferencesFromFile returns every outbound Reference for a file, the edges
// used by dependency traversal.
func (s *Store) ReferencesFromFile(fileID string) ([]Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referencesFromFileLocked(fileID)
}

// referencesFromFileLocked is the lock-free counterpart used by traversal
// code that already holds the Store's RLock for the whole BFS, avoiding a
// nested-RLock deadlock the same way the teacher's query-layer split does.
func (s *Store) referencesFromFileLocked(fileID string) ([]Reference, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, target_file_path, target_symbol_name, reference_type, import_source FROM references_ WHERE file_id = ?",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// InboundReferenceCounts returns, for every resolved target_file_path
// reached from within a repository, the number of References pointing at
// it — the ranking signal behind get_domain_key_files.
func (s *Store) InboundReferenceCounts(repositoryID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT r.target_file_path, COUNT(*)
		 FROM references_ r
		 JOIN files f ON f.id = r.file_id
		 WHERE r.target_file_path IS NOT NULL AND f.repository_id = ?
		 GROUP BY r.target_file_path`,
		repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count inbound references: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var path string
		var count int
		if err := rows.Scan(&path, &count); err != nil {
			return nil, fmt.Errorf("failed to scan inbound reference count: %w", err)
		}
		counts[path] = count
	}
	return counts, rows.Err()
}

// UnresolvedReference is a Reference paired with the File it was extracted
// from, enough context to retry module resolution.
type UnresolvedReference struct {
	Reference
	FromPath string
	Language string
}

// UnresolvedReferencesForRepository returns every Reference in a
// repository whose target_file_path is still null, used by incremental
// indexing to retry resolution after a new file appears.
func (s *Store) UnresolvedReferencesForRepository(repositoryID string) ([]UnresolvedReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT r.id, r.file_id, r.target_symbol_name, r.reference_type, r.import_source, f.path, f.language
		 FROM references_ r
		 JOIN files f ON f.id = r.file_id
		 WHERE r.target_file_path IS NULL AND f.repository_id = ?`,
		repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved references: %w", err)
	}
	defer rows.Close()

	var refs []UnresolvedReference
	for rows.Next() {
		var ur UnresolvedReference
		var targetSymbol, importSource sql.NullString
		if err := rows.Scan(&ur.ID, &ur.FileID, &targetSymbol, &ur.ReferenceType, &importSource, &ur.FromPath, &ur.Language); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved reference: %w", err)
		}
		ur.TargetSymbolName = targetSymbol.String
		ur.ImportSource = importSource.String
		refs = append(refs, ur)
	}
	return refs, rows.Err()
}

func scanReferences(rows *sql.Rows) ([]Reference, error) {
	var refs []Reference
	for rows.Next() {
		var r Reference
		var targetPath, targetSymbol, importSource sql.NullString
		if err := rows.Scan(&r.ID, &r.FileID, &targetPath, &targetSymbol, &r.ReferenceType, &importSource); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		r.TargetFilePath = targetPath.String
		r.TargetSymbolName = targetSymbol.String
		r.ImportSource = importSource.String
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
