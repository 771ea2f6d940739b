package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Symbol kinds, per §3's Data Model.
const (
	SymbolFunction   = "function"
	SymbolClass      = "class"
	SymbolInterface  = "interface"
	SymbolType       = "type"
	SymbolVariable   = "variable"
	SymbolConstant   = "constant"
	SymbolMethod     = "method"
	SymbolProperty   = "property"
	SymbolModule     = "module"
	SymbolNamespace  = "namespace"
	SymbolEnum       = "enum"
	SymbolEnumMember = "enum_member"
)

// Symbol is a named declaration extracted from a File.
type Symbol struct {
	ID            string
	FileID        string
	Name          string
	Kind          string
	Signature     string
	Documentation string
	LineStart     int
	LineEnd       int
	Metadata      map[string]interface{}
}

// DeleteSymbolsForFile removes all Symbols owned by a file, used before
// re-inserting freshly extracted symbols during indexing.
func DeleteSymbolsForFile(tx *sql.Tx, fileID string) error {
	_, err := tx.Exec("DELETE FROM symbols WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete symbols: %w", err)
	}
	return nil
}

// InsertSymbol inserts a single Symbol row.
func InsertSymbol(tx *sql.Tx, sym Symbol) error {
	if sym.ID == "" {
		sym.ID = uuid.NewString()
	}
	var metaJSON []byte
	if sym.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(sym.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal symbol metadata: %w", err)
		}
	}
	_, err := tx.Exec(
		`INSERT INTO symbols (id, file_id, name, kind, signature, documentation, line_start, line_end, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.ID, sym.FileID, sym.Name, sym.Kind, sym.Signature, sym.Documentation, sym.LineStart, sym.LineEnd, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert symbol: %w", err)
	}
	return nil
}

// SearchSymbolsByName finds symbols whose name contains term, ordered
// lexicographically, optionally filtered by kind and exported-only.
func (s *Store) SearchSymbolsByName(term string, kinds []string, exportedOnly bool, repositoryID string, limit int) ([]Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT sy.id, sy.file_id, sy.name, sy.kind, sy.signature, sy.documentation, sy.line_start, sy.line_end, sy.metadata
		FROM symbols sy
		JOIN files f ON f.id = sy.file_id
		WHERE sy.name LIKE ?`
	args := []interface{}{"%" + term + "%"}

	if repositoryID != "" {
		query += " AND f.repository_id = ?"
		args = append(args, repositoryID)
	}
	if len(kinds) > 0 {
		placeholders := ""
		for i, k := range kinds {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, k)
		}
		query += " AND sy.kind IN (" + placeholders + ")"
	}
	query += " ORDER BY sy.name ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols: %w", err)
	}
	defer rows.Close()

	var results []Symbol
	for rows.Next() {
		sym, meta, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		if exportedOnly {
			exported, _ := meta["is_exported"].(bool)
			if !exported {
				continue
			}
		}
		sym.Metadata = meta
		results = append(results, sym)
	}
	return results, rows.Err()
}

func scanSymbol(rows *sql.Rows) (Symbol, map[string]interface{}, error) {
	var sym Symbol
	var metaStr sql.NullString
	if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.Signature, &sym.Documentation, &sym.LineStart, &sym.LineEnd, &metaStr); err != nil {
		return Symbol{}, nil, fmt.Errorf("failed to scan symbol: %w", err)
	}
	meta := map[string]interface{}{}
	if metaStr.Valid && metaStr.String != "" {
		_ = json.Unmarshal([]byte(metaStr.String), &meta)
	}
	return sym, meta, nil
}
