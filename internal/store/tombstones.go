package store

import (
	"database/sql"
	"fmt"
)

// syncableTables lists every table whose rows participate in export/import
// (§4.6); sync_state and tombstones are sync's own bookkeeping and are never
// themselves exported.
var syncableTables = []string{
	"repositories", "files", "symbols", "references_", "decisions",
	"failures", "patterns", "insights", "workflow_contexts",
}

// setupTombstones creates the AFTER DELETE trigger on every syncable table
// that records the deleted primary key into tombstones, per §4.6.1. CASCADE
// deletes (e.g. a file's symbols/references when the file row is deleted)
// fire their own table's trigger the same way a direct DELETE would.
func setupTombstones(db *sql.DB) error {
	for _, table := range syncableTables {
		stmt := fmt.Sprintf(
			`CREATE TRIGGER IF NOT EXISTS %s_tombstone AFTER DELETE ON %s BEGIN
				INSERT INTO tombstones (table_name, row_id) VALUES ('%s', old.id);
			END`,
			table, table, table,
		)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("tombstone trigger setup failed for %s: %w", table, err)
		}
	}
	return nil
}

// TombstonesForTable returns every (row_id, deleted_at) tombstone recorded
// for table, oldest first.
func (s *Store) TombstonesForTable(table string) ([]Tombstone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT row_id, deleted_at FROM tombstones WHERE table_name = ? ORDER BY deleted_at ASC",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tombstones: %w", err)
	}
	defer rows.Close()

	var out []Tombstone
	for rows.Next() {
		var t Tombstone
		t.TableName = table
		if err := rows.Scan(&t.RowID, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ClearTombstones removes every tombstone for table, called once its
// deletions have been drained into an export's deletion manifest.
func (s *Store) ClearTombstones(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM tombstones WHERE table_name = ?", table)
	if err != nil {
		return fmt.Errorf("failed to clear tombstones: %w", err)
	}
	return nil
}

// Tombstone is a single recorded deletion, table_name implicit from the
// query it came from.
type Tombstone struct {
	TableName string
	RowID     string
	DeletedAt string
}

// SyncState is the last-recorded export hash for one table.
type SyncState struct {
	TableName   string
	ContentHash string
	SyncedAt    string
}

// GetSyncState returns the last-recorded content hash for table, or "" if
// the table has never been exported.
func (s *Store) GetSyncState(table string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRow("SELECT content_hash FROM sync_state WHERE table_name = ?", table).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read sync state: %w", err)
	}
	return hash, nil
}

// SetSyncState records table's freshly-computed content hash as of now.
func (s *Store) SetSyncState(table, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO sync_state (table_name, content_hash, synced_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(table_name) DO UPDATE SET content_hash = excluded.content_hash, synced_at = CURRENT_TIMESTAMP`,
		table, contentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}

// SyncableTables returns the fixed list of tables participating in
// export/import.
func SyncableTables() []string {
	out := make([]string, len(syncableTables))
	copy(out, syncableTables)
	return out
}
