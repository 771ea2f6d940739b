// Package sync implements kotadb's hash-gated JSONL export/import (§4.6):
// a per-table content hash skips unchanged tables, a deletion manifest
// replays tombstoned rows, and import applies deletions before streaming
// each table inside a single transaction.
package sync

import (
	"bufio"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// deletionsFile is the deletion manifest emitted alongside each table's
// JSONL file, per §4.6.
const deletionsFile = "deletions.jsonl"

// deletionRecord is one line of deletions.jsonl.
type deletionRecord struct {
	Table string `json:"table"`
	RowID string `json:"row_id"`
}

// ExportResult reports what an Export call actually did, per table.
type ExportResult struct {
	TablesExported []string
	TablesSkipped  []string
	RowsExported   map[string]int
	Deletions      int
}

// Service runs export/import against a Store.
type Service struct {
	store *store.Store
}

// New builds a sync Service.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// Export writes one JSONL file per syncable table into dir, skipping any
// table whose content hash matches its last recorded sync_state unless
// force is set. A deletions.jsonl manifest is always written (even if
// empty) and drains the tombstones table for every table touched.
func (sv *Service) Export(dir string, force bool) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	result := &ExportResult{RowsExported: make(map[string]int)}

	var deletions []deletionRecord
	for _, table := range store.SyncableTables() {
		tombstones, err := sv.store.TombstonesForTable(table)
		if err != nil {
			return nil, err
		}
		for _, t := range tombstones {
			deletions = append(deletions, deletionRecord{Table: table, RowID: t.RowID})
		}
	}
	if err := writeJSONLFile(filepath.Join(dir, deletionsFile), deletions); err != nil {
		return nil, err
	}
	result.Deletions = len(deletions)

	for _, table := range store.SyncableTables() {
		rows, err := canonicalRows(sv.store, table)
		if err != nil {
			return nil, err
		}

		hash := hashRows(rows)
		previous, err := sv.store.GetSyncState(table)
		if err != nil {
			return nil, err
		}

		if !force && hash == previous && previous != "" {
			result.TablesSkipped = append(result.TablesSkipped, table)
			logging.SyncDebug("export: %s unchanged, skipping", table)
			continue
		}

		path := filepath.Join(dir, table+".jsonl")
		if err := writeRawJSONLFile(path, rows); err != nil {
			return nil, err
		}
		if err := sv.store.SetSyncState(table, hash); err != nil {
			return nil, err
		}
		if err := sv.store.ClearTombstones(table); err != nil {
			return nil, err
		}

		result.TablesExported = append(result.TablesExported, table)
		result.RowsExported[table] = len(rows)
		logging.Sync("export: %s %d rows", table, len(rows))
	}

	return result, nil
}

// ImportResult reports what an Import call did.
type ImportResult struct {
	TablesImported []string
	RowsImported   map[string]int
	Deletions      int
}

// Import reads deletions.jsonl and applies every deletion, then streams
// each table's JSONL file present in dir inside a single transaction, in
// dependency order so foreign keys are always satisfied. A row-level
// decode or insert error aborts the whole transaction and names the
// offending file and line.
func (sv *Service) Import(dir string) (*ImportResult, error) {
	result := &ImportResult{RowsImported: make(map[string]int)}

	deletions, err := readDeletions(filepath.Join(dir, deletionsFile))
	if err != nil {
		return nil, err
	}

	err = sv.store.WithTx(func(tx *sql.Tx) error {
		for _, d := range deletions {
			if err := store.DeleteRowByID(tx, d.Table, d.RowID); err != nil {
				return fmt.Errorf("applying deletion %s/%s: %w", d.Table, d.RowID, err)
			}
		}
		result.Deletions = len(deletions)

		for _, table := range store.SyncableTables() {
			path := filepath.Join(dir, table+".jsonl")
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
			n, err := importTable(tx, table, path)
			if err != nil {
				return err
			}
			result.TablesImported = append(result.TablesImported, table)
			result.RowsImported[table] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// INSERT OR REPLACE against an existing id deletes-then-inserts under
	// the hood, firing each table's tombstone trigger for rows this import
	// itself just replayed. Those aren't real local deletions, so drop them
	// rather than letting them leak into this store's next export.
	for _, table := range store.SyncableTables() {
		if err := sv.store.ClearTombstones(table); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func readDeletions(path string) ([]deletionRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open deletion manifest: %w", err)
	}
	defer f.Close()

	var out []deletionRecord
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		var d deletionRecord
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", kerrors.ErrInvalidParams, path, line, err)
		}
		out = append(out, d)
	}
	return out, scanner.Err()
}

func writeJSONLFile(path string, records []deletionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode deletion record: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeRawJSONLFile(path string, rows [][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range rows {
		if _, err := w.Write(row); err != nil {
			return err
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func hashRows(rows [][]byte) string {
	h := sha256.New()
	for _, row := range rows {
		h.Write(row)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
