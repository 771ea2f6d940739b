package sync

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"kotadb/internal/store"
)

// canonicalRows returns table's rows as canonical JSON, one row per slice
// element: ordered by primary key (ListAllX already does this) and with
// field order fixed by each Go struct's declared field order, the same
// canonical encoding used for both the export JSONL body and its content
// hash (§4.6.1).
func canonicalRows(s *store.Store, table string) ([][]byte, error) {
	switch table {
	case "repositories":
		rows, err := s.ListAllRepositories()
		return marshalAll(rows, err)
	case "files":
		rows, err := s.ListAllFiles()
		return marshalAll(rows, err)
	case "symbols":
		rows, err := s.ListAllSymbols()
		return marshalAll(rows, err)
	case "references_":
		rows, err := s.ListAllReferences()
		return marshalAll(rows, err)
	case "decisions":
		rows, err := s.ListAllDecisions()
		return marshalAll(rows, err)
	case "failures":
		rows, err := s.ListAllFailures()
		return marshalAll(rows, err)
	case "patterns":
		rows, err := s.ListAllPatterns()
		return marshalAll(rows, err)
	case "insights":
		rows, err := s.ListAllInsights()
		return marshalAll(rows, err)
	case "workflow_contexts":
		rows, err := s.ListAllWorkflowContexts()
		return marshalAll(rows, err)
	default:
		return nil, fmt.Errorf("unknown syncable table %q", table)
	}
}

func marshalAll[T any](rows []T, err error) ([][]byte, error) {
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(rows))
	for _, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}

// importTable streams one table's JSONL file into tx, row by row, via the
// matching ImportX helper. A decode or insert failure aborts with the
// offending file and line number, per §4.6's error-reporting requirement.
func importTable(tx *sql.Tx, table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	count := 0
	for scanner.Scan() {
		line++
		if err := importRow(tx, table, scanner.Bytes()); err != nil {
			return 0, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return count, nil
}

func importRow(tx *sql.Tx, table string, data []byte) error {
	switch table {
	case "repositories":
		var r store.Repository
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportRepository(tx, r)
	case "files":
		var r store.File
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportFile(tx, r)
	case "symbols":
		var r store.Symbol
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportSymbol(tx, r)
	case "references_":
		var r store.Reference
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportReference(tx, r)
	case "decisions":
		var r store.Decision
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportDecision(tx, r)
	case "failures":
		var r store.Failure
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportFailure(tx, r)
	case "patterns":
		var r store.Pattern
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportPattern(tx, r)
	case "insights":
		var r store.Insight
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportInsight(tx, r)
	case "workflow_contexts":
		var r store.WorkflowContext
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		return store.ImportWorkflowContext(tx, r)
	default:
		return fmt.Errorf("unknown syncable table %q", table)
	}
}
