// This file implements kotadb's forward-only schema migration system:
// idempotent ALTER TABLE statements applied on every Open, guarded by
// existence checks so re-running against an already-migrated database is
// a no-op.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"kotadb/internal/logging"
)

// Schema versions:
// v1: base tables (repositories, files, symbols, references_, decisions,
//
//	failures, patterns, insights, workflow_contexts, sync_state, tombstones)
//
// v2: files.detected_by extraction marker column (reserved for future
//
//	language-detection refinement, currently a no-op placeholder column)
const CurrentSchemaVersion = 2

// MigrationResult holds the result of a migration run, returned from
// Migrate() for startup logging.
type MigrationResult struct {
	FromVersion   int
	ToVersion     int
	MigrationsRun int
	Duration      time.Duration
	Warnings      []string
}

// columnMigration defines a single idempotent ALTER TABLE ... ADD COLUMN.
type columnMigration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations applied since v1. Appending
// a new entry here and bumping CurrentSchemaVersion is the only way to
// evolve the schema; existing entries are never edited or removed.
var pendingMigrations = []columnMigration{
	{"files", "detected_by", "TEXT DEFAULT 'extension'"},
}

// Migrate applies schema migrations for existing databases and records
// the resulting schema version.
func Migrate(db *sql.DB) (MigrationResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Migrate")
	defer timer.Stop()

	start := time.Now()
	fromVersion := GetSchemaVersion(db)

	result := MigrationResult{FromVersion: fromVersion}

	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("migration %s.%s failed: %v", m.Table, m.Column, err))
			continue
		}
		result.MigrationsRun++
	}

	if err := SetSchemaVersion(db, CurrentSchemaVersion); err != nil {
		return result, fmt.Errorf("failed to set schema version: %w", err)
	}

	result.ToVersion = CurrentSchemaVersion
	result.Duration = time.Since(start)
	return result, nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// GetSchemaVersion returns the current schema version, inferring it from
// table structure if no schema_versions record exists yet.
func GetSchemaVersion(db *sql.DB) int {
	if tableExists(db, "schema_versions") {
		var version int
		query := "SELECT version FROM schema_versions ORDER BY applied_at DESC LIMIT 1"
		if err := db.QueryRow(query).Scan(&version); err == nil {
			return version
		}
	}
	return inferSchemaVersion(db)
}

// inferSchemaVersion determines schema version by examining table structure,
// for databases migrated before schema_versions existed.
func inferSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "files") {
		return 0
	}
	if columnExists(db, "files", "detected_by") {
		return 2
	}
	return 1
}

// SetSchemaVersion records a new schema version.
func SetSchemaVersion(db *sql.DB, version int) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	desc := fmt.Sprintf("Migrated to schema version %d", version)
	if _, err := db.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		version, desc,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
