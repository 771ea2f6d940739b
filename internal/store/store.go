// Package store provides kotadb's embedded single-writer SQLite storage:
// repositories, files, symbols, references, decisions, failures, patterns,
// insights, and workflow contexts, plus BM25 full-text search over
// decisions and failures.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"kotadb/internal/logging"
)

// Store is the embedded relational engine backing the code-intelligence
// core. It is a process-wide resource: opened once, reused by every
// component, closed at process exit. A single physical connection enforces
// the single-writer model described in §5; concurrent readers are safe
// because SQLite's WAL mode lets readers proceed alongside a writer.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at path, creating its parent
// directory, applying PRAGMAs, and running schema migrations.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening store at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One physical connection: one writer, matching the single-writer model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("Failed to apply %q: %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("Store initialization complete at %s", path)
	return s, nil
}

// initialize creates the base schema and runs migrations/FTS wiring.
func (s *Store) initialize() error {
	for _, table := range baseTables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	result, err := Migrate(s.db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logging.Store("Migrations complete: %d run, %d -> %d (%s)",
		result.MigrationsRun, result.FromVersion, result.ToVersion, result.Duration)
	for _, w := range result.Warnings {
		logging.Get(logging.CategoryStore).Warn("Migration warning: %s", w)
	}

	if err := setupFTS(s.db); err != nil {
		return fmt.Errorf("failed to set up FTS: %w", err)
	}

	if err := setupTombstones(s.db); err != nil {
		return fmt.Errorf("failed to set up tombstones: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing store database connection")
	return s.db.Close()
}

// DB returns the underlying SQL database connection, for components that
// need direct access (migrations, FTS setup, tests).
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetStats returns row counts for each core table, used by the Tool
// Surface's status-reporting tools and by tests asserting row counts.
func (s *Store) GetStats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetStats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := []string{
		"repositories", "files", "symbols", "references_", "decisions",
		"failures", "patterns", "insights", "workflow_contexts",
	}

	for _, table := range tables {
		var count int64
		err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			logging.StoreDebug("Table %s count failed (may not exist): %v", table, err)
			continue
		}
		key := table
		if key == "references_" {
			key = "references"
		}
		stats[key] = count
	}

	logging.StoreDebug("Store stats computed: tables=%d", len(stats))
	return stats, nil
}
