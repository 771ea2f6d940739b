package store

import (
	"database/sql"
	"fmt"
)

// setupFTS creates the fts5 shadow tables for decisions and failures plus
// the triggers that keep them in sync with their backing tables. Search
// matching always goes through these shadow tables (§3.1); the base table
// is read only afterwards, to load each matched row by rowid.
func setupFTS(db *sql.DB) error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
			title, context, decision, rationale, content='decisions', content_rowid='rowid'
		)`,
		`CREATE TRIGGER IF NOT EXISTS decisions_ai AFTER INSERT ON decisions BEGIN
			INSERT INTO decisions_fts(rowid, title, context, decision, rationale)
			VALUES (new.rowid, new.title, new.context, new.decision, new.rationale);
		END`,
		`CREATE TRIGGER IF NOT EXISTS decisions_ad AFTER DELETE ON decisions BEGIN
			INSERT INTO decisions_fts(decisions_fts, rowid, title, context, decision, rationale)
			VALUES ('delete', old.rowid, old.title, old.context, old.decision, old.rationale);
		END`,
		`CREATE TRIGGER IF NOT EXISTS decisions_au AFTER UPDATE ON decisions BEGIN
			INSERT INTO decisions_fts(decisions_fts, rowid, title, context, decision, rationale)
			VALUES ('delete', old.rowid, old.title, old.context, old.decision, old.rationale);
			INSERT INTO decisions_fts(rowid, title, context, decision, rationale)
			VALUES (new.rowid, new.title, new.context, new.decision, new.rationale);
		END`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS failures_fts USING fts5(
			title, problem, approach, failure_reason, content='failures', content_rowid='rowid'
		)`,
		`CREATE TRIGGER IF NOT EXISTS failures_ai AFTER INSERT ON failures BEGIN
			INSERT INTO failures_fts(rowid, title, problem, approach, failure_reason)
			VALUES (new.rowid, new.title, new.problem, new.approach, new.failure_reason);
		END`,
		`CREATE TRIGGER IF NOT EXISTS failures_ad AFTER DELETE ON failures BEGIN
			INSERT INTO failures_fts(failures_fts, rowid, title, problem, approach, failure_reason)
			VALUES ('delete', old.rowid, old.title, old.problem, old.approach, old.failure_reason);
		END`,
		`CREATE TRIGGER IF NOT EXISTS failures_au AFTER UPDATE ON failures BEGIN
			INSERT INTO failures_fts(failures_fts, rowid, title, problem, approach, failure_reason)
			VALUES ('delete', old.rowid, old.title, old.problem, old.approach, old.failure_reason);
			INSERT INTO failures_fts(rowid, title, problem, approach, failure_reason)
			VALUES (new.rowid, new.title, new.problem, new.approach, new.failure_reason);
		END`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("fts setup statement failed: %w", err)
		}
	}
	return nil
}

// searchDecisionsFTS runs a BM25-ranked query over decisions_fts, returning
// matching decision rowids, best match first, and the absolute value of
// their bm25 score (larger is a stronger match).
func searchDecisionsFTS(db *sql.DB, query string, limit int) ([]ftsHit, error) {
	return runFTS(db, "decisions_fts", query, limit)
}

// searchFailuresFTS runs a BM25-ranked query over failures_fts.
func searchFailuresFTS(db *sql.DB, query string, limit int) ([]ftsHit, error) {
	return runFTS(db, "failures_fts", query, limit)
}

// ftsHit is one ranked match from an fts5 shadow table.
type ftsHit struct {
	RowID int64
	Score float64
}

func runFTS(db *sql.DB, table, query string, limit int) ([]ftsHit, error) {
	rows, err := db.Query(
		fmt.Sprintf("SELECT rowid, bm25(%s) FROM %s WHERE %s MATCH ? ORDER BY bm25(%s) LIMIT ?", table, table, table, table),
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	defer rows.Close()

	var hits []ftsHit
	for rows.Next() {
		var h ftsHit
		if err := rows.Scan(&h.RowID, &h.Score); err != nil {
			return nil, fmt.Errorf("fts scan failed: %w", err)
		}
		if h.Score < 0 {
			h.Score = -h.Score
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
