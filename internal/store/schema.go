package store

// baseTables are created unconditionally on every Open; columns added later
// in the product's life live in migrations.go instead, never here.
var baseTables = []string{
	repositoriesTable,
	filesTable,
	symbolsTable,
	referencesTable,
	decisionsTable,
	failuresTable,
	patternsTable,
	insightsTable,
	workflowContextsTable,
	syncStateTable,
	tombstonesTable,
}

const repositoriesTable = `
CREATE TABLE IF NOT EXISTS repositories (
	id TEXT PRIMARY KEY,
	full_name TEXT NOT NULL UNIQUE,
	git_url TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_indexed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_repositories_git_url ON repositories(git_url);
`

const filesTable = `
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	language TEXT,
	content_hash TEXT NOT NULL,
	size INTEGER NOT NULL,
	content TEXT,
	indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(repository_id, path)
);
CREATE INDEX IF NOT EXISTS idx_files_repository ON files(repository_id);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
CREATE INDEX IF NOT EXISTS idx_files_hash ON files(content_hash);
`

const symbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	id TEXT PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	signature TEXT,
	documentation TEXT,
	line_start INTEGER NOT NULL,
	line_end INTEGER NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_file_line ON symbols(file_id, line_start);
`

// Table name is references_ (trailing underscore) because REFERENCES is a
// SQL keyword; the public Go API and GetStats still speak of "references".
const referencesTable = `
CREATE TABLE IF NOT EXISTS references_ (
	id TEXT PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	target_file_path TEXT,
	target_symbol_name TEXT,
	reference_type TEXT NOT NULL,
	import_source TEXT
);
CREATE INDEX IF NOT EXISTS idx_references_file ON references_(file_id);
CREATE INDEX IF NOT EXISTS idx_references_target_path ON references_(target_file_path);
`

const decisionsTable = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	repository_id TEXT REFERENCES repositories(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	context TEXT NOT NULL,
	decision TEXT NOT NULL,
	scope TEXT NOT NULL,
	rationale TEXT,
	alternatives TEXT,
	related_files TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_decisions_repository ON decisions(repository_id);
`

const failuresTable = `
CREATE TABLE IF NOT EXISTS failures (
	id TEXT PRIMARY KEY,
	repository_id TEXT REFERENCES repositories(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	problem TEXT NOT NULL,
	approach TEXT NOT NULL,
	failure_reason TEXT NOT NULL,
	related_files TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_failures_repository ON failures(repository_id);
`

const patternsTable = `
CREATE TABLE IF NOT EXISTS patterns (
	id TEXT PRIMARY KEY,
	repository_id TEXT REFERENCES repositories(id) ON DELETE CASCADE,
	pattern_type TEXT NOT NULL UNIQUE,
	file_path TEXT,
	description TEXT NOT NULL,
	example TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_patterns_repository ON patterns(repository_id);
`

const insightsTable = `
CREATE TABLE IF NOT EXISTS insights (
	id TEXT PRIMARY KEY,
	session_id TEXT,
	content TEXT NOT NULL,
	insight_type TEXT NOT NULL,
	related_file TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_insights_session ON insights(session_id);
`

const workflowContextsTable = `
CREATE TABLE IF NOT EXISTS workflow_contexts (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	phase TEXT NOT NULL CHECK(phase IN ('analysis', 'plan', 'build', 'improve')),
	context_data TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(workflow_id, phase)
);
CREATE INDEX IF NOT EXISTS idx_workflow_contexts_workflow ON workflow_contexts(workflow_id);
`

// syncStateTable stores the last-exported content hash per table, gating
// JSONL export/import so unchanged rows are skipped (§4.6.1).
const syncStateTable = `
CREATE TABLE IF NOT EXISTS sync_state (
	table_name TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	synced_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// tombstonesTable records deletions so they can be replayed during sync
// import (§4.6's deletion manifest).
const tombstonesTable = `
CREATE TABLE IF NOT EXISTS tombstones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	table_name TEXT NOT NULL,
	row_id TEXT NOT NULL,
	deleted_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tombstones_table ON tombstones(table_name);
`
