package storage

// Schema statements are idempotent so initializeSchema runs on every
// open. Projects carry the sandbox root (doc_path); audit_events is the
// append-only tool-call trail.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	doc_path    TEXT NOT NULL DEFAULT '',
	theme       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);

CREATE TABLE IF NOT EXISTS audit_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	project_id  INTEGER,
	tool        TEXT NOT NULL,
	arguments   TEXT NOT NULL DEFAULT '{}',
	ok          INTEGER NOT NULL DEFAULT 1,
	error_code  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_run ON audit_events(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_created ON audit_events(created_at);
`

func (db *DB) initializeSchema() error {
	_, err := db.conn.Exec(schemaSQL)
	return err
}
