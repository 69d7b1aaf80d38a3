package store

const schemaVersion = 2

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	slug TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	hash TEXT NOT NULL,
	tree TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS documents_updated_at ON documents(updated_at);
`
