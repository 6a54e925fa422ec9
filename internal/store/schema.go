package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/version"
)

// migrations is an ordered, idempotent list of schema migrations, indexed
// by the schema_version they produce. migrations[1] creates the baseline
// schema; index 0 is unused. Adding a migration bumps version.SchemaVersion.
var migrations = []string{
	1: baselineSchema,
}

const baselineSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	language      TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	prefix_hash   TEXT NOT NULL DEFAULT '',
	size          INTEGER NOT NULL,
	modified_at   TEXT NOT NULL,
	indexed_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);

CREATE TABLE IF NOT EXISTS symbols (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	stable_id      TEXT NOT NULL,
	file_id        INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	kind           TEXT NOT NULL,
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL DEFAULT '',
	start_line     INTEGER NOT NULL,
	start_col      INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	end_col        INTEGER NOT NULL,
	signature      TEXT NOT NULL DEFAULT '',
	doc            TEXT NOT NULL DEFAULT '',
	parent_id      INTEGER REFERENCES symbols(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_symbols_file_id ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_symbols_stable_id ON symbols(stable_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
	name, qualified_name,
	content='symbols',
	content_rowid='id',
	tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
	INSERT INTO symbols_fts(rowid, name, qualified_name) VALUES (new.id, new.name, new.qualified_name);
END;
CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name) VALUES ('delete', old.id, old.name, old.qualified_name);
END;
CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, qualified_name) VALUES ('delete', old.id, old.name, old.qualified_name);
	INSERT INTO symbols_fts(rowid, name, qualified_name) VALUES (new.id, new.name, new.qualified_name);
END;

CREATE TABLE IF NOT EXISTS callsites (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id          INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	line             INTEGER NOT NULL,
	col              INTEGER NOT NULL,
	callee_text      TEXT NOT NULL,
	enclosing_sym_id INTEGER REFERENCES symbols(id) ON DELETE SET NULL,
	imports_json     TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_callsites_file_id ON callsites(file_id);

CREATE TABLE IF NOT EXISTS edges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id   INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	target_id   INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	confidence  REAL NOT NULL,
	provenance  TEXT NOT NULL,
	file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	metadata    TEXT NOT NULL DEFAULT '',
	UNIQUE(source_id, target_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_edges_source_id ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target_id ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);
CREATE INDEX IF NOT EXISTS idx_edges_file_id ON edges(file_id);

CREATE TABLE IF NOT EXISTS dependencies (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	version   TEXT NOT NULL,
	ecosystem TEXT NOT NULL,
	lockfile  TEXT NOT NULL,
	is_dev    INTEGER NOT NULL DEFAULT 0,
	UNIQUE(name, version, ecosystem, lockfile)
);
`

// migrate reads the stored schema_version and applies any migrations the
// database is missing, per §4.6's migration routine.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return engineerr.New(engineerr.KindStoreCorrupt, "migrate.bootstrap", err)
	}

	current := 0
	row := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, MetaSchemaVersionKey)
	var v string
	if err := row.Scan(&v); err == nil {
		fmt.Sscanf(v, "%d", &current)
	}

	if current > version.SchemaVersion {
		return engineerr.New(engineerr.KindSchemaTooNew, "migrate",
			fmt.Errorf("stored schema_version %d exceeds known version %d", current, version.SchemaVersion))
	}

	for i := current + 1; i <= version.SchemaVersion && i < len(migrations); i++ {
		stmt := migrations[i]
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return engineerr.New(engineerr.KindStoreCorrupt, "migrate.apply", err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, MetaSchemaVersionKey, fmt.Sprintf("%d", i)); err != nil {
			return engineerr.New(engineerr.KindStoreCorrupt, "migrate.bump_version", err)
		}
	}
	return nil
}
