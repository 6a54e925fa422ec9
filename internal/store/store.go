// Package store implements the embedded relational data store (C6): an
// SQLite-backed (modernc.org/sqlite, CGO-free) schema for Files, Symbols,
// Edges, Callsites, Meta and Dependencies, with an FTS5 virtual table over
// symbol name/qualified name and the atomic per-file replacement protocol
// from §4.6. Grounded on josephgoksu-TaskWing's internal/codeintel
// repository.go/query_test.go (exact FTS5 schema shape) and
// internal/memory/sqlite.go (schema-on-open, PRAGMA discipline).
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// Store owns the single SQLite connection pool for one .pui/index.sqlite
// file. Writes are serialized through writeMu (single writer, §5); reads
// may run concurrently against WAL-mode SQLite.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	dir     string
	lock    *lockFile
}

// Open opens (creating if absent) the store at <dir>/index.sqlite,
// acquires the writer advisory lock, enables WAL + foreign keys, and runs
// migrations. dir is the repo's .pui state directory.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, engineerr.New(engineerr.KindStoreCorrupt, "open.mkdir", err)
	}

	lock, err := acquireLock(filepath.Join(dir, "index.sqlite.lock"), 60*time.Second)
	if err != nil {
		return nil, engineerr.New(engineerr.KindStoreCorrupt, "open.lock", err)
	}

	dbPath := filepath.Join(dir, "index.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		lock.Release()
		return nil, engineerr.New(engineerr.KindStoreCorrupt, "open.sqlite", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes per-connection; pool=1 avoids SQLITE_BUSY churn

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			lock.Release()
			return nil, engineerr.New(engineerr.KindStoreCorrupt, "open.pragma", err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		lock.Release()
		return nil, err
	}

	return &Store{db: db, dir: dir, lock: lock}, nil
}

// Close releases the writer lock and closes the database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	s.lock.Release()
	return err
}

// DB exposes the underlying *sql.DB for read-only query packages (graph,
// impact, pack) that only ever SELECT. Mutations must go through
// ReplaceFile/UpsertEdges below so the single-writer discipline holds.
func (s *Store) DB() *sql.DB { return s.db }

// withWriter serializes fn against all other writers in this process.
func (s *Store) withWriter(fn func(*sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return engineerr.New(engineerr.KindStoreCorrupt, "withWriter.begin", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return engineerr.New(engineerr.KindStoreCorrupt, "withWriter.commit", err)
	}
	return nil
}

// FileReplacement is the full set of rows produced by parsing one file,
// passed to ReplaceFile for the atomic per-file replacement protocol
// (§4.6, invariant 2).
type FileReplacement struct {
	File      File
	Symbols   []Symbol
	Callsites []Callsite
	Edges     []Edge // structural edges only: CONTAIN, INHERIT, IMPORT
}

// ReplaceFile performs the atomic file replacement protocol: delete the
// file's existing Symbols/Edges/Callsites, upsert the File row, insert the
// new rows, all in one transaction. Symbol IDs are assigned fresh on every
// call (invariant 2: no partial state is ever visible to queries); callers
// needing stable external references use Symbol.StableID, not ID.
func (s *Store) ReplaceFile(ctx context.Context, r FileReplacement) (fileID int64, err error) {
	err = s.withWriter(func(tx *sql.Tx) error {
		var existingID sql.NullInt64
		row := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, r.File.Path)
		_ = row.Scan(&existingID)

		if existingID.Valid {
			if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ?`, existingID.Int64); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM callsites WHERE file_id = ?`, existingID.Int64); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE file_id = ?`, existingID.Int64); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE files SET language=?, content_hash=?, prefix_hash=?, size=?, modified_at=?, indexed_at=? WHERE id=?`,
				r.File.Language, r.File.ContentHash, r.File.PrefixHash, r.File.Size,
				r.File.ModifiedAt.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano), existingID.Int64); err != nil {
				return err
			}
			fileID = existingID.Int64
		} else {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO files(path, language, content_hash, prefix_hash, size, modified_at, indexed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.File.Path, r.File.Language, r.File.ContentHash, r.File.PrefixHash, r.File.Size,
				r.File.ModifiedAt.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano))
			if err != nil {
				return err
			}
			fileID, err = res.LastInsertId()
			if err != nil {
				return err
			}
		}

		oldToNew := make(map[int64]int64, len(r.Symbols))
		for i, sym := range r.Symbols {
			var parent any
			if sym.ParentID != nil {
				if mapped, ok := oldToNew[*sym.ParentID]; ok {
					parent = mapped
				}
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO symbols(stable_id, file_id, kind, name, qualified_name, start_line, start_col, end_line, end_col, signature, doc, parent_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(stable_id) DO UPDATE SET
					file_id=excluded.file_id, kind=excluded.kind, name=excluded.name,
					qualified_name=excluded.qualified_name, start_line=excluded.start_line,
					start_col=excluded.start_col, end_line=excluded.end_line, end_col=excluded.end_col,
					signature=excluded.signature, doc=excluded.doc, parent_id=excluded.parent_id`,
				sym.StableID, fileID, string(sym.Kind), sym.Name, sym.QualifiedName,
				sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol, sym.Signature, sym.Doc, parent)
			if err != nil {
				return err
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			if newID == 0 {
				// ON CONFLICT path: SQLite driver may not report LastInsertId for an
				// UPDATE branch; look the row back up by stable_id.
				row := tx.QueryRowContext(ctx, `SELECT id FROM symbols WHERE stable_id = ?`, sym.StableID)
				if err := row.Scan(&newID); err != nil {
					return err
				}
			}
			oldToNew[sym.ID] = newID
			r.Symbols[i].ID = newID
		}

		for _, e := range r.Edges {
			srcID := e.SourceID
			if mapped, ok := oldToNew[e.SourceID]; ok {
				srcID = mapped
			}
			tgtID := e.TargetID
			if mapped, ok := oldToNew[e.TargetID]; ok {
				tgtID = mapped
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO edges(source_id, target_id, kind, confidence, provenance, file_id, metadata)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(source_id, target_id, kind) DO UPDATE SET
					confidence=MAX(edges.confidence, excluded.confidence),
					provenance=CASE WHEN excluded.provenance='resolved' THEN 'resolved' ELSE edges.provenance END,
					metadata=excluded.metadata`,
				srcID, tgtID, string(e.Kind), e.Confidence, string(e.Provenance), fileID, e.Metadata); err != nil {
				return err
			}
		}

		for _, c := range r.Callsites {
			var enclosing any
			if c.EnclosingSymID != nil {
				if mapped, ok := oldToNew[*c.EnclosingSymID]; ok {
					enclosing = mapped
				}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO callsites(file_id, line, col, callee_text, enclosing_sym_id, imports_json)
				VALUES (?, ?, ?, ?, ?, ?)`,
				fileID, c.Line, c.Col, c.CalleeText, enclosing, c.ImportsJSON); err != nil {
				return err
			}
		}
		return nil
	})
	return fileID, err
}

// UpsertEdges inserts or updates CALL/MODULE_DEPENDS_ON edges discovered by
// the Resolver (C7), which runs after ReplaceFile has already written a
// file's structural edges. Unlike ReplaceFile, it never deletes existing
// edges first — callers recompute and pass the full edge set they own for
// fileID on every resolve pass, relying on the same provenance-preferring
// ON CONFLICT as ReplaceFile (invariant 7: resolved never loses to heuristic).
func (s *Store) UpsertEdges(ctx context.Context, fileID int64, edges []Edge) error {
	return s.withWriter(func(tx *sql.Tx) error {
		for _, e := range edges {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO edges(source_id, target_id, kind, confidence, provenance, file_id, metadata)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(source_id, target_id, kind) DO UPDATE SET
					confidence=MAX(edges.confidence, excluded.confidence),
					provenance=CASE WHEN excluded.provenance='resolved' THEN 'resolved' ELSE edges.provenance END,
					metadata=excluded.metadata`,
				e.SourceID, e.TargetID, string(e.Kind), e.Confidence, string(e.Provenance), fileID, e.Metadata); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertModuleSymbol ensures a Kind=module pseudo-Symbol exists for a
// module grouping the Resolver (C7) has inferred (a Go module, npm
// workspace, Cargo crate, or Python package root). These rows are the
// source/target endpoints MODULE_DEPENDS_ON edges point at, anchored to
// one representative file (anyFileID) since every Symbol needs a FileID.
// Returns the row id to use as an edge endpoint.
func (s *Store) UpsertModuleSymbol(ctx context.Context, anyFileID int64, stableID, name string) (int64, error) {
	var id int64
	err := s.withWriter(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO symbols(stable_id, file_id, kind, name, qualified_name, start_line, start_col, end_line, end_col, signature, doc, parent_id)
			VALUES (?, ?, ?, ?, ?, 0, 0, 0, 0, '', '', NULL)
			ON CONFLICT(stable_id) DO UPDATE SET file_id=excluded.file_id`,
			stableID, anyFileID, string(KindModule), name, name)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if id == 0 {
			row := tx.QueryRowContext(ctx, `SELECT id FROM symbols WHERE stable_id = ?`, stableID)
			return row.Scan(&id)
		}
		return nil
	})
	return id, err
}

// DeleteFile removes a File row (and, via ON DELETE CASCADE, all dependent
// Symbols/Edges/Callsites) for a file that has disappeared from disk.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	return s.withWriter(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
		return err
	})
}

// GetFileByPath looks up a File row by its repo-relative path.
func (s *Store) GetFileByPath(ctx context.Context, path string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, path, language, content_hash, prefix_hash, size, modified_at, indexed_at FROM files WHERE path = ?`, path)
	return scanFile(row)
}

// parseTimeLenient parses the RFC3339Nano timestamps store.go writes,
// returning the zero Time on malformed input rather than erroring — a
// corrupt timestamp shouldn't fail an otherwise-valid row read.
func parseTimeLenient(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// AllFiles returns every stored File row, used by the Indexer's deletion
// sweep (§4.8 step 5) to detect files present in the store but absent on
// disk.
func (s *Store) AllFiles(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, language, content_hash, prefix_hash, size, modified_at, indexed_at FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		var mod, idx string
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.PrefixHash, &f.Size, &mod, &idx); err != nil {
			return nil, err
		}
		f.ModifiedAt = parseTimeLenient(mod)
		f.IndexedAt = parseTimeLenient(idx)
		out = append(out, f)
	}
	return out, rows.Err()
}

// TouchIndexedAt updates only the indexed_at timestamp for an unchanged
// file (§4.8 step 3 — hash matched, no re-parse needed).
func (s *Store) TouchIndexedAt(ctx context.Context, fileID int64) error {
	return s.withWriter(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE files SET indexed_at = ? WHERE id = ?`, time.Now().UTC().Format(time.RFC3339Nano), fileID)
		return err
	})
}

// ReplaceDependencies atomically swaps the Dependency rows scanned from one
// lockfile (see internal/manifest).
func (s *Store) ReplaceDependencies(ctx context.Context, lockfile string, deps []Dependency) error {
	return s.withWriter(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE lockfile = ?`, lockfile); err != nil {
			return err
		}
		for _, d := range deps {
			devFlag := 0
			if d.IsDev {
				devFlag = 1
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO dependencies(name, version, ecosystem, lockfile, is_dev) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(name, version, ecosystem, lockfile) DO NOTHING`,
				d.Name, d.Version, d.Ecosystem, lockfile, devFlag); err != nil {
				return err
			}
		}
		return nil
	})
}
