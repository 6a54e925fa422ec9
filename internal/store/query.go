package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// GetSymbol fetches one Symbol by its Store rowid.
func (s *Store) GetSymbol(ctx context.Context, id int64) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, symbolSelect+` WHERE id = ?`, id)
	return scanSymbol(row)
}

// GetSymbolByStableID fetches one Symbol by its content-derived stable ID.
func (s *Store) GetSymbolByStableID(ctx context.Context, stableID string) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, symbolSelect+` WHERE stable_id = ?`, stableID)
	return scanSymbol(row)
}

// FindSymbolsByName returns exact-name matches, ordered by (file path,
// start line) for deterministic output (invariant 6).
func (s *Store) FindSymbolsByName(ctx context.Context, name string) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, symbolSelect+`
		WHERE symbols.name = ?
		ORDER BY (SELECT path FROM files WHERE files.id = symbols.file_id), start_line`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// FindSymbolsByFile returns all symbols owned by a file, ordered by
// position.
func (s *Store) FindSymbolsByFile(ctx context.Context, fileID int64) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, symbolSelect+` WHERE file_id = ? ORDER BY start_line, start_col`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SearchResult pairs a Symbol with its FTS relevance rank (lower is more relevant).
type SearchResult struct {
	Symbol Symbol
	Rank   float64
}

// SearchSymbolsFTS runs a full-text query over symbol name/qualified_name
// (C6 FTS), used by the `find` command/tool. query is passed to FTS5's
// MATCH syntax as given; engine.Find does not quote or escape it.
func (s *Store) SearchSymbolsFTS(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+symbolColumns+`, bm25(symbols_fts) AS rank
		FROM symbols_fts
		JOIN symbols ON symbols.id = symbols_fts.rowid
		WHERE symbols_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		sym, rank, err := scanSymbolRank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Symbol: sym, Rank: rank})
	}
	return out, rows.Err()
}

// GetCallers returns the distinct symbols with a direct CALL edge into sym,
// joined with the confidence/file for ranking by the Graph Engine.
func (s *Store) GetCallers(ctx context.Context, symbolID int64, minConfidence float64) ([]EdgeWithSymbol, error) {
	return s.IncomingEdges(ctx, symbolID, EdgeCall, minConfidence)
}

// GetCallees returns the distinct symbols sym has a direct CALL edge to.
func (s *Store) GetCallees(ctx context.Context, symbolID int64, minConfidence float64) ([]EdgeWithSymbol, error) {
	return s.OutgoingEdges(ctx, symbolID, EdgeCall, minConfidence)
}

// IncomingEdges returns the distinct symbols with a direct edge of the
// given kind into symbolID, joined with the source symbol for one hop of
// graph traversal (C9). Used for both CALL (GetCallers) and
// MODULE_DEPENDS_ON traversal.
func (s *Store) IncomingEdges(ctx context.Context, symbolID int64, kind EdgeKind, minConfidence float64) ([]EdgeWithSymbol, error) {
	return s.queryEdgeJoins(ctx, `
		SELECT `+edgeColumns+`, `+symbolColumns2("source")+`
		FROM edges JOIN symbols AS source ON source.id = edges.source_id
		WHERE edges.target_id = ? AND edges.kind = ? AND edges.confidence >= ?
		ORDER BY edges.confidence DESC, source.id ASC`, symbolID, string(kind), minConfidence)
}

// OutgoingEdges returns the distinct symbols symbolID has a direct edge of
// the given kind to, for one hop of graph traversal (C9).
func (s *Store) OutgoingEdges(ctx context.Context, symbolID int64, kind EdgeKind, minConfidence float64) ([]EdgeWithSymbol, error) {
	return s.queryEdgeJoins(ctx, `
		SELECT `+edgeColumns+`, `+symbolColumns2("target")+`
		FROM edges JOIN symbols AS target ON target.id = edges.target_id
		WHERE edges.source_id = ? AND edges.kind = ? AND edges.confidence >= ?
		ORDER BY edges.confidence DESC, target.id ASC`, symbolID, string(kind), minConfidence)
}

// EdgeWithSymbol pairs an Edge with the symbol on its "other side" for
// traversal convenience (the Other field is the caller for GetCallers,
// the callee for GetCallees).
type EdgeWithSymbol struct {
	Edge  Edge
	Other Symbol
}

func (s *Store) queryEdgeJoins(ctx context.Context, query string, args ...any) ([]EdgeWithSymbol, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EdgeWithSymbol
	for rows.Next() {
		var e Edge
		var sym Symbol
		var parent sql.NullInt64
		if err := rows.Scan(
			&e.ID, &e.SourceID, &e.TargetID, &e.Kind, &e.Confidence, &e.Provenance, &e.FileID, &e.Metadata,
			&sym.ID, &sym.StableID, &sym.FileID, &sym.Kind, &sym.Name, &sym.QualifiedName,
			&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol, &sym.Signature, &sym.Doc, &parent,
		); err != nil {
			return nil, err
		}
		if parent.Valid {
			sym.ParentID = &parent.Int64
		}
		out = append(out, EdgeWithSymbol{Edge: e, Other: sym})
	}
	return out, rows.Err()
}

// ModuleDependencyEdges returns MODULE_DEPENDS_ON edges touching module
// (matched by file path prefix), in the given direction.
func (s *Store) ModuleDependencyEdges(ctx context.Context, modulePrefix string, direction string) ([]Edge, error) {
	var query string
	switch direction {
	case "out":
		query = `SELECT ` + edgeColumns + ` FROM edges
			JOIN symbols s ON s.id = edges.source_id
			JOIN files f ON f.id = s.file_id
			WHERE edges.kind = 'MODULE_DEPENDS_ON' AND f.path LIKE ?`
	case "in":
		query = `SELECT ` + edgeColumns + ` FROM edges
			JOIN symbols s ON s.id = edges.target_id
			JOIN files f ON f.id = s.file_id
			WHERE edges.kind = 'MODULE_DEPENDS_ON' AND f.path LIKE ?`
	default:
		query = `SELECT ` + edgeColumns + ` FROM edges
			JOIN symbols s ON (s.id = edges.source_id OR s.id = edges.target_id)
			JOIN files f ON f.id = s.file_id
			WHERE edges.kind = 'MODULE_DEPENDS_ON' AND f.path LIKE ?`
	}
	rows, err := s.db.QueryContext(ctx, query, modulePrefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Kind, &e.Confidence, &e.Provenance, &e.FileID, &e.Metadata); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SymbolsInSpan returns the symbols of a file whose [start_line, end_line]
// span intersects [startLine, endLine], used by the Impact Engine to map a
// git diff hunk to enclosing symbols.
func (s *Store) SymbolsInSpan(ctx context.Context, fileID int64, startLine, endLine int) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, symbolSelect+`
		WHERE file_id = ? AND NOT (end_line < ? OR start_line > ?)
		ORDER BY start_line`, fileID, startLine, endLine)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetCallsitesByFile returns every callsite recorded for a file, ordered
// by position, used by the Resolver (C7) to produce candidate CALL edges.
func (s *Store) GetCallsitesByFile(ctx context.Context, fileID int64) ([]Callsite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, line, col, callee_text, enclosing_sym_id, imports_json
		FROM callsites WHERE file_id = ? ORDER BY line, col`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Callsite
	for rows.Next() {
		var c Callsite
		var enclosing sql.NullInt64
		if err := rows.Scan(&c.ID, &c.FileID, &c.Line, &c.Col, &c.CalleeText, &enclosing, &c.ImportsJSON); err != nil {
			return nil, err
		}
		if enclosing.Valid {
			c.EnclosingSymID = &enclosing.Int64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FileByID fetches a File row by rowid.
func (s *Store) FileByID(ctx context.Context, id int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, path, language, content_hash, prefix_hash, size, modified_at, indexed_at FROM files WHERE id = ?`, id)
	f, err := scanFile(row)
	return f, err
}

const symbolColumns = `symbols.id, symbols.stable_id, symbols.file_id, symbols.kind, symbols.name, symbols.qualified_name,
	symbols.start_line, symbols.start_col, symbols.end_line, symbols.end_col, symbols.signature, symbols.doc, symbols.parent_id`

func symbolColumns2(alias string) string {
	return fmt.Sprintf(`%s.id, %s.stable_id, %s.file_id, %s.kind, %s.name, %s.qualified_name,
		%s.start_line, %s.start_col, %s.end_line, %s.end_col, %s.signature, %s.doc, %s.parent_id`,
		alias, alias, alias, alias, alias, alias, alias, alias, alias, alias, alias, alias, alias)
}

const symbolSelect = `SELECT ` + symbolColumns + ` FROM symbols`

const edgeColumns = `edges.id, edges.source_id, edges.target_id, edges.kind, edges.confidence, edges.provenance, edges.file_id, edges.metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row rowScanner) (*Symbol, error) {
	var sym Symbol
	var parent sql.NullInt64
	if err := row.Scan(&sym.ID, &sym.StableID, &sym.FileID, &sym.Kind, &sym.Name, &sym.QualifiedName,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol, &sym.Signature, &sym.Doc, &parent); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if parent.Valid {
		sym.ParentID = &parent.Int64
	}
	return &sym, nil
}

func scanSymbols(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		var sym Symbol
		var parent sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.StableID, &sym.FileID, &sym.Kind, &sym.Name, &sym.QualifiedName,
			&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol, &sym.Signature, &sym.Doc, &parent); err != nil {
			return nil, err
		}
		if parent.Valid {
			sym.ParentID = &parent.Int64
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func scanSymbolRank(rows *sql.Rows) (Symbol, float64, error) {
	var sym Symbol
	var parent sql.NullInt64
	var rank float64
	err := rows.Scan(&sym.ID, &sym.StableID, &sym.FileID, &sym.Kind, &sym.Name, &sym.QualifiedName,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol, &sym.Signature, &sym.Doc, &parent, &rank)
	if parent.Valid {
		sym.ParentID = &parent.Int64
	}
	return sym, rank, err
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var mod, idx string
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &f.ContentHash, &f.PrefixHash, &f.Size, &mod, &idx); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	f.ModifiedAt = parseTimeLenient(mod)
	f.IndexedAt = parseTimeLenient(idx)
	return &f, nil
}
