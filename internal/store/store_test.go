package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore mirrors TaskWing's query_test.go setupTestDB helper, but
// exercises the real Open path (migrations, PRAGMAs, lockfile) against a
// throwaway directory rather than hand-rolling the schema.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchemaAndLock(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.DB().Exec(`SELECT 1 FROM files LIMIT 0`)
	assert.NoError(t, err)

	_, err = Open(context.Background(), dir)
	assert.Error(t, err, "a second Open against the same dir must fail on the writer lock")
}

func TestReplaceFile_InsertsSymbolsAndEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.ReplaceFile(ctx, FileReplacement{
		File: File{Path: "main.go", Language: "go", ContentHash: "abc123", Size: 42},
		Symbols: []Symbol{
			{StableID: "s1", Kind: KindFunction, Name: "main", QualifiedName: "main.main", StartLine: 1, EndLine: 5},
			{StableID: "s2", Kind: KindFunction, Name: "helper", QualifiedName: "main.helper", StartLine: 7, EndLine: 9},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, fileID)

	syms, err := s.FindSymbolsByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "main", syms[0].Name)
	assert.Equal(t, "helper", syms[1].Name)
}

func TestReplaceFile_AtomicReplaceOnReparse(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.ReplaceFile(ctx, FileReplacement{
		File:    File{Path: "a.go", Language: "go", ContentHash: "v1", Size: 10},
		Symbols: []Symbol{{StableID: "a#fn#f#1", Kind: KindFunction, Name: "f", StartLine: 1, EndLine: 2}},
	})
	require.NoError(t, err)

	// Re-parse with f removed and g added: the file row is reused and only
	// the new parse's symbols remain.
	fileID2, err := s.ReplaceFile(ctx, FileReplacement{
		File:    File{Path: "a.go", Language: "go", ContentHash: "v2", Size: 14},
		Symbols: []Symbol{{StableID: "a#fn#g#1", Kind: KindFunction, Name: "g", StartLine: 1, EndLine: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, fileID, fileID2, "replacing an existing path must reuse its file row")

	syms, err := s.FindSymbolsByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, syms, 1, "old symbols from the prior parse must be gone")
	assert.Equal(t, "g", syms[0].Name)

	f, err := s.GetFileByPath(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, "v2", f.ContentHash)
}

func TestReplaceFile_EdgeUpsertPrefersResolvedProvenance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFile(ctx, FileReplacement{
		File: File{Path: "caller.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []Symbol{
			{StableID: "caller#fn#a#1", Kind: KindFunction, Name: "a", StartLine: 1, EndLine: 2},
		},
	})
	require.NoError(t, err)
	_, err = s.ReplaceFile(ctx, FileReplacement{
		File: File{Path: "callee.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []Symbol{
			{StableID: "callee#fn#b#1", Kind: KindFunction, Name: "b", StartLine: 1, EndLine: 2},
		},
	})
	require.NoError(t, err)

	a, err := s.GetSymbolByStableID(ctx, "caller#fn#a#1")
	require.NoError(t, err)
	b, err := s.GetSymbolByStableID(ctx, "callee#fn#b#1")
	require.NoError(t, err)

	// First pass: a heuristic, low-confidence edge. Symbol.ID is the local
	// key the edge refers to; ReplaceFile gives a its new row id.
	callerID, err := s.ReplaceFile(ctx, FileReplacement{
		File: File{Path: "caller.go", Language: "go", ContentHash: "v2", Size: 1},
		Symbols: []Symbol{
			{ID: a.ID, StableID: "caller#fn#a#1", Kind: KindFunction, Name: "a", StartLine: 1, EndLine: 2},
		},
		Edges: []Edge{
			{SourceID: a.ID, TargetID: b.ID, Kind: EdgeCall, Confidence: 0.4, Provenance: ProvenanceHeuristic},
		},
	})
	require.NoError(t, err)
	a, err = s.GetSymbolByStableID(ctx, "caller#fn#a#1")
	require.NoError(t, err)

	// Second pass: the Resolver upserts a resolved edge for the same
	// (source, target, kind); it must take over provenance, per the
	// resolved-dominates invariant.
	require.NoError(t, s.UpsertEdges(ctx, callerID, []Edge{
		{SourceID: a.ID, TargetID: b.ID, Kind: EdgeCall, Confidence: 0.95, Provenance: ProvenanceResolved},
	}))

	callees, err := s.GetCallees(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, ProvenanceResolved, callees[0].Edge.Provenance)
	assert.Equal(t, 0.95, callees[0].Edge.Confidence)
}

func TestSearchSymbolsFTS(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFile(ctx, FileReplacement{
		File: File{Path: "svc.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []Symbol{
			{StableID: "svc#fn#ProcessOrder#1", Kind: KindFunction, Name: "ProcessOrder", QualifiedName: "svc.ProcessOrder", StartLine: 1, EndLine: 2},
			{StableID: "svc#fn#CancelOrder#1", Kind: KindFunction, Name: "CancelOrder", QualifiedName: "svc.CancelOrder", StartLine: 4, EndLine: 5},
		},
	})
	require.NoError(t, err)

	results, err := s.SearchSymbolsFTS(ctx, "Order", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDeleteFile_CascadesSymbolsAndEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.ReplaceFile(ctx, FileReplacement{
		File:    File{Path: "gone.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []Symbol{{StableID: "gone#fn#x#1", Kind: KindFunction, Name: "x", StartLine: 1, EndLine: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(ctx, "gone.go"))

	f, err := s.GetFileByPath(ctx, "gone.go")
	require.NoError(t, err)
	assert.Nil(t, f)

	syms, err := s.FindSymbolsByFile(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestReplaceDependencies(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDependencies(ctx, "go.mod", []Dependency{
		{Name: "github.com/foo/bar", Version: "v1.2.3", Ecosystem: "go", Lockfile: "go.mod"},
	}))

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM dependencies WHERE lockfile = ?`, "go.mod").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, s.ReplaceDependencies(ctx, "go.mod", []Dependency{
		{Name: "github.com/foo/baz", Version: "v2.0.0", Ecosystem: "go", Lockfile: "go.mod"},
	}))
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM dependencies WHERE lockfile = ?`, "go.mod").Scan(&count))
	assert.Equal(t, 1, count, "replacing a lockfile's dependencies must drop the prior set")
}

func TestAcquireLock_BreaksStaleLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "index.sqlite.lock")

	l, err := acquireLock(lockPath, 0)
	require.NoError(t, err)
	l2, err := acquireLock(lockPath, 0)
	require.NoError(t, err, "a zero grace age should treat any existing lock as stale and break it")
	l2.Release()
}
