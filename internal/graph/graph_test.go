package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pui/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustSymbol(t *testing.T, s *store.Store, fileID int64, name string) store.Symbol {
	t.Helper()
	syms, err := s.FindSymbolsByFile(context.Background(), fileID)
	require.NoError(t, err)
	for _, sym := range syms {
		if sym.Name == name {
			return sym
		}
	}
	t.Fatalf("symbol %q not found in file %d", name, fileID)
	return store.Symbol{}
}

// TestTraverse_MultiHopWithCycleSafety builds a → b → c → a (a cycle) plus
// a → d, and checks that a 2-hop Callees traversal from a reaches b and d
// (depth 1) and c (depth 2) without looping back to a.
func TestTraverse_MultiHopWithCycleSafety(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fileID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "x.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{StableID: "a", Kind: store.KindFunction, Name: "a", StartLine: 1, EndLine: 2},
			{StableID: "b", Kind: store.KindFunction, Name: "b", StartLine: 3, EndLine: 4},
			{StableID: "c", Kind: store.KindFunction, Name: "c", StartLine: 5, EndLine: 6},
			{StableID: "d", Kind: store.KindFunction, Name: "d", StartLine: 7, EndLine: 8},
		},
	})
	require.NoError(t, err)

	a := mustSymbol(t, s, fileID, "a")
	b := mustSymbol(t, s, fileID, "b")
	c := mustSymbol(t, s, fileID, "c")
	d := mustSymbol(t, s, fileID, "d")

	require.NoError(t, s.UpsertEdges(ctx, fileID, []store.Edge{
		{SourceID: a.ID, TargetID: b.ID, Kind: store.EdgeCall, Confidence: 0.9, Provenance: store.ProvenanceResolved},
		{SourceID: b.ID, TargetID: c.ID, Kind: store.EdgeCall, Confidence: 0.8, Provenance: store.ProvenanceResolved},
		{SourceID: c.ID, TargetID: a.ID, Kind: store.EdgeCall, Confidence: 0.7, Provenance: store.ProvenanceResolved},
		{SourceID: a.ID, TargetID: d.ID, Kind: store.EdgeCall, Confidence: 0.5, Provenance: store.ProvenanceHeuristic},
	}))

	hops, err := Callees(ctx, s, a.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, hops, 3, "b, d at depth 1 and c at depth 2; a itself must never reappear")

	byName := make(map[string]Hop, len(hops))
	for _, h := range hops {
		byName[h.Symbol.Name] = h
	}
	assert.Equal(t, 1, byName["b"].Depth)
	assert.Equal(t, 1, byName["d"].Depth)
	assert.Equal(t, 2, byName["c"].Depth)
	assert.InDelta(t, 0.9, byName["b"].Confidence, 0.0001)
	assert.InDelta(t, 0.8, byName["c"].Confidence, 0.0001, "aggregated confidence is the min along the path (0.9 then 0.8)")

	// Deterministic ordering: depth asc, confidence desc, then path/id.
	assert.Equal(t, 1, hops[0].Depth)
}

func TestTraverse_MaxDepthZeroReturnsNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	hops, err := Callees(ctx, s, 1, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hops)
}

func TestTraverse_ConfidenceFilterExcludesWeakEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fileID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "y.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{StableID: "e", Kind: store.KindFunction, Name: "e", StartLine: 1, EndLine: 2},
			{StableID: "f", Kind: store.KindFunction, Name: "f", StartLine: 3, EndLine: 4},
		},
	})
	require.NoError(t, err)
	e := mustSymbol(t, s, fileID, "e")
	f := mustSymbol(t, s, fileID, "f")
	require.NoError(t, s.UpsertEdges(ctx, fileID, []store.Edge{
		{SourceID: e.ID, TargetID: f.ID, Kind: store.EdgeCall, Confidence: 0.3, Provenance: store.ProvenanceHeuristic},
	}))

	hops, err := Callees(ctx, s, e.ID, 1, 0.5)
	require.NoError(t, err)
	assert.Empty(t, hops, "edge below minConfidence must not be followed")
}
