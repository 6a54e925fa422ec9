package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pui/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolveFile_UnqualifiedSingleCandidateSameFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "main.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "main#fn#main#1", Kind: store.KindFunction, Name: "main", StartLine: 1, EndLine: 5},
			{ID: 2, StableID: "main#fn#helper#1", Kind: store.KindFunction, Name: "helper", StartLine: 7, EndLine: 9},
		},
		Callsites: []store.Callsite{
			{Line: 2, Col: 1, CalleeText: "helper", EnclosingSymID: int64Ptr(1)},
		},
	})
	require.NoError(t, err)

	r := New(s, nil)
	require.NoError(t, r.ResolveFile(ctx, fileID))

	mainSym, err := s.GetSymbolByStableID(ctx, "main#fn#main#1")
	require.NoError(t, err)
	callees, err := s.GetCallees(ctx, mainSym.ID, 0)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, "helper", callees[0].Other.Name)
	assert.Equal(t, confUnqualifiedSingle, callees[0].Edge.Confidence)
	assert.Equal(t, store.ProvenanceHeuristic, callees[0].Edge.Provenance)
}

func TestResolveFile_QualifiedCallWithImportBindingResolvesHighConfidence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "util/helper.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "util#fn#Format#1", Kind: store.KindFunction, Name: "Format", StartLine: 1, EndLine: 3},
		},
	})
	require.NoError(t, err)

	fileID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "main.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "main#fn#main#1", Kind: store.KindFunction, Name: "main", StartLine: 3, EndLine: 8},
			{ID: 2, StableID: "main#import#util#1", Kind: store.KindImport, Name: "example.com/app/util", QualifiedName: "example.com/app/util", StartLine: 1, EndLine: 1},
		},
		Callsites: []store.Callsite{
			{Line: 4, Col: 1, CalleeText: "util.Format", EnclosingSymID: int64Ptr(1)},
		},
	})
	require.NoError(t, err)

	r := New(s, nil)
	require.NoError(t, r.ResolveFile(ctx, fileID))

	mainSym, err := s.GetSymbolByStableID(ctx, "main#fn#main#1")
	require.NoError(t, err)
	callees, err := s.GetCallees(ctx, mainSym.ID, 0)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, "Format", callees[0].Other.Name)
	assert.Equal(t, confQualifiedUnique, callees[0].Edge.Confidence)
}

func TestResolveFile_QualifiedCallWithUnknownReceiverIsLowConfidence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "other.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "other#fn#Close#1", Kind: store.KindFunction, Name: "Close", StartLine: 1, EndLine: 2},
		},
	})
	require.NoError(t, err)

	fileID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "main.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "main#fn#main#1", Kind: store.KindFunction, Name: "main", StartLine: 1, EndLine: 5},
		},
		Callsites: []store.Callsite{
			{Line: 2, Col: 1, CalleeText: "conn.Close", EnclosingSymID: int64Ptr(1)},
		},
	})
	require.NoError(t, err)

	r := New(s, nil)
	require.NoError(t, r.ResolveFile(ctx, fileID))

	mainSym, err := s.GetSymbolByStableID(ctx, "main#fn#main#1")
	require.NoError(t, err)
	callees, err := s.GetCallees(ctx, mainSym.ID, 0)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, confDynamicReceiver, callees[0].Edge.Confidence)
}

func TestResolveFile_UnresolvableCalleeProducesNoEdge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fileID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "main.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "main#fn#main#1", Kind: store.KindFunction, Name: "main", StartLine: 1, EndLine: 5},
		},
		Callsites: []store.Callsite{
			{Line: 2, Col: 1, CalleeText: "totallyUndefinedFunction", EnclosingSymID: int64Ptr(1)},
		},
	})
	require.NoError(t, err)

	r := New(s, nil)
	require.NoError(t, r.ResolveFile(ctx, fileID))

	mainSym, err := s.GetSymbolByStableID(ctx, "main#fn#main#1")
	require.NoError(t, err)
	callees, err := s.GetCallees(ctx, mainSym.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, callees)
}

func TestResolveModuleDependencies_AggregatesImportsAcrossModules(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFile(ctx, store.FileReplacement{
		File:    store.File{Path: "util/helper.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{{ID: 1, StableID: "util#fn#Format#1", Kind: store.KindFunction, Name: "Format", StartLine: 1, EndLine: 2}},
	})
	require.NoError(t, err)

	_, err = s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "cmd/main.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{ID: 1, StableID: "cmd#import#util#1", Kind: store.KindImport, Name: "example.com/app/util", QualifiedName: "example.com/app/util", StartLine: 1, EndLine: 1},
		},
	})
	require.NoError(t, err)

	r := New(s, nil)
	require.NoError(t, r.ResolveModuleDependencies(ctx))

	cmdModule, err := s.GetSymbolByStableID(ctx, moduleStableID("cmd"))
	require.NoError(t, err)
	require.NotNil(t, cmdModule)

	edges, err := s.ModuleDependencyEdges(ctx, "cmd", "out")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, store.EdgeModuleDependsOn, edges[0].Kind)
}

func int64Ptr(v int64) *int64 { return &v }
