package impact

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

func symbolByName(t *testing.T, s *store.Store, fileID int64, name string) store.Symbol {
	t.Helper()
	syms, err := s.FindSymbolsByFile(context.Background(), fileID)
	require.NoError(t, err)
	for _, sym := range syms {
		if sym.Name == name {
			return sym
		}
	}
	t.Fatalf("symbol %q not found", name)
	return store.Symbol{}
}

// TestAnalyze_RanksCallerAboveUnrelatedAndFlagsTestProximity builds
// Handler (changed) <- CallsHandler (caller, in a _test.go file) and
// Handler -> helper (callee), then checks Handler's caller outranks an
// unrelated symbol and is flagged as test-adjacent.
func TestAnalyze_RanksCallerAboveUnrelatedAndFlagsTestProximity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	implID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "svc/handler.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{StableID: "Handler", Kind: store.KindFunction, Name: "Handler", StartLine: 1, EndLine: 2},
			{StableID: "helper", Kind: store.KindFunction, Name: "helper", StartLine: 4, EndLine: 5},
		},
	})
	require.NoError(t, err)

	testID, err := s.ReplaceFile(ctx, store.FileReplacement{
		File: store.File{Path: "svc/handler_test.go", Language: "go", ContentHash: "v1", Size: 1},
		Symbols: []store.Symbol{
			{StableID: "TestHandler", Kind: store.KindFunction, Name: "TestHandler", StartLine: 1, EndLine: 2},
		},
	})
	require.NoError(t, err)

	handler := symbolByName(t, s, implID, "Handler")
	helper := symbolByName(t, s, implID, "helper")
	testFn := symbolByName(t, s, testID, "TestHandler")

	require.NoError(t, s.UpsertEdges(ctx, testID, []store.Edge{
		{SourceID: testFn.ID, TargetID: handler.ID, Kind: store.EdgeCall, Confidence: 0.9, Provenance: store.ProvenanceResolved},
	}))
	require.NoError(t, s.UpsertEdges(ctx, implID, []store.Edge{
		{SourceID: handler.ID, TargetID: helper.ID, Kind: store.EdgeCall, Confidence: 0.9, Provenance: store.ProvenanceResolved},
	}))

	res, err := Analyze(ctx, s, []store.Symbol{handler}, 2)
	require.NoError(t, err)

	require.Len(t, res.Upstream, 1)
	assert.Equal(t, "TestHandler", res.Upstream[0].Symbol.Name)
	assert.True(t, res.Upstream[0].TestProximity)
	assert.NotEmpty(t, res.Upstream[0].Rationale)

	require.Len(t, res.Downstream, 1)
	assert.Equal(t, "helper", res.Downstream[0].Symbol.Name)

	require.Len(t, res.AffectedTests, 1)
	assert.Equal(t, "TestHandler", res.AffectedTests[0].Symbol.Name)
}

func TestIsPublicSymbol_GoCapitalizationAndRustPub(t *testing.T) {
	assert.True(t, isPublicSymbol(store.Symbol{Name: "Exported"}))
	assert.False(t, isPublicSymbol(store.Symbol{Name: "_private"}))
	assert.True(t, isPublicSymbol(store.Symbol{Name: "run", Signature: "pub fn run()"}))
}

func TestIsTestPath_MatchesLanguageConventions(t *testing.T) {
	assert.True(t, isTestPath("pkg/foo_test.go"))
	assert.True(t, isTestPath("tests/test_util.py"))
	assert.True(t, isTestPath("src/widget.spec.ts"))
	assert.False(t, isTestPath("src/widget.ts"))
}
