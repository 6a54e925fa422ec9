package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pui/internal/indexer"
	"github.com/standardbeagle/pui/internal/pack"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", `package main

func helper() {
	println("hi")
}

func main() {
	helper()
}
`)
	writeFile(t, root, "go.sum", "github.com/pkg/errors v0.9.1 h1:abc=\n")
	return root
}

func TestOpen_IndexAndRepoMapRoundTrip(t *testing.T) {
	root := newTestRepo(t)
	ctx := context.Background()

	e, err := Open(ctx, root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	stats, err := e.Index(ctx, indexer.ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)

	deps, err := e.Store.DB().QueryContext(ctx, "SELECT COUNT(*) FROM dependencies")
	require.NoError(t, err)
	defer deps.Close()
	require.True(t, deps.Next())
	var depCount int
	require.NoError(t, deps.Scan(&depCount))
	assert.Equal(t, 1, depCount, "go.sum dependency should have been scanned and persisted")

	p, err := e.RepoMap(ctx, "", pack.Options{})
	require.NoError(t, err)
	assert.Contains(t, p.Content, "# Repo Map")
	assert.Contains(t, p.Content, "main")
}

func TestZoom_ResolvesByNameAndRendersSkeleton(t *testing.T) {
	root := newTestRepo(t)
	ctx := context.Background()

	e, err := Open(ctx, root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Index(ctx, indexer.ModeIncremental)
	require.NoError(t, err)

	p, err := e.Zoom(ctx, "helper", pack.Options{})
	require.NoError(t, err)
	assert.Contains(t, p.Content, "helper")
}

func TestFind_MatchesIndexedSymbol(t *testing.T) {
	root := newTestRepo(t)
	ctx := context.Background()

	e, err := Open(ctx, root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Index(ctx, indexer.ModeIncremental)
	require.NoError(t, err)

	results, err := e.Find(ctx, "helper", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.True(t, strings.Contains(results[0].Symbol.Name, "helper"))
}

func TestGraph_CallersOfHelperIncludeMain(t *testing.T) {
	root := newTestRepo(t)
	ctx := context.Background()

	e, err := Open(ctx, root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Index(ctx, indexer.ModeIncremental)
	require.NoError(t, err)

	sym, hops, err := e.Graph(ctx, GraphQuery{SymbolQuery: "helper", Direction: "in", MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, "helper", sym.Name)
	require.NotEmpty(t, hops)
	assert.Equal(t, "main", hops[0].Symbol.Name)
}

func TestImpact_PathBasedAnalysisProducesPack(t *testing.T) {
	root := newTestRepo(t)
	ctx := context.Background()

	e, err := Open(ctx, root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Index(ctx, indexer.ModeIncremental)
	require.NoError(t, err)

	res, err := e.Impact(ctx, []string{"main.go"}, "", 2)
	require.NoError(t, err)
	require.NotEmpty(t, res.Changed)

	p, err := e.ImpactPack(ctx, res, pack.Options{})
	require.NoError(t, err)
	assert.Contains(t, p.Content, "# Changed Items")
}
