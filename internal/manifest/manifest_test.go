package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNpmScanner_ParsesV2PackagesFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", `{
  "packages": {
    "": {"name": "root"},
    "node_modules/lodash": {"version": "4.17.21", "dev": false},
    "node_modules/jest": {"version": "29.0.0", "dev": true}
  }
}`)

	deps, err := NewNpmScanner().Scan(path)
	require.NoError(t, err)
	require.Len(t, deps, 2)

	byName := make(map[string]Dependency, len(deps))
	for _, d := range deps {
		byName[d.Name] = d
	}
	assert.Equal(t, "4.17.21", byName["lodash"].Version)
	assert.False(t, byName["lodash"].IsDev)
	assert.True(t, byName["jest"].IsDev)
}

func TestCargoScanner_ParsesPackageSections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Cargo.lock", `
[[package]]
name = "serde"
version = "1.0.190"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "tokio"
version = "1.35.0"
`)

	deps, err := NewCargoScanner().Scan(path)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "serde", deps[0].Name)
	assert.Equal(t, "1.0.190", deps[0].Version)
	assert.Equal(t, "cargo", deps[0].Ecosystem)
}

func TestGoScanner_DedupesGoModHashLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "go.sum", `github.com/pkg/errors v0.9.1 h1:abc=
github.com/pkg/errors v0.9.1/go.mod h1:def=
golang.org/x/sync v0.5.0 h1:ghi=
`)

	deps, err := NewGoScanner().Scan(path)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "github.com/pkg/errors", deps[0].Name)
	assert.Equal(t, "v0.9.1", deps[0].Version)
}

func TestPipScanner_ParsesPinsAndSkipsMarkersAndComments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "requirements.txt", `# comment
requests==2.31.0
flask[async]==3.0.0 ; python_version >= "3.8"
-e ./local-pkg
`)

	deps, err := NewPipScanner().Scan(path)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "requests", deps[0].Name)
	assert.Equal(t, "flask", deps[1].Name)
	assert.Equal(t, "3.0.0", deps[1].Version)
}

func TestScanDirectory_AppliesEveryScanner(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.sum", "github.com/pkg/errors v0.9.1 h1:abc=\n")
	writeFile(t, dir, "requirements.txt", "requests==2.31.0\n")

	deps, err := ScanDirectory(dir, AllScanners())
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}
