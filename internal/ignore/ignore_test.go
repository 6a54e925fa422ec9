package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcluded_Builtins(t *testing.T) {
	r := New(nil, nil)
	assert.True(t, r.Excluded("node_modules/left-pad/index.js"))
	assert.True(t, r.Excluded("vendor/github.com/foo/bar.go"))
	assert.True(t, r.Excluded("src/assets/logo.png"))
	assert.False(t, r.Excluded("internal/store/store.go"))
}

func TestExcluded_SelfExclusionCannotBeIncluded(t *testing.T) {
	r := New(nil, []string{"**/*"})
	assert.True(t, r.Excluded(".pui/index.sqlite"))
	assert.True(t, r.Excluded(".pui/sub/dir/file.txt"))
}

func TestExcluded_CLIIncludeOverridesExclude(t *testing.T) {
	r := New([]string{"**/vendor/**"}, []string{"vendor/keep/this.go"})
	assert.False(t, r.Excluded("vendor/keep/this.go"))
	assert.True(t, r.Excluded("vendor/other/file.go"))
}

func TestLoadIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte("# comment\n\n*.generated.go\n"), 0o644))

	r := New(nil, nil)
	require.NoError(t, r.LoadIgnoreFile(dir))
	assert.True(t, r.Excluded("internal/foo.generated.go"))
	assert.False(t, r.Excluded("internal/foo.go"))
}

func TestLoadIgnoreFile_MissingFileIsNotError(t *testing.T) {
	r := New(nil, nil)
	assert.NoError(t, r.LoadIgnoreFile(t.TempDir()))
}
