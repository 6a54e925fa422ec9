package gitdiff

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func TestRange_ReportsChangedLines(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	runGit(t, dir, "add", "main.go")
	runGit(t, dir, "commit", "-q", "-m", "initial")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"), 0o644))

	hunks, err := WorkingTree(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	assert.Equal(t, "main.go", hunks[0].Path)
	assert.True(t, hunks[0].StartLine >= 3)
}

func TestParseUnifiedHunks_DeletionOnlyHunkAnchorsAtLine(t *testing.T) {
	diff := []byte(`diff --git a/a.go b/a.go
index abc..def 100644
--- a/a.go
+++ b/a.go
@@ -5,2 +4,0 @@
-removed line one
-removed line two
`)
	hunks, err := parseUnifiedHunks(diff)
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	assert.Equal(t, "a.go", hunks[0].Path)
	assert.Equal(t, 4, hunks[0].StartLine)
	assert.Equal(t, 4, hunks[0].EndLine)
}

func TestParseUnifiedHunks_SkipsDeletedFile(t *testing.T) {
	diff := []byte(`diff --git a/gone.go b/gone.go
deleted file mode 100644
--- a/gone.go
+++ /dev/null
@@ -1,3 +0,0 @@
-package gone
`)
	hunks, err := parseUnifiedHunks(diff)
	require.NoError(t, err)
	assert.Empty(t, hunks)
}
