package discover

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pui/internal/ignore"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestWalk_ClassifiesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), 10)
	writeFile(t, filepath.Join(root, "script.py"), 10)
	writeFile(t, filepath.Join(root, "README.md"), 10)

	d := New(root, ignore.New(nil, nil))
	var found []File
	require.NoError(t, d.Walk(context.Background(), func(f File) error {
		found = append(found, f)
		return nil
	}))

	byPath := map[string]string{}
	for _, f := range found {
		byPath[f.RelPath] = f.Language
	}
	assert.Equal(t, "go", byPath["main.go"])
	assert.Equal(t, "python", byPath["script.py"])
	assert.Equal(t, "unknown", byPath["README.md"])
}

func TestWalk_SkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "left-pad", "index.js"), 10)
	writeFile(t, filepath.Join(root, "src", "app.js"), 10)

	d := New(root, ignore.New(nil, nil))
	var paths []string
	require.NoError(t, d.Walk(context.Background(), func(f File) error {
		paths = append(paths, f.RelPath)
		return nil
	}))
	sort.Strings(paths)
	assert.Equal(t, []string{"src/app.js"}, paths)
}

func TestWalk_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "huge.go"), 100)
	writeFile(t, filepath.Join(root, "small.go"), 10)

	d := New(root, ignore.New(nil, nil))
	d.MaxFileSize = 50

	var paths []string
	require.NoError(t, d.Walk(context.Background(), func(f File) error {
		paths = append(paths, f.RelPath)
		return nil
	}))
	assert.Equal(t, []string{"small.go"}, paths)
}

func TestWalk_RespectsLanguageOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build.gradle"), 10)

	d := New(root, ignore.New(nil, nil))
	d.LanguageByExt[".gradle"] = "groovy"

	var got string
	require.NoError(t, d.Walk(context.Background(), func(f File) error {
		got = f.Language
		return nil
	}))
	assert.Equal(t, "groovy", got)
}
