package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pui/internal/engineerr"
)

func TestToRelative(t *testing.T) {
	cases := []struct {
		name, abs, root, want string
	}{
		{"inside root", "/home/user/project/src/main.go", "/home/user/project", "src/main.go"},
		{"outside root", "/other/location/file.go", "/home/user/project", "/other/location/file.go"},
		{"already relative", "src/main.go", "/home/user/project", "src/main.go"},
		{"empty abs", "", "/home/user/project", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ToRelative(c.abs, c.root))
		})
	}
}

func TestResolveInRoot_Sandboxing(t *testing.T) {
	root := "/home/user/project"

	resolved, err := ResolveInRoot(root, "src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/project/src/main.go", resolved)

	_, err = ResolveInRoot(root, "../../etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, engineerr.Sentinel(engineerr.KindPathEscapesRoot))

	_, err = ResolveInRoot(root, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, engineerr.Sentinel(engineerr.KindPathEscapesRoot))
}
