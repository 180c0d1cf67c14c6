package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvscan/internal/config"
)

func TestManager_WriteStream(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), "data", "logs")
	m := NewManager(paths, nil)

	written, err := m.WriteStream("reports/out.csv", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(paths.ReportsDir, "out.csv"), written.Path)
	assert.Equal(t, int64(5), written.Size)
	// blake2b-256("hello")
	assert.Equal(t, "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf", written.Digest)

	digest, err := m.Digest("reports/out.csv")
	require.NoError(t, err)
	assert.Equal(t, written.Digest, digest)

	entries, err := os.ReadDir(paths.ReportsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed after rename")
}

func TestManager_ResolvePath(t *testing.T) {
	paths := config.NewPaths("/base", "data", "logs")
	m := NewManager(paths, nil)

	tests := []struct {
		in   string
		want string
	}{
		{in: "uploads/a.xlsx", want: filepath.Join(paths.UploadsDir, "a.xlsx")},
		{in: "datasets", want: paths.DatasetsDir},
		{in: "reports/x/y.csv", want: filepath.Join(paths.ReportsDir, "x", "y.csv")},
		{in: "misc.txt", want: filepath.Join(paths.DataDir, "misc.txt")},
		{in: "/abs/file", want: "/abs/file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.resolvePath(tt.in))
		})
	}
}

func TestManager_DeleteAndEmpty(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), "data", "logs")
	m := NewManager(paths, nil)

	_, err := m.WriteStream("uploads/a.csv", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = m.WriteStream("uploads/b.csv", strings.NewReader("b"))
	require.NoError(t, err)

	assert.True(t, m.FileExists("uploads/a.csv"))
	require.NoError(t, m.DeleteFile("uploads/a.csv"))
	assert.False(t, m.FileExists("uploads/a.csv"))
	assert.NoError(t, m.DeleteFile("uploads/a.csv"), "deleting a missing file is not an error")

	require.NoError(t, m.Rename("uploads/b.csv", "uploads/c.csv"))
	files, err := m.ListFiles("uploads")
	require.NoError(t, err)
	assert.Equal(t, []string{"c.csv"}, files)

	require.NoError(t, m.EmptyDirectory("uploads"))
	files, err = m.ListFiles("uploads")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NoError(t, m.EmptyDirectory("missing"))
}
