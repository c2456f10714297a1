package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem(t *testing.T) {
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("missing.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, m.Exists("missing.csv"))

	w, err := m.Create("out/a.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "x,y\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := m.ReadFile("out/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "x,y\n", string(data))

	r, err := m.Open("out/./a.csv")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "x,y\n", string(got))

	require.NoError(t, m.MkdirAll("reports", 0o755))
	assert.True(t, m.Exists("reports"))
	assert.Equal(t, []string{"out/a.csv"}, m.Files())
}

func TestWriteArtifact(t *testing.T) {
	testCases := []struct {
		name string
		fsys func(t *testing.T) (FileSystem, string)
	}{
		{"memory", func(t *testing.T) (FileSystem, string) { return NewMemoryFileSystem(), "reports" }},
		{"os", func(t *testing.T) (FileSystem, string) { return OSFileSystem{}, filepath.Join(t.TempDir(), "reports") }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fsys, dir := tc.fsys(t)
			path, err := WriteArtifact(fsys, dir, "curve.csv", func(w io.Writer) error {
				_, err := io.WriteString(w, "hr,area\n")
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "curve.csv"), path)
			assert.True(t, fsys.Exists(path))

			data, err := fsys.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "hr,area\n", string(data))
		})
	}
}

func TestWriteArtifactPropagatesWriterError(t *testing.T) {
	_, err := WriteArtifact(NewMemoryFileSystem(), "reports", "x.png", func(io.Writer) error {
		return errors.New("render failed")
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "render failed"))
}

func TestWriteArtifactStaysInDir(t *testing.T) {
	fsys := NewMemoryFileSystem()
	path, err := WriteArtifact(fsys, "out", "../escape.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "x")
		return err
	})
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if path != filepath.Join("out", "escape.csv") {
		t.Errorf("path = %q, want out/escape.csv", path)
	}
}
