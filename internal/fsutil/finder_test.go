package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	a := filepath.Join(dir, "a.hcl")
	b := filepath.Join(nested, "b.hcl")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{a, b, other} {
		require.NoError(t, os.WriteFile(p, []byte("#"), 0o644))
	}

	// Act
	files, err := FindFiles([]string{dir, a, filepath.Join(dir, "missing")}, ".hcl")

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{a, b}, files)
}

func TestFindFiles_ExplicitFileKeptRegardlessOfExtension(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	p := filepath.Join(dir, "floor.conf")
	require.NoError(t, os.WriteFile(p, []byte("#"), 0o644))

	// Act
	files, err := FindFiles([]string{p}, ".hcl")

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{p}, files)
}
