package tempfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	f, err := Create(dir, "tempfiles-test-*")
	require.NoError(t, err)
	defer f.Close()

	path := f.Name()
	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)
	require.NotContains(t, rel, "..")

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestCreate_MakesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	f, err := Create(dir, "tempfiles-test-*")
	require.NoError(t, err)
	defer f.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
