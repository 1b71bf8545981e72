package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindAll(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.hcl"), "")
	writeFile(t, filepath.Join(dir, "a", "x.yaml"), "")
	writeFile(t, filepath.Join(dir, "a", "ignored.txt"), "")

	// --- Act ---
	files, err := FindAll([]string{dir, filepath.Join(dir, "b.hcl"), filepath.Join(dir, "missing")}, ".hcl", ".yaml")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "x.yaml"),
		filepath.Join(dir, "b.hcl"),
	}, files)
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "matrix.mtx"), "mtx")
	writeFile(t, filepath.Join(src, "nested", "barcodes.tsv"), "AAA-1\n")
	dst := filepath.Join(t.TempDir(), "out")

	require.NoError(t, CopyTree(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "nested", "barcodes.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "AAA-1\n", string(got))
}
