package export_viewer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/internal/matrix/matrixtest"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInputs(t *testing.T, dir string) *Input {
	t.Helper()
	m := &matrix.CountMatrix{
		Features: matrixtest.TestFeatures,
		Barcodes: []string{"AAAA-1", "AAAA-2"},
		Entries:  []matrix.Entry{{Feature: 1, Barcode: 0, Count: 3}, {Feature: 2, Barcode: 1, Count: 1}},
	}
	lm := matrix.LibraryMap{LibraryIDs: []string{"lib1", "lib2"}, OriginalGemGroups: []int{1, 1}}

	in := &Input{
		MatrixH5:   filepath.Join(dir, "matrix.h5"),
		LibraryMap: filepath.Join(dir, "library_map.json"),
		Summary:    filepath.Join(dir, "summary.json"),
	}
	require.NoError(t, m.WriteIndexed(in.MatrixH5, lm))
	data, err := json.Marshal(lm)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in.LibraryMap, data, 0o644))
	require.NoError(t, os.WriteFile(in.Summary, []byte(`{"barcodes":2}`), 0o644))
	return in
}

func TestOnRunExportViewer_WritesBundle(t *testing.T) {
	// --- Arrange ---
	in := writeInputs(t, t.TempDir())
	req := &registry.Request{WorkDir: t.TempDir()}

	// --- Act ---
	out, err := OnRunExportViewer(context.Background(), req, in)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.WorkDir, BundleName), out.Cloupe)

	data, err := os.ReadFile(out.Cloupe)
	require.NoError(t, err)
	var b Bundle
	require.NoError(t, json.Unmarshal(data, &b))

	wantSum, err := fileSHA256(in.MatrixH5)
	require.NoError(t, err)
	assert.Equal(t, BundleFormat, b.Format)
	assert.Equal(t, "matrix.h5", b.Matrix)
	assert.Equal(t, wantSum, b.MatrixSHA256)
	assert.Len(t, b.MatrixSHA256, 64)
	assert.Equal(t, 2, b.Barcodes)
	assert.Equal(t, len(matrixtest.TestFeatures), b.Features)
	assert.Equal(t, []string{"lib1", "lib2"}, b.LibraryMap.LibraryIDs)
	assert.JSONEq(t, `{"barcodes":2}`, string(b.Summary))
}

func TestOnRunExportViewer_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(in *Input)
		wantErr string
	}{
		{
			name:    "matrix is not indexed",
			mutate:  func(in *Input) { in.MatrixH5 = in.Summary },
			wantErr: "is not a valid indexed matrix",
		},
		{
			name:    "missing library map",
			mutate:  func(in *Input) { in.LibraryMap += ".gone" },
			wantErr: "failed to read library map",
		},
		{
			name: "summary is not json",
			mutate: func(in *Input) {
				require.NoError(t, os.WriteFile(in.Summary, []byte("<html>"), 0o644))
			},
			wantErr: "failed to read summary",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := writeInputs(t, t.TempDir())
			tc.mutate(in)

			_, err := OnRunExportViewer(context.Background(), &registry.Request{WorkDir: t.TempDir()}, in)

			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
