package check_invariants

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/internal/matrix/matrixtest"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stageerr"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/specialistvlad/stagegrid/modules/aggregate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testLibraries() []aggregate.Library {
	return []aggregate.Library{
		{ID: "lib1", Matrix: &matrix.CountMatrix{
			Features: matrixtest.TestFeatures,
			Barcodes: []string{"AAAA-1", "CCCC-1"},
			Entries: []matrix.Entry{
				{Feature: 0, Barcode: 0, Count: 4},
				{Feature: 1, Barcode: 1, Count: 6},
			},
		}},
		{ID: "lib2", Matrix: &matrix.CountMatrix{
			Features: matrixtest.TestFeatures,
			Barcodes: []string{"GGGG-1"},
			Entries: []matrix.Entry{
				{Feature: 2, Barcode: 0, Count: 2},
			},
		}},
	}
}

func TestVerify_AcceptsMergeOutput(t *testing.T) {
	for _, mode := range []string{aggregate.NormalizeNone, aggregate.NormalizeMapped} {
		t.Run(mode, func(t *testing.T) {
			libs := testLibraries()
			res, err := aggregate.Merge(libs, mode)
			require.NoError(t, err)

			assert.NoError(t, Verify(libs, res.Matrix, res.LibraryMap, mode))
		})
	}
}

func TestVerify_Violations(t *testing.T) {
	testCases := []struct {
		name   string
		mode   string
		tamper func(m *matrix.CountMatrix, lm *matrix.LibraryMap)
		checks []string
	}{
		{
			name: "dropped barcode",
			mode: aggregate.NormalizeNone,
			tamper: func(m *matrix.CountMatrix, _ *matrix.LibraryMap) {
				m.Barcodes = m.Barcodes[:2]
				m.Entries = m.Entries[:2]
			},
			checks: []string{CheckBarcodeCount, CheckTotalCounts},
		},
		{
			name: "extra feature",
			mode: aggregate.NormalizeNone,
			tamper: func(m *matrix.CountMatrix, _ *matrix.LibraryMap) {
				m.Features = append(append([]matrix.Feature{}, m.Features...), matrix.Feature{ID: "ENSG9"})
			},
			checks: []string{CheckFeatureCount},
		},
		{
			name: "inflated counts",
			mode: aggregate.NormalizeNone,
			tamper: func(m *matrix.CountMatrix, _ *matrix.LibraryMap) {
				m.Entries[0].Count++
			},
			checks: []string{CheckTotalCounts},
		},
		{
			name: "unknown library in map",
			mode: aggregate.NormalizeNone,
			tamper: func(_ *matrix.CountMatrix, lm *matrix.LibraryMap) {
				lm.LibraryIDs[1] = "lib9"
			},
			checks: []string{CheckLibraryMap, CheckLibraryMap},
		},
		{
			name: "library grew under mapped normalization",
			mode: aggregate.NormalizeMapped,
			tamper: func(m *matrix.CountMatrix, _ *matrix.LibraryMap) {
				m.Entries[len(m.Entries)-1].Count += 100
			},
			checks: []string{CheckLibraryTotals},
		},
		{
			name: "gem group outside the map",
			mode: aggregate.NormalizeMapped,
			tamper: func(m *matrix.CountMatrix, _ *matrix.LibraryMap) {
				m.Barcodes[2] = "GGGG-7"
			},
			checks: []string{CheckLibraryMap},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			libs := testLibraries()
			res, err := aggregate.Merge(libs, tc.mode)
			require.NoError(t, err)
			tc.tamper(res.Matrix, &res.LibraryMap)

			// --- Act ---
			err = Verify(libs, res.Matrix, res.LibraryMap, tc.mode)

			// --- Assert ---
			require.Error(t, err)
			assert.True(t, stageerr.IsInvariantViolation(err))

			joined, ok := err.(interface{ Unwrap() []error })
			require.True(t, ok, "violations should be joined")
			var checks []string
			for _, e := range joined.Unwrap() {
				var iv *stageerr.InvariantViolation
				require.ErrorAs(t, e, &iv)
				checks = append(checks, iv.Check)
			}
			assert.Equal(t, tc.checks, checks)
		})
	}
}

func TestOnRunCheckInvariants_PassesMatrixThrough(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	lib1 := matrixtest.WriteLibrary(t, dir, "lib1", 2, []int64{1, 2, 3})
	lib2 := matrixtest.WriteLibrary(t, dir, "lib2", 2, []int64{0, 5, 0}, []int64{1, 1, 1})
	records := []map[string]string{
		{"library_id": "lib1", "matrix_dir": lib1},
		{"library_id": "lib2", "matrix_dir": lib2},
	}
	libs, err := aggregate.LoadLibraries(records)
	require.NoError(t, err)
	res, err := aggregate.Merge(libs, aggregate.NormalizeNone)
	require.NoError(t, err)
	h5 := filepath.Join(dir, "merged.h5")
	require.NoError(t, res.Matrix.WriteIndexed(h5, res.LibraryMap))

	in := &Input{Libraries: records, MatrixH5: h5, Normalize: value.Of(cty.NullVal(cty.String))}

	// --- Act ---
	out, err := OnRunCheckInvariants(context.Background(), &registry.Request{}, in)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, h5, out.MatrixH5)
}

func TestOnRunCheckInvariants_RejectsForeignMatrix(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	lib1 := matrixtest.WriteLibrary(t, dir, "lib1", 2, []int64{1, 2, 3})
	other := matrixtest.WriteLibrary(t, dir, "other", 2, []int64{9, 9, 9}, []int64{9, 9, 9})

	otherLibs, err := aggregate.LoadLibraries([]map[string]string{{"library_id": "lib1", "matrix_dir": other}})
	require.NoError(t, err)
	res, err := aggregate.Merge(otherLibs, aggregate.NormalizeNone)
	require.NoError(t, err)
	h5 := filepath.Join(dir, "merged.h5")
	require.NoError(t, res.Matrix.WriteIndexed(h5, res.LibraryMap))

	in := &Input{
		Libraries: []map[string]string{{"library_id": "lib1", "matrix_dir": lib1}},
		MatrixH5:  h5,
		Normalize: value.Unresolved(),
	}

	// --- Act ---
	_, err = OnRunCheckInvariants(context.Background(), &registry.Request{}, in)

	// --- Assert ---
	require.Error(t, err)
	assert.True(t, stageerr.IsInvariantViolation(err))
	assert.ErrorContains(t, err, CheckBarcodeCount)
}
