// Package matrixtest writes matrix fixtures for tests.
package matrixtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/stretchr/testify/require"
)

// TestFeatures is the feature list every library written by WriteLibrary
// shares.
var TestFeatures = []matrix.Feature{
	{ID: "ENSG00000000001", Name: "GENE1", Type: matrix.DefaultFeatureType},
	{ID: "ENSG00000000002", Name: "GENE2", Type: matrix.DefaultFeatureType},
	{ID: "ENSG00000000003", Name: "GENE3", Type: matrix.DefaultFeatureType},
}

// WriteLibrary writes a MEX directory under dir/name with one barcode per
// column of counts. counts[j][i] is the count of feature i in barcode j.
// A version above zero is recorded in metadata.json. It returns the
// directory.
func WriteLibrary(t *testing.T, dir, name string, version int, counts ...[]int64) string {
	t.Helper()
	m := &matrix.CountMatrix{Features: TestFeatures}
	for j, col := range counts {
		m.Barcodes = append(m.Barcodes, fmt.Sprintf("AC%04dGT-1", j))
		for i, c := range col {
			if c > 0 {
				m.Entries = append(m.Entries, matrix.Entry{Feature: i, Barcode: j, Count: c})
			}
		}
	}

	libDir := filepath.Join(dir, name)
	require.NoError(t, m.WriteMEX(libDir))
	if version > 0 {
		require.NoError(t, matrix.WriteMetadata(libDir, matrix.Metadata{Version: version, Chemistry: "SC3Pv3"}))
	}
	return libDir
}

// WriteAggregationCSV writes an aggregation CSV listing the given library
// directories, keyed by their base names.
func WriteAggregationCSV(t *testing.T, path string, libDirs ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("library_id,matrix_dir\n")
	for _, d := range libDirs {
		fmt.Fprintf(&b, "%s,%s\n", filepath.Base(d), d)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}
