package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/internal/matrix/matrixtest"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestMode(t *testing.T) {
	assert.Equal(t, NormalizeNone, Mode(value.Unresolved()))
	assert.Equal(t, NormalizeNone, Mode(value.Of(cty.NullVal(cty.String))))
	assert.Equal(t, NormalizeMapped, Mode(value.Of(cty.StringVal("mapped"))))
}

func TestOnRunAggregate_WritesAllArtifacts(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	lib1 := matrixtest.WriteLibrary(t, dir, "lib1", 2, []int64{1, 0, 2}, []int64{0, 3, 0})
	lib2 := matrixtest.WriteLibrary(t, dir, "lib2", 2, []int64{4, 4, 4})
	in := &Input{
		Libraries: []map[string]string{
			{"library_id": "lib1", "matrix_dir": lib1},
			{"library_id": "lib2", "matrix_dir": lib2},
		},
		Normalize: value.Unresolved(),
	}
	req := &registry.Request{WorkDir: t.TempDir()}

	// --- Act ---
	out, err := OnRunAggregate(context.Background(), req, in)

	// --- Assert ---
	require.NoError(t, err)

	mex, err := matrix.ReadMEX(out.MatrixMEX)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC0000GT-1", "AC0001GT-1", "AC0000GT-2"}, mex.Barcodes)
	assert.Equal(t, int64(18), mex.Total())

	indexed, lm, err := matrix.ReadIndexed(out.MatrixH5)
	require.NoError(t, err)
	assert.Equal(t, mex, indexed)
	assert.Equal(t, []string{"lib1", "lib2"}, lm.LibraryIDs)

	var summary Summary
	data, err := os.ReadFile(out.Summary)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, NormalizeNone, summary.Normalization)
	assert.Equal(t, 3, summary.Barcodes)
	assert.Equal(t, int64(18), summary.TotalCounts)

	html, err := os.ReadFile(out.WebSummary)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<td>lib2</td><td>2</td>")

	var gotMap matrix.LibraryMap
	data, err = os.ReadFile(out.LibraryMap)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &gotMap))
	assert.Equal(t, lm, gotMap)
}

func TestOnRunAggregate_MissingLibrary(t *testing.T) {
	in := &Input{
		Libraries: []map[string]string{{"library_id": "gone", "matrix_dir": "/nonexistent"}},
		Normalize: value.Unresolved(),
	}

	_, err := OnRunAggregate(context.Background(), &registry.Request{WorkDir: t.TempDir()}, in)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `library "gone"`)
}
