// Package check_invariants gates the exports of an aggregation: it compares
// the merged matrix against the libraries it was merged from and fails with
// a stageerr.InvariantViolation on any disagreement.
package check_invariants

import (
	"context"
	"errors"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stageerr"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/specialistvlad/stagegrid/modules/aggregate"
)

// Names of the checks, as reported in InvariantViolation.Check.
const (
	CheckLibraryMap    = "library_map"
	CheckBarcodeCount  = "barcode_count"
	CheckFeatureCount  = "feature_count"
	CheckTotalCounts   = "total_counts"
	CheckLibraryTotals = "library_totals"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the check_invariants stage.
type Input struct {
	Libraries []map[string]string `stage:"libraries"`
	MatrixH5  string              `stage:"matrix_h5"`
	Normalize value.Value         `stage:"normalize"`
}

// Output passes the verified matrix on, so consumers only ever see a matrix
// that passed every check.
type Output struct {
	MatrixH5 string `cty:"matrix_h5"`
}

// OnRunCheckInvariants is the handler for the 'check_invariants' stage.
func OnRunCheckInvariants(ctx context.Context, _ *registry.Request, in *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	libs, err := aggregate.LoadLibraries(in.Libraries)
	if err != nil {
		return nil, err
	}
	merged, lm, err := matrix.ReadIndexed(in.MatrixH5)
	if err != nil {
		return nil, err
	}
	if err := Verify(libs, merged, lm, aggregate.Mode(in.Normalize)); err != nil {
		return nil, err
	}

	logger.Info("All aggregation invariants hold.", "libraries", len(libs), "barcodes", len(merged.Barcodes))
	return &Output{MatrixH5: in.MatrixH5}, nil
}

// Verify checks merged against its inputs. All violations are returned
// joined, in check order.
func Verify(libs []aggregate.Library, merged *matrix.CountMatrix, lm matrix.LibraryMap, mode string) error {
	var errs []error

	ids := make(map[string]int, len(libs))
	for i, lib := range libs {
		ids[lib.ID] = i
	}
	seen := make(map[string]bool, len(libs))
	for _, id := range lm.LibraryIDs {
		if _, ok := ids[id]; !ok {
			errs = append(errs, stageerr.Invariant(CheckLibraryMap, "library map names unknown library %q", id))
		}
		seen[id] = true
	}
	for _, lib := range libs {
		if !seen[lib.ID] {
			errs = append(errs, stageerr.Invariant(CheckLibraryMap, "library %q is missing from the library map", lib.ID))
		}
	}

	var wantBarcodes int
	var wantTotal int64
	for _, lib := range libs {
		wantBarcodes += len(lib.Matrix.Barcodes)
		wantTotal += lib.Matrix.Total()
	}
	if got := len(merged.Barcodes); got != wantBarcodes {
		errs = append(errs, stageerr.Invariant(CheckBarcodeCount, "merged matrix has %d barcodes, inputs have %d", got, wantBarcodes))
	}
	if len(libs) > 0 {
		if got, want := len(merged.Features), len(libs[0].Matrix.Features); got != want {
			errs = append(errs, stageerr.Invariant(CheckFeatureCount, "merged matrix has %d features, inputs have %d", got, want))
		}
	}

	switch mode {
	case aggregate.NormalizeMapped:
		totals, err := totalsByLibrary(merged, lm)
		if err != nil {
			errs = append(errs, err)
			break
		}
		for _, lib := range libs {
			if raw := lib.Matrix.Total(); totals[lib.ID] > raw {
				errs = append(errs, stageerr.Invariant(CheckLibraryTotals, "library %q grew from %d to %d counts", lib.ID, raw, totals[lib.ID]))
			}
		}
	default:
		if got := merged.Total(); got != wantTotal {
			errs = append(errs, stageerr.Invariant(CheckTotalCounts, "merged matrix has %d counts, inputs have %d", got, wantTotal))
		}
	}

	return errors.Join(errs...)
}

// totalsByLibrary attributes merged counts back to libraries through the
// gem group suffix of each barcode.
func totalsByLibrary(merged *matrix.CountMatrix, lm matrix.LibraryMap) (map[string]int64, error) {
	groupOf := make([]int, len(merged.Barcodes))
	for i, bc := range merged.Barcodes {
		_, gg, err := matrix.SplitBarcode(bc)
		if err != nil {
			return nil, stageerr.Invariant(CheckLibraryMap, "%v", err)
		}
		if gg > lm.GemGroups() {
			return nil, stageerr.Invariant(CheckLibraryMap, "barcode %q has gem group %d, library map has %d", bc, gg, lm.GemGroups())
		}
		groupOf[i] = gg
	}

	totals := make(map[string]int64)
	for _, e := range merged.Entries {
		totals[lm.LibraryIDs[groupOf[e.Barcode]-1]] += e.Count
	}
	return totals, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunCheckInvariants", registry.Typed(OnRunCheckInvariants))
}
