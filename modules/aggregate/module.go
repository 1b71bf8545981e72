// Package aggregate merges per-library count matrices into one matrix.
package aggregate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Artifact names inside the stage's work directory.
const (
	MatrixDirName  = "filtered_feature_bc_matrix"
	MatrixH5Name   = "filtered_feature_bc_matrix.h5"
	SummaryName    = "summary.json"
	WebSummaryName = "web_summary.html"
	LibraryMapName = "library_map.json"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the aggregate stage.
type Input struct {
	Libraries []map[string]string `stage:"libraries"`
	// Normalize is optional; unset means NormalizeNone.
	Normalize value.Value `stage:"normalize"`
}

// Output lists the paths of every artifact written.
type Output struct {
	MatrixMEX  string `cty:"matrix_mex"`
	MatrixH5   string `cty:"matrix_h5"`
	Summary    string `cty:"summary"`
	WebSummary string `cty:"web_summary"`
	LibraryMap string `cty:"library_map"`
}

// Mode returns the normalization mode selected by v.
func Mode(v value.Value) string {
	mode := v.Or(cty.StringVal(NormalizeNone))
	if mode.IsNull() {
		return NormalizeNone
	}
	return mode.AsString()
}

// OnRunAggregate is the handler for the 'aggregate' stage.
func OnRunAggregate(ctx context.Context, req *registry.Request, in *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)
	mode := Mode(in.Normalize)

	libs, err := LoadLibraries(in.Libraries)
	if err != nil {
		return nil, err
	}
	res, err := Merge(libs, mode)
	if err != nil {
		return nil, err
	}
	logger.Info("Merged library matrices.", "libraries", len(libs), "barcodes", len(res.Matrix.Barcodes), "normalization", mode)

	out := &Output{
		MatrixMEX:  filepath.Join(req.WorkDir, MatrixDirName),
		MatrixH5:   filepath.Join(req.WorkDir, MatrixH5Name),
		Summary:    filepath.Join(req.WorkDir, SummaryName),
		WebSummary: filepath.Join(req.WorkDir, WebSummaryName),
		LibraryMap: filepath.Join(req.WorkDir, LibraryMapName),
	}
	if err := res.Matrix.WriteMEX(out.MatrixMEX); err != nil {
		return nil, fmt.Errorf("failed to write merged matrix: %w", err)
	}
	if err := res.Matrix.WriteIndexed(out.MatrixH5, res.LibraryMap); err != nil {
		return nil, fmt.Errorf("failed to write indexed matrix: %w", err)
	}
	summary := NewSummary(res, mode)
	if err := writeJSON(out.Summary, summary); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	if err := writeWebSummary(out.WebSummary, summary); err != nil {
		return nil, fmt.Errorf("failed to write web summary: %w", err)
	}
	if err := writeJSON(out.LibraryMap, res.LibraryMap); err != nil {
		return nil, fmt.Errorf("failed to write library map: %w", err)
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunAggregate", registry.Typed(OnRunAggregate))
}
