// Package parse_csv reads the aggregation CSV listing the libraries to merge.
package parse_csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
	"github.com/specialistvlad/stagegrid/internal/registry"
)

// Required columns of the aggregation CSV.
const (
	ColLibraryID = "library_id"
	ColMatrixDir = "matrix_dir"
)

// CopyName is the file name of the CSV copy this stage produces.
const CopyName = "aggregation.csv"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the parse_csv stage.
type Input struct {
	CSV string `stage:"csv"`
}

// Output holds one record per library, in file order.
type Output struct {
	Libraries []map[string]string `cty:"libraries"`
	CSV       string              `cty:"csv"`
}

// OnRunParseCSV is the handler for the 'parse_csv' stage.
func OnRunParseCSV(ctx context.Context, req *registry.Request, in *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	f, err := os.Open(in.CSV)
	if err != nil {
		return nil, fmt.Errorf("failed to open aggregation csv: %w", err)
	}
	defer f.Close()

	libraries, err := Parse(f, filepath.Dir(in.CSV))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.CSV, err)
	}

	dst := filepath.Join(req.WorkDir, CopyName)
	if err := fsutil.CopyFile(in.CSV, dst); err != nil {
		return nil, fmt.Errorf("failed to copy aggregation csv: %w", err)
	}

	logger.Info("Parsed aggregation csv.", "libraries", len(libraries))
	return &Output{Libraries: libraries, CSV: dst}, nil
}

// Parse reads CSV rows into records keyed by column name. Relative matrix
// directories are resolved against baseDir.
func Parse(r io.Reader, baseDir string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("aggregation csv is empty")
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; dup {
			return nil, fmt.Errorf("column %q appears more than once", h)
		}
		cols[h] = i
		header[i] = h
	}
	for _, required := range []string{ColLibraryID, ColMatrixDir} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var records []map[string]string
	seen := make(map[string]int)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		rec := make(map[string]string, len(header))
		for i, h := range header {
			rec[h] = strings.TrimSpace(row[i])
		}
		id := rec[ColLibraryID]
		if id == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, ColLibraryID)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("line %d: library %q already listed on line %d", line, id, prev)
		}
		seen[id] = line
		if rec[ColMatrixDir] == "" {
			return nil, fmt.Errorf("line %d: empty %s for library %q", line, ColMatrixDir, id)
		}
		if !filepath.IsAbs(rec[ColMatrixDir]) {
			rec[ColMatrixDir] = filepath.Join(baseDir, rec[ColMatrixDir])
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.New("aggregation csv lists no libraries")
	}
	return records, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunParseCSV", registry.Typed(OnRunParseCSV))
}
