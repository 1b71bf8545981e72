// Package export_viewer bundles an aggregated matrix for the desktop viewer.
package export_viewer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/internal/registry"
)

// BundleName is the file name of the bundle written by this stage.
const BundleName = "cloupe.cloupe"

// BundleFormat identifies the bundle layout.
const BundleFormat = "stagegrid-viewer/1"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the export_viewer stage.
type Input struct {
	MatrixH5   string `stage:"matrix_h5"`
	LibraryMap string `stage:"library_map"`
	Summary    string `stage:"summary"`
}

// Output holds the path of the written bundle.
type Output struct {
	Cloupe string `cty:"cloupe"`
}

// Bundle is the document written to BundleName.
type Bundle struct {
	Format       string            `json:"format"`
	Matrix       string            `json:"matrix"`
	MatrixSHA256 string            `json:"matrix_sha256"`
	Barcodes     int               `json:"barcodes"`
	Features     int               `json:"features"`
	LibraryMap   matrix.LibraryMap `json:"library_map"`
	Summary      json.RawMessage   `json:"summary"`
}

// OnRunExportViewer is the handler for the 'export_viewer' stage.
func OnRunExportViewer(ctx context.Context, req *registry.Request, in *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	m, _, err := matrix.ReadIndexed(in.MatrixH5)
	if err != nil {
		return nil, err
	}
	sum, err := fileSHA256(in.MatrixH5)
	if err != nil {
		return nil, err
	}

	b := Bundle{
		Format:       BundleFormat,
		Matrix:       filepath.Base(in.MatrixH5),
		MatrixSHA256: sum,
		Barcodes:     len(m.Barcodes),
		Features:     len(m.Features),
	}
	if err := readJSON(in.LibraryMap, &b.LibraryMap); err != nil {
		return nil, fmt.Errorf("failed to read library map: %w", err)
	}
	if err := readJSON(in.Summary, &b.Summary); err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, err
	}
	out := filepath.Join(req.WorkDir, BundleName)
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write viewer bundle: %w", err)
	}
	logger.Info("Wrote viewer bundle.", "path", out)
	return &Output{Cloupe: out}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunExportViewer", registry.Typed(OnRunExportViewer))
}
