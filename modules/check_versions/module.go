// Package check_versions verifies that every library's matrix uses a format
// version this build can aggregate.
package check_versions

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/modules/parse_csv"
)

// Record keys added by this stage.
const (
	KeyVersion         = "version"
	KeyOriginalVersion = "original_version"
	KeyChemistry       = "chemistry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the check_versions stage.
type Input struct {
	Libraries []map[string]string `stage:"libraries"`
}

// Output returns the libraries annotated with their format version.
type Output struct {
	Libraries []map[string]string `cty:"libraries"`
}

// OnRunCheckVersions is the handler for the 'check_versions' stage. A matrix
// newer than matrix.CurrentVersion fails the stage. Older matrices are read
// the same way, so they are migrated by recording the current version.
func OnRunCheckVersions(ctx context.Context, _ *registry.Request, in *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)
	out := &Output{Libraries: make([]map[string]string, 0, len(in.Libraries))}

	for _, lib := range in.Libraries {
		id := lib[parse_csv.ColLibraryID]
		dir := lib[parse_csv.ColMatrixDir]
		for _, name := range []string{matrix.MatrixFile, matrix.FeaturesFile, matrix.BarcodesFile} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				return nil, fmt.Errorf("library %q: %w", id, err)
			}
		}

		md, err := matrix.ReadMetadata(dir)
		if err != nil {
			return nil, fmt.Errorf("library %q: %w", id, err)
		}
		if md.Version > matrix.CurrentVersion {
			return nil, fmt.Errorf("library %q: matrix format version %d is newer than the supported version %d", id, md.Version, matrix.CurrentVersion)
		}

		rec := maps.Clone(lib)
		rec[KeyOriginalVersion] = strconv.Itoa(md.Version)
		rec[KeyVersion] = strconv.Itoa(matrix.CurrentVersion)
		rec[KeyChemistry] = md.Chemistry
		if md.Version < matrix.CurrentVersion {
			logger.Info("Migrating library matrix format.", "library", id, "from", md.Version, "to", matrix.CurrentVersion)
		}
		out.Libraries = append(out.Libraries, rec)
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunCheckVersions", registry.Typed(OnRunCheckVersions))
}
