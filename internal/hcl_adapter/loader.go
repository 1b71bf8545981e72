package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
)

const fileExt = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Handles implements config.Loader.
func (l *Loader) Handles(path string) bool {
	return filepath.Ext(path) == fileExt
}

// Load orchestrates the entire HCL configuration loading process. It is
// agnostic to the origin of the paths and parses any valid block from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()

	hclFiles, err := fsutil.FindAll(paths, fileExt)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		// Translate and merge all discovered blocks into the model.
		for _, k := range root.Kinds {
			def, err := translateKind(ctx, k)
			if err != nil {
				return nil, err
			}
			model.Kinds = append(model.Kinds, def)
		}
		for _, stage := range root.Stages {
			def, err := translateStageDefinition(ctx, stage)
			if err != nil {
				return nil, err
			}
			if _, exists := model.Stages[def.Type]; exists {
				return nil, fmt.Errorf("stage %q is declared more than once (again in %s)", def.Type, file)
			}
			model.Stages[def.Type] = def
		}
		for _, v := range root.Variables {
			def, err := translateVariable(ctx, v)
			if err != nil {
				return nil, err
			}
			model.Grid.Variables = append(model.Grid.Variables, def)
		}
		for _, step := range root.Steps {
			s, err := translateStep(ctx, step)
			if err != nil {
				return nil, err
			}
			model.Grid.Steps = append(model.Grid.Steps, s)
		}
		for _, out := range root.Outputs {
			o, err := translateOutput(out)
			if err != nil {
				return nil, err
			}
			model.Grid.Outputs = append(model.Grid.Outputs, o)
		}
	}

	logger.Debug("HCL loading complete.",
		"stages", len(model.Stages),
		"variables", len(model.Grid.Variables),
		"steps", len(model.Grid.Steps),
		"outputs", len(model.Grid.Outputs),
	)
	return model, nil
}
