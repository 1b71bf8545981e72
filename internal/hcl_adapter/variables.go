package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// LoadVariables reads a variables file of the form `name = value`. Values
// must be constants; `null` is kept as a null value and later treated as an
// unset variable.
func (l *Loader) LoadVariables(ctx context.Context, path string) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL variables file.", "path", path)

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse variables file %s: %w", path, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read variables file %s: %w", path, diags)
	}

	vars := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("in variables file %s, variable '%s': %w", path, name, diags)
		}
		vars[name] = val
	}
	logger.Debug("Loaded HCL variables file.", "path", path, "count", len(vars))
	return vars, nil
}
