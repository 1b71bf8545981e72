package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// ParseVarFlag splits a `name=value` assignment.
func ParseVarFlag(raw string) (name, val string, err error) {
	name, val, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid -var %q: expected name=value", raw)
	}
	return name, val, nil
}

// varValue interprets a command-line value. Lists and objects are parsed as
// HCL expressions; anything else is taken as a string and converted to the
// variable's kind when the graph is built.
func varValue(name, raw string) (cty.Value, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
		return cty.StringVal(raw), nil
	}
	expr, diags := hclsyntax.ParseExpression([]byte(trimmed), "-var "+name, hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid value for -var %s: %s", name, diags.Error())
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid value for -var %s: %s", name, diags.Error())
	}
	return val, nil
}

// providedInputs merges the variables file and the -var flags. Flags win.
func (a *App) providedInputs(ctx context.Context) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	provided := make(map[string]cty.Value)

	if a.config.VarFile != "" {
		fromFile, err := a.loader.LoadVariables(ctx, a.config.VarFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load variables file: %w", err)
		}
		for name, v := range fromFile {
			provided[name] = v
		}
		logger.Debug("Loaded variables file.", "path", a.config.VarFile, "count", len(fromFile))
	}

	names := make([]string, 0, len(a.config.Vars))
	for name := range a.config.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, err := varValue(name, a.config.Vars[name])
		if err != nil {
			return nil, err
		}
		provided[name] = v
	}
	return provided, nil
}
