package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, which may be files or
	// directories, and translates it into the format-agnostic model. Paths
	// that do not exist are skipped. Files of other formats are ignored.
	Load(ctx context.Context, paths ...string) (*Model, error)

	// Handles reports whether this loader understands the given file.
	Handles(path string) bool
}

// VariableLoader reads pipeline input values from a variables file.
type VariableLoader interface {
	LoadVariables(ctx context.Context, path string) (map[string]cty.Value, error)
}
