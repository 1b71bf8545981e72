package config

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// MultiLoader runs several loaders over the same paths and merges their
// models in loader order.
type MultiLoader struct {
	loaders []Loader
}

// NewMultiLoader combines the given loaders.
func NewMultiLoader(loaders ...Loader) *MultiLoader {
	return &MultiLoader{loaders: loaders}
}

// Handles reports whether any of the wrapped loaders handles path.
func (m *MultiLoader) Handles(path string) bool {
	for _, l := range m.loaders {
		if l.Handles(path) {
			return true
		}
	}
	return false
}

// Load implements Loader.
func (m *MultiLoader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	merged := NewModel()
	for _, l := range m.loaders {
		model, err := l.Load(ctx, paths...)
		if err != nil {
			return nil, err
		}
		if err := merged.Merge(model); err != nil {
			return nil, err
		}
	}
	logger.Debug("Merged configuration from all loaders.", "loaders", len(m.loaders), "stages", len(merged.Stages), "steps", len(merged.Grid.Steps))
	return merged, nil
}

// LoadVariables dispatches to the first wrapped loader that handles path and
// can read variables.
func (m *MultiLoader) LoadVariables(ctx context.Context, path string) (map[string]cty.Value, error) {
	for _, l := range m.loaders {
		vl, ok := l.(VariableLoader)
		if ok && l.Handles(path) {
			return vl.LoadVariables(ctx, path)
		}
	}
	return nil, fmt.Errorf("no loader can read variables from %s", path)
}

// Merge appends other into m. A stage type declared in both is an error.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return nil
	}
	for name, def := range other.Stages {
		if _, exists := m.Stages[name]; exists {
			return fmt.Errorf("stage %q is declared more than once", name)
		}
		m.Stages[name] = def
	}
	m.Kinds = append(m.Kinds, other.Kinds...)
	if other.Grid != nil {
		m.Grid.Variables = append(m.Grid.Variables, other.Grid.Variables...)
		m.Grid.Steps = append(m.Grid.Steps, other.Grid.Steps...)
		m.Grid.Outputs = append(m.Grid.Outputs, other.Grid.Outputs...)
	}
	return nil
}
