package yaml_adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Handles implements config.Loader.
func (l *Loader) Handles(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load implements config.Loader. A file may contain several documents.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindAll(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := config.NewModel()
	for _, file := range files {
		if err := l.loadFile(file, model); err != nil {
			return nil, err
		}
	}

	logger.Debug("YAML loading complete.", "stages", len(model.Stages), "steps", len(model.Grid.Steps), "outputs", len(model.Grid.Outputs))
	return model, nil
}

func (l *Loader) loadFile(path string, model *config.Model) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open YAML file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	for {
		var root fileRoot
		if err := dec.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
		}
		if err := merge(&root, model); err != nil {
			return fmt.Errorf("in %s: %w", path, err)
		}
	}
}

func merge(root *fileRoot, model *config.Model) error {
	for _, k := range root.Kinds {
		if k.Base == "" {
			return fmt.Errorf("kind '%s' must set 'base'", k.Name)
		}
		model.Kinds = append(model.Kinds, &config.KindDefinition{Name: k.Name, Base: k.Base, Type: cty.NilType})
	}
	for i := range root.Stages {
		def, err := translateStage(&root.Stages[i])
		if err != nil {
			return err
		}
		if _, exists := model.Stages[def.Type]; exists {
			return fmt.Errorf("stage %q is declared more than once", def.Type)
		}
		model.Stages[def.Type] = def
	}
	for i := range root.Variables {
		v, err := translateVariable(&root.Variables[i])
		if err != nil {
			return err
		}
		model.Grid.Variables = append(model.Grid.Variables, v)
	}
	for i := range root.Steps {
		s, err := translateStep(&root.Steps[i])
		if err != nil {
			return err
		}
		model.Grid.Steps = append(model.Grid.Steps, s)
	}
	for i := range root.Outputs {
		o, err := translateOutput(&root.Outputs[i])
		if err != nil {
			return err
		}
		model.Grid.Outputs = append(model.Grid.Outputs, o)
	}
	return nil
}

// LoadVariables reads a YAML mapping of variable names to values.
func (l *Loader) LoadVariables(ctx context.Context, path string) (map[string]cty.Value, error) {
	ctxlog.FromContext(ctx).Debug("Loading YAML variables file.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables file %s: %w", path, err)
	}
	var nodes map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode variables file %s: %w", path, err)
	}

	vars := make(map[string]cty.Value, len(nodes))
	for name, n := range nodes {
		n := n
		val, _, err := nodeToCty(&n)
		if err != nil {
			return nil, fmt.Errorf("in variables file %s, variable '%s': %w", path, name, err)
		}
		vars[name] = val
	}
	return vars, nil
}
