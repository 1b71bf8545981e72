package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/stagegrid/internal/config"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered handlers and stage definitions for a
// single application instance. It is read-only once validated.
type Registry struct {
	HandlerRegistry    map[string]Handler
	DefinitionRegistry map[string]*config.StageDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]Handler),
		DefinitionRegistry: make(map[string]*config.StageDefinition),
	}
}

// RegisterHandler registers a Go handler under the name manifests use in
// their `on_run` attribute.
func (r *Registry) RegisterHandler(name string, h Handler) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("stage handler with name '%s' already registered", name))
	}
	slog.Debug("Registering stage handler.", "name", name)
	r.HandlerRegistry[name] = h
}

// PopulateDefinitionsFromModel copies the loaded stage definitions from the
// config model into the registry for easy access during graph construction.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Stages {
		r.DefinitionRegistry[key] = val
	}
}

// Stage returns the definition and handler for a stage type.
func (r *Registry) Stage(stageType string) (*config.StageDefinition, Handler, error) {
	def, ok := r.DefinitionRegistry[stageType]
	if !ok {
		return nil, nil, fmt.Errorf("unknown stage type %q", stageType)
	}
	if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
		return nil, nil, fmt.Errorf("stage %q has no on_run handler", stageType)
	}
	h, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
	if !ok {
		return nil, nil, fmt.Errorf("stage %q refers to unregistered handler %q", stageType, def.Lifecycle.OnRun)
	}
	return def, h, nil
}

// HandlerNames returns the registered handler names in sorted order.
func (r *Registry) HandlerNames() []string {
	names := make([]string, 0, len(r.HandlerRegistry))
	for name := range r.HandlerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
