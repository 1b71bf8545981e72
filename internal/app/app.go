package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/events"
	"github.com/specialistvlad/stagegrid/internal/hcl_adapter"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/outputs"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   *config.MultiLoader
	model    *config.Model
	registry *registry.Registry
	kinds    *kind.Registry

	// recorder keeps the events of the current run for the status endpoint.
	recorder   *events.Recorder
	httpServer *http.Server
	outputs    *outputs.PipelineOutput
}

// DefaultLoader reads manifests and pipelines written in HCL or YAML.
func DefaultLoader() *config.MultiLoader {
	return config.NewMultiLoader(hcl_adapter.NewLoader(), yaml_adapter.NewLoader())
}

// NewApp is the constructor for the main application. It loads every
// manifest and the pipeline, registers custom kinds and Go handlers, and
// checks that manifests and handlers agree. With no modules given, the core
// modules are registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Merge all configuration paths into a single collection for the loader.
	var configPaths []string
	if cfg.GridPath != "" {
		configPaths = append(configPaths, cfg.GridPath)
	}
	if cfg.ModulesPath != "" {
		configPaths = append(configPaths, cfg.ModulesPath)
	}

	loader := DefaultLoader()
	model, err := loader.Load(ctx, configPaths...)
	if err != nil {
		return nil, &StartupError{Err: fmt.Errorf("failed to load configuration: %w", err)}
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	kinds := kind.NewRegistry()
	for _, k := range model.Kinds {
		if err := kinds.Define(kind.Kind(k.Name), kind.Kind(k.Base), k.Type); err != nil {
			return nil, &StartupError{Err: fmt.Errorf("failed to register kind: %w", err)}
		}
	}
	logger.Debug("Custom kinds registered.", "count", len(model.Kinds))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	reg.PopulateDefinitionsFromModel(model)
	if err := reg.ValidateRegistry(ctx, kinds); err != nil {
		return nil, &StartupError{Err: err}
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		model:    model,
		registry: reg,
		kinds:    kinds,
		recorder: &events.Recorder{},
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Events returns every event of the last run.
func (a *App) Events() *events.Recorder {
	return a.recorder
}

// Outputs returns the pipeline outputs of the last successful run.
func (a *App) Outputs() *outputs.PipelineOutput {
	return a.outputs
}
