package integration_tests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/stretchr/testify/require"
)

const relayManifest = `
	stage "relay" {
		lifecycle { on_run = "OnRunRelay" }
		input "in" {
			kind = "string"
		}
		input "suffix" {
			kind    = "string"
			default = "!"
		}
		output "out" {
			kind = "string"
		}
	}
`

type relayInput struct {
	In     string `stage:"in"`
	Suffix string `stage:"suffix"`
}

type relayOutput struct {
	Out string `cty:"out"`
}

type relayModule struct{}

func (relayModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunRelay", registry.Typed(func(_ context.Context, _ *registry.Request, in *relayInput) (*relayOutput, error) {
		return &relayOutput{Out: in.In + in.Suffix}, nil
	}))
}

// writeProject lays out a modules directory holding the relay manifest and a
// grid directory holding the given pipeline files.
func writeProject(t *testing.T, grid map[string]string) (gridDir, modulesDir string) {
	t.Helper()
	root := t.TempDir()
	gridDir = filepath.Join(root, "grid")
	modulesDir = filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(gridDir, 0o755))
	require.NoError(t, os.MkdirAll(modulesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modulesDir, "relay.hcl"), []byte(relayManifest), 0o644))
	for name, content := range grid {
		require.NoError(t, os.WriteFile(filepath.Join(gridDir, name), []byte(content), 0o644))
	}
	return gridDir, modulesDir
}

// plan renders the execution plan of the pipeline in gridDir.
func plan(t *testing.T, gridDir, modulesDir string, vars map[string]string) string {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		GridPath:    gridDir,
		ModulesPath: modulesDir,
		Vars:        vars,
		Plan:        true,
		LogLevel:    "error",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := app.NewApp(&out, cfg, relayModule{})
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))
	return out.String()
}

// run executes the pipeline in gridDir and returns the app for inspection.
func run(t *testing.T, cfg app.Config) (*app.App, error) {
	t.Helper()
	cfg.LogLevel = "error"
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	a, err := app.NewApp(&bytes.Buffer{}, validated, relayModule{})
	require.NoError(t, err)
	return a, a.Run(context.Background())
}
