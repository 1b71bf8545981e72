package integration_tests

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/cli"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const echoManifest = `
	stage "echo" {
		lifecycle { on_run = "OnRunEcho" }
		input "text" {
			kind = "string"
		}
		output "text" {
			kind = "string"
		}
	}
`

type echoModule struct{}

func (echoModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunEcho", registry.HandlerFunc(func(_ context.Context, req *registry.Request) (map[string]cty.Value, error) {
		text, err := req.Inputs.Resolved("text")
		if err != nil {
			return nil, err
		}
		if text.AsString() == "boom" {
			return nil, errors.New("echo refused")
		}
		return map[string]cty.Value{"text": text}, nil
	}))
}

const echoGrid = `
	variable "text" {
		kind = "string"
	}
	step "echo" "only" {
		arguments {
			text = var.text
		}
	}
	output "said" {
		value = step.echo.only.output.text
	}
`

// invoke runs the command line the way the binary does, with the echo module
// in place of the core modules, and returns the exit code and stdout.
func invoke(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	cfg, exit, err := cli.Parse(args, &out)
	if err != nil || exit {
		return cli.ExitCode(err), out.String()
	}
	a, err := app.NewApp(&out, cfg, echoModule{})
	if err == nil {
		err = a.Run(context.Background())
	}
	return cli.ExitCode(err), out.String()
}

func writeProject(t *testing.T, grid string) (gridDir, modulesDir string) {
	t.Helper()
	root := t.TempDir()
	gridDir = filepath.Join(root, "grid")
	modulesDir = filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(gridDir, 0o755))
	require.NoError(t, os.MkdirAll(modulesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modulesDir, "echo.hcl"), []byte(echoManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(gridDir, "main.hcl"), []byte(grid), 0o644))
	return gridDir, modulesDir
}

// Test for: the process exit code tells a successful run, a failed stage
// and an unusable pipeline apart.
func TestCLIBehavior_ExitCodes(t *testing.T) {
	testCases := []struct {
		name     string
		grid     string
		args     []string
		expected int
	}{
		{
			name:     "success",
			grid:     echoGrid,
			args:     []string{"-var", "text=hi"},
			expected: cli.ExitOK,
		},
		{
			name:     "stage failure",
			grid:     echoGrid,
			args:     []string{"-var", "text=boom"},
			expected: cli.ExitFailure,
		},
		{
			name:     "missing pipeline input",
			grid:     echoGrid,
			expected: cli.ExitUsage,
		},
		{
			name:     "malformed var flag",
			grid:     echoGrid,
			args:     []string{"-var", "text"},
			expected: cli.ExitUsage,
		},
		{
			name: "invalid graph",
			grid: echoGrid + `
				step "echo" "loop" {
					arguments {
						text = step.echo.loop.output.text
					}
				}
			`,
			args:     []string{"-var", "text=hi"},
			expected: cli.ExitUsage,
		},
		{
			name:     "unknown flag",
			grid:     echoGrid,
			args:     []string{"-frobnicate"},
			expected: cli.ExitUsage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			gridDir, modulesDir := writeProject(t, tc.grid)
			args := append([]string{"-modules-path", modulesDir, "-log-level", "error"}, tc.args...)
			args = append(args, gridDir)

			// --- Act ---
			code, _ := invoke(t, args...)

			// --- Assert ---
			assert.Equal(t, tc.expected, code)
		})
	}
}

// Test for: a successful run prints its outputs to stdout.
func TestCLIBehavior_PrintsOutputs(t *testing.T) {
	// --- Arrange ---
	gridDir, modulesDir := writeProject(t, echoGrid)

	// --- Act ---
	code, out := invoke(t, "-modules-path", modulesDir, "-log-level", "error", "-var", "text=hello", gridDir)

	// --- Assert ---
	require.Equal(t, cli.ExitOK, code)
	assert.Contains(t, out, `said = "hello"`)
}

// Test for: -plan validates and prints the graph without running any stage.
func TestCLIBehavior_PlanDoesNotRun(t *testing.T) {
	// --- Arrange ---
	gridDir, modulesDir := writeProject(t, echoGrid)

	// --- Act ---
	code, out := invoke(t, "-modules-path", modulesDir, "-log-level", "error", "-plan", "-var", "text=boom", gridDir)

	// --- Assert ---
	require.Equal(t, cli.ExitOK, code, "the failing value is never handed to a stage")
	assert.Contains(t, out, `step "echo" "only"`)
	assert.NotContains(t, out, "said =")
}

// Test for: -var-file supplies inputs and -var overrides them.
func TestCLIBehavior_VarFile(t *testing.T) {
	// --- Arrange ---
	gridDir, modulesDir := writeProject(t, echoGrid)
	varFile := filepath.Join(t.TempDir(), "inputs.yaml")
	require.NoError(t, os.WriteFile(varFile, []byte("text: from-file\n"), 0o644))
	base := []string{"-modules-path", modulesDir, "-log-level", "error", "-var-file", varFile}

	// --- Act ---
	fileCode, fileOut := invoke(t, append(base, gridDir)...)
	flagCode, flagOut := invoke(t, append(base, "-var", "text=from-flag", gridDir)...)

	// --- Assert ---
	require.Equal(t, cli.ExitOK, fileCode)
	require.Equal(t, cli.ExitOK, flagCode)
	assert.Contains(t, fileOut, `said = "from-file"`)
	assert.Contains(t, flagOut, `said = "from-flag"`)
}
