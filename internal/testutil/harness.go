package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Options tune a harness run. The zero value runs the pipeline with four
// workers and no outputs directory.
type Options struct {
	Vars    map[string]string
	VarFile string
	Plan    bool
	Workers int
	// MaterializeOutputs writes outputs into HarnessResult.OutDir.
	MaterializeOutputs bool
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	// Root is the temporary directory the files were written to.
	Root   string
	OutDir string
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, opts Options, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, opts, modules...)
}

// RunIntegrationTestWithContext writes files under a temporary root, then
// loads and runs the pipeline in root/grid against the manifests in
// root/modules. File names are relative to the root, e.g.
// "modules/x/manifest.hcl" or "grid/main.hcl".
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, opts Options, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	gridDir := filepath.Join(tmpDir, "grid")
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.MkdirAll(gridDir, 0755))
	require.NoError(t, os.MkdirAll(modulesDir, 0755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	workers := opts.Workers
	if workers == 0 {
		workers = 4
	}
	cfg := &app.Config{
		GridPath:    gridDir,
		ModulesPath: modulesDir,
		Vars:        opts.Vars,
		Plan:        opts.Plan,
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: workers,
	}
	if opts.VarFile != "" {
		cfg.VarFile = filepath.Join(tmpDir, opts.VarFile)
	}
	result := &HarnessResult{Root: tmpDir}
	if opts.MaterializeOutputs {
		result.OutDir = filepath.Join(tmpDir, "out")
		cfg.OutDir = result.OutDir
	}

	logBuffer := &SafeBuffer{}
	result.App, result.Err = newApp(logBuffer, cfg, modules)
	if result.Err == nil {
		result.Err = result.App.Run(ctx)
	}
	result.LogOutput = logBuffer.String()

	if os.Getenv("STAGEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}

// newApp turns a registration panic, such as a duplicate handler name, into
// an error so tests can assert on it.
func newApp(logBuffer *SafeBuffer, cfg *app.Config, modules []registry.Module) (a *app.App, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked | %v", r)
		}
	}()
	if len(modules) == 0 {
		modules = []registry.Module{&NoOpModule{}}
	}
	return app.NewApp(logBuffer, cfg, modules...)
}
