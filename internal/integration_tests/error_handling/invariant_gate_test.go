package integration_tests

import (
	"context"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stageerr"
	"github.com/specialistvlad/stagegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const gateManifest = `
	stage "produce" {
		lifecycle { on_run = "OnRunProduce" }
		output "total" {
			kind = "int"
		}
	}
	stage "gate" {
		lifecycle { on_run = "OnRunGate" }
		input "total" {
			kind = "int"
		}
		input "expected" {
			kind = "int"
		}
		output "total" {
			kind = "int"
		}
	}
	stage "export" {
		lifecycle { on_run = "OnRunExport" }
		input "total" {
			kind = "int"
		}
	}
`

type gateInput struct {
	Total    int64 `stage:"total"`
	Expected int64 `stage:"expected"`
}

type gateOutput struct {
	Total int64 `cty:"total"`
}

type gateModule struct {
	exported bool
}

func (m *gateModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunProduce", registry.HandlerFunc(func(context.Context, *registry.Request) (map[string]cty.Value, error) {
		return map[string]cty.Value{"total": cty.NumberIntVal(10)}, nil
	}))
	r.RegisterHandler("OnRunGate", registry.Typed(func(_ context.Context, _ *registry.Request, in *gateInput) (*gateOutput, error) {
		if in.Total != in.Expected {
			return nil, stageerr.Invariant("total_counts", "merged total %d, inputs total %d", in.Total, in.Expected)
		}
		return &gateOutput{Total: in.Total}, nil
	}))
	r.RegisterHandler("OnRunExport", registry.HandlerFunc(func(context.Context, *registry.Request) (map[string]cty.Value, error) {
		m.exported = true
		return map[string]cty.Value{}, nil
	}))
}

func gateGrid(expected string) string {
	return `
		step "produce" "merged" {
			arguments {}
		}
		step "gate" "check" {
			arguments {
				total    = step.produce.merged.output.total
				expected = ` + expected + `
			}
		}
		step "export" "out" {
			arguments {
				total = step.gate.check.output.total
			}
		}
	`
}

// Test for: exports consume the gate's output, so a violated invariant keeps
// them from running.
func TestErrorHandling_InvariantGateBlocksExports(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"modules/manifest.hcl": gateManifest,
		"grid/main.hcl":        gateGrid("11"),
	}
	mod := &gateModule{}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{}, mod)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.True(t, stageerr.IsInvariantViolation(result.Err))
	assert.ErrorContains(t, result.Err, `invariant "total_counts" violated`)

	stage, ok := stageerr.FailedStage(result.Err)
	require.True(t, ok)
	assert.Equal(t, "gate.check", stage.String())

	assert.False(t, mod.exported)
	testutil.AssertStageNeverStarted(t, result, "export.out")
}

// Test for: when the invariant holds the export runs after the gate.
func TestErrorHandling_InvariantGatePasses(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"modules/manifest.hcl": gateManifest,
		"grid/main.hcl":        gateGrid("10"),
	}
	mod := &gateModule{}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{}, mod)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.True(t, mod.exported)
	testutil.AssertRanBefore(t, result, "gate.check", "export.out")
}
