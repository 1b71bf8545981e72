package integration_tests

import (
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// Test for: a pipeline declared in YAML runs against HCL manifests, and
// produces what the equivalent HCL pipeline produces.
func TestHCLFeatures_YAMLAndHCLPipelinesAgree(t *testing.T) {
	// --- Arrange ---
	yamlGrid := `
variables:
  - name: who
    kind: string
steps:
  - stage: relay
    name: first
    arguments:
      - port: in
        from: var.who
  - stage: relay
    name: second
    arguments:
      - port: in
        from: step.relay.first.output.out
      - port: suffix
        value: "?"
outputs:
  - name: greeting
    from: step.relay.second.output.out
`
	hclGrid := `
		variable "who" {
			kind = "string"
		}
		step "relay" "first" {
			arguments { in = var.who }
		}
		step "relay" "second" {
			arguments {
				in     = step.relay.first.output.out
				suffix = "?"
			}
		}
		output "greeting" {
			value = step.relay.second.output.out
		}
	`
	yamlDir, yamlModules := writeProject(t, map[string]string{"main.yaml": yamlGrid})
	hclDir, hclModules := writeProject(t, map[string]string{"main.hcl": hclGrid})
	vars := map[string]string{"who": "bob"}

	// --- Act ---
	fromYAML, yamlErr := run(t, app.Config{GridPath: yamlDir, ModulesPath: yamlModules, Vars: vars})
	fromHCL, hclErr := run(t, app.Config{GridPath: hclDir, ModulesPath: hclModules, Vars: vars})

	// --- Assert ---
	require.NoError(t, yamlErr)
	require.NoError(t, hclErr)

	y, ok := fromYAML.Outputs().Get("greeting")
	require.True(t, ok)
	h, ok := fromHCL.Outputs().Get("greeting")
	require.True(t, ok)
	assert.Equal(t, cty.StringVal("bob!?"), y.Value)
	assert.Equal(t, h.Value, y.Value)

	// The same graph renders to the same plan regardless of source syntax.
	assert.Equal(t, plan(t, hclDir, hclModules, vars), plan(t, yamlDir, yamlModules, vars))
}
