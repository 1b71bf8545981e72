package integration_tests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainGrid = `
	variable "who" {
		kind = "string"
	}
	variable "mood" {
		kind     = "string"
		optional = true
	}
	step "relay" "second" {
		arguments {
			in = step.relay.first.output.out
		}
	}
	step "relay" "first" {
		arguments {
			in     = var.who
			suffix = "?"
		}
	}
	step "relay" "side" {
		arguments {
			in = "x"
		}
		depends_on = ["relay.first"]
	}
	output "greeting" {
		value     = step.relay.second.output.out
		file_name = "greeting.txt"
	}
`

// Test for: the plan lists steps in execution order with every port bound.
func TestHCLFeatures_PlanRendersResolvedGraph(t *testing.T) {
	// --- Arrange ---
	gridDir, modulesDir := writeProject(t, map[string]string{"main.hcl": chainGrid})

	// --- Act ---
	rendered := plan(t, gridDir, modulesDir, map[string]string{"who": "ann"})

	// --- Assert ---
	first := strings.Index(rendered, `step "relay" "first"`)
	second := strings.Index(rendered, `step "relay" "second"`)
	side := strings.Index(rendered, `step "relay" "side"`)
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	require.NotEqual(t, -1, side)
	assert.Less(t, first, second)
	assert.Less(t, second, side, "ties keep declaration order")

	assert.Regexp(t, `in\s+= var.who`, rendered)
	assert.Regexp(t, `in\s+= step.relay.first.output.out`, rendered)
	assert.Regexp(t, `depends_on\s+= \["relay.first"\]`, rendered)
	assert.Regexp(t, `default\s+= "ann"`, rendered)
	assert.Regexp(t, `file_name\s+= "greeting.txt"`, rendered)
	assert.Contains(t, rendered, "# 1/3")
}

// Test for: a rendered plan loads back into the same graph.
func TestHCLFeatures_PlanRoundTrips(t *testing.T) {
	// --- Arrange ---
	gridDir, modulesDir := writeProject(t, map[string]string{"main.hcl": chainGrid})
	rendered := plan(t, gridDir, modulesDir, map[string]string{"who": "ann"})
	replayDir, replayModules := writeProject(t, map[string]string{"main.hcl": rendered})

	// --- Act ---
	replayed := plan(t, replayDir, replayModules, nil)

	// --- Assert ---
	assert.Equal(t, rendered, replayed)
}
