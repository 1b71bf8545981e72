package integration_tests

import (
	"context"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/testutil"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const greetGrid = `
	step "greet" "a" {
		arguments {
			name = "ann"
		}
	}
`

type greetInput struct {
	Name string `stage:"name"`
}

type greetOutput struct {
	Text string `cty:"text"`
}

type greetWithExtraInput struct {
	Name  string `stage:"name"`
	Extra string `stage:"extra"`
}

type greetWithFlag struct {
	Name string `stage:"name"`
	Loud int    `stage:"loud"`
}

type greetWithOptional struct {
	Name  string      `stage:"name"`
	Title string      `stage:"title"`
	Mood  value.Value `stage:"mood"`
}

func greet[In any](_ context.Context, _ *registry.Request, _ *In) (*greetOutput, error) {
	return &greetOutput{Text: "hi"}, nil
}

func greetModule[In any]() *testutil.SimpleModule {
	return &testutil.SimpleModule{HandlerName: "OnRunGreet", Handler: registry.Typed(greet[In])}
}

func greetManifest(extra string) string {
	return `
		stage "greet" {
			lifecycle { on_run = "OnRunGreet" }
			input "name" {
				kind = "string"
			}
			` + extra + `
			output "text" {
				kind = "string"
			}
		}
	`
}

// Test for: a manifest and its Go handler must agree on every port before
// anything runs.
func TestModuleContract_ManifestAndHandlerParity(t *testing.T) {
	testCases := []struct {
		name     string
		extra    string
		module   registry.Module
		expected string
	}{
		{
			name:     "manifest input missing from struct",
			extra:    `input "extra" { kind = "string" }`,
			module:   greetModule[greetInput](),
			expected: "manifest declares input 'extra' which is not found in Go struct",
		},
		{
			name:     "struct field missing from manifest",
			module:   greetModule[greetWithExtraInput](),
			expected: "Go struct has field for input 'extra' which is not declared in manifest",
		},
		{
			name:     "kind cannot decode into field",
			extra:    `input "loud" { kind = "bool" }`,
			module:   greetModule[greetWithFlag](),
			expected: "type mismatch",
		},
		{
			name: "optional input without default needs a value field",
			extra: `
				input "title" {
					kind     = "string"
					optional = true
				}
				input "mood" {
					kind     = "string"
					optional = true
				}
			`,
			module:   greetModule[greetWithOptional](),
			expected: "input 'title': optional input must be received in a value.Value field",
		},
		{
			name:     "unknown kind",
			extra:    `input "extra" { kind = "parquet" }`,
			module:   greetModule[greetWithExtraInput](),
			expected: `unknown kind "parquet"`,
		},
		{
			name:     "handler never registered",
			module:   &testutil.SimpleModule{},
			expected: `stage "greet" refers to unregistered handler "OnRunGreet"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			files := map[string]string{
				"modules/greet.hcl": greetManifest(tc.extra),
				"grid/main.hcl":     greetGrid,
			}

			// --- Act ---
			result := testutil.RunIntegrationTest(t, files, testutil.Options{}, tc.module)

			// --- Assert ---
			require.Error(t, result.Err)
			var startup *app.StartupError
			require.ErrorAs(t, result.Err, &startup)
			assert.ErrorContains(t, result.Err, "registry validation failed")
			assert.ErrorContains(t, result.Err, tc.expected)
			assert.Nil(t, result.App)
		})
	}
}

// Test for: a struct matching its manifest passes validation, and an
// optional input that was left unbound arrives unresolved.
func TestModuleContract_MatchingHandlerRuns(t *testing.T) {
	// --- Arrange ---
	var got *greetWithOptional
	handler := registry.Typed(func(_ context.Context, _ *registry.Request, in *greetWithOptional) (*greetOutput, error) {
		got = in
		return &greetOutput{Text: in.Title + " " + in.Name}, nil
	})
	files := map[string]string{
		"modules/greet.hcl": greetManifest(`
			input "title" {
				kind    = "string"
				default = "dr"
			}
			input "mood" {
				kind     = "string"
				optional = true
			}
		`),
		"grid/main.hcl": greetGrid + `
			output "text" {
				value = step.greet.a.output.text
			}
		`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{}, &testutil.SimpleModule{HandlerName: "OnRunGreet", Handler: handler})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.NotNil(t, got)
	assert.Equal(t, "ann", got.Name)
	assert.Equal(t, "dr", got.Title)
	assert.True(t, got.Mood.IsUnresolved())
	assert.Contains(t, result.LogOutput, `text = "dr ann"`)
}

// Test for: two modules claiming the same handler name stop startup.
func TestModuleContract_DuplicateHandlerName(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"modules/greet.hcl": greetManifest(""),
		"grid/main.hcl":     greetGrid,
	}
	modules := testutil.Modules{greetModule[greetInput](), greetModule[greetInput]()}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{}, modules)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "application startup panicked")
	assert.ErrorContains(t, result.Err, "stage handler with name 'OnRunGreet' already registered")
}

// Test for: an untyped handler skips struct parity and reads its inputs
// from the request.
func TestModuleContract_UntypedHandlerSkipsParity(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"modules/greet.hcl": greetManifest(`input "extra" { kind = "string" }`),
		"grid/main.hcl": `
			step "greet" "a" {
				arguments {
					name  = "ann"
					extra = "!"
				}
			}
			output "text" {
				value = step.greet.a.output.text
			}
		`,
	}
	handler := registry.HandlerFunc(func(_ context.Context, req *registry.Request) (map[string]cty.Value, error) {
		name, err := req.Inputs.Resolved("name")
		if err != nil {
			return nil, err
		}
		extra, err := req.Inputs.Resolved("extra")
		if err != nil {
			return nil, err
		}
		return map[string]cty.Value{"text": cty.StringVal(name.AsString() + extra.AsString())}, nil
	})

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{}, &testutil.SimpleModule{HandlerName: "OnRunGreet", Handler: handler})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Contains(t, result.LogOutput, `text = "ann!"`)
}
