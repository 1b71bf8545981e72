package testutil

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// NoOpManifest declares the "noop" stage served by NoOpModule.
const NoOpManifest = `
	stage "noop" {
		lifecycle { on_run = "NoOp" }
	}
`

// NoOpModule registers a single "NoOp" handler that takes no inputs and
// produces no outputs. It is useful for tests that should fail before
// execution begins but still need a registry that passes validation.
type NoOpModule struct{}

// Register implements the registry.Module interface.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterHandler("NoOp", registry.HandlerFunc(func(context.Context, *registry.Request) (map[string]cty.Value, error) {
		return map[string]cty.Value{}, nil
	}))
}
