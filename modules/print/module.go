// Package print is a debugging stage that logs its input and passes it on.
package print

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print stage.
type Input struct {
	Message string `stage:"message"`
}

// Output echoes the message.
type Output struct {
	Message string `cty:"message"`
}

// OnRunPrint is the handler for the 'print' stage.
func OnRunPrint(ctx context.Context, req *registry.Request, in *Input) (*Output, error) {
	ctxlog.FromContext(ctx).Info("Printing input", "step", req.Step.String(), "message", in.Message)
	return &Output{Message: in.Message}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunPrint", registry.Typed(OnRunPrint))
}
