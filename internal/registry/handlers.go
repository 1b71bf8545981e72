package registry

import (
	"context"
	"reflect"

	"github.com/specialistvlad/stagegrid/internal/ctyconv"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Request is everything a handler receives for one stage execution.
type Request struct {
	// Step is the address of the step being executed.
	Step nodeid.Address
	// Inputs holds one value per declared input port. Ports that resolved to
	// an engine-supplied default carry that default; optional ports left
	// unset carry value.Unresolved.
	Inputs value.Inputs
	// Types maps every input port to the carrier type of its kind.
	Types map[string]cty.Type
	// WorkDir is a directory private to this step for writing artifacts.
	WorkDir string
}

// Handler is the executable contract of a stage. Side effects are private to
// the handler; the engine only observes the returned outputs or the error.
type Handler interface {
	Run(ctx context.Context, req *Request) (map[string]cty.Value, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (map[string]cty.Value, error)

// Run implements Handler.
func (f HandlerFunc) Run(ctx context.Context, req *Request) (map[string]cty.Value, error) {
	return f(ctx, req)
}

// TypedHandler is implemented by handlers whose ports are described by Go
// struct types, so the registry can check them against the manifest.
type TypedHandler interface {
	Handler
	InputType() reflect.Type
	OutputType() reflect.Type
}

// Typed wraps a function taking a tagged input struct and returning a tagged
// output struct. Input fields use `stage:"<port>"`, output fields use
// `cty:"<port>"`.
func Typed[In, Out any](fn func(ctx context.Context, req *Request, in *In) (*Out, error)) TypedHandler {
	return &typedHandler[In, Out]{fn: fn}
}

type typedHandler[In, Out any] struct {
	fn func(ctx context.Context, req *Request, in *In) (*Out, error)
}

func (h *typedHandler[In, Out]) Run(ctx context.Context, req *Request) (map[string]cty.Value, error) {
	in := new(In)
	if err := ctyconv.DecodeInputs(ctx, req.Inputs, req.Types, in); err != nil {
		return nil, err
	}
	out, err := h.fn(ctx, req, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return map[string]cty.Value{}, nil
	}
	return ctyconv.EncodeOutputs(out)
}

func (h *typedHandler[In, Out]) InputType() reflect.Type {
	return reflect.TypeOf((*In)(nil)).Elem()
}

func (h *typedHandler[In, Out]) OutputType() reflect.Type {
	return reflect.TypeOf((*Out)(nil)).Elem()
}
