// Package resultstore defines the interface for the per-run, mutable state of
// stages: their status, the outputs they produced and the error they failed
// with.
//
// # Why Result Store Exists
//
// The execution graph is read-only once built and is shared by every worker
// without locking. Everything that changes while a pipeline runs lives in a
// result store instead, so the two concerns never contend.
//
// # Lifecycle and Usage
//
// A store is created once per run and discarded when the run ends. During
// the run:
//   - the executor records status transitions and the outcome of each stage;
//   - workers read the outputs of upstream stages to assemble inputs;
//   - the output mapper reads the outputs of the stages named by pipeline
//     outputs.
//
// # Single Writer Per Key
//
// Each stage's outputs are written exactly once, by the worker that ran the
// stage. A second write is an error (ErrAlreadyWritten) and leaves the first
// value in place.
package resultstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// ErrAlreadyWritten is returned when a stage's outputs are written twice.
var ErrAlreadyWritten = errors.New("result already written")

// Status is the execution state of a stage within one run.
type Status int32

const (
	Pending Status = iota
	Ready
	Running
	Succeeded
	Failed
	// Skipped stages never started because the run aborted.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Terminal reports whether no further transition can follow s.
func (s Status) Terminal() bool {
	return s == Succeeded || s == Failed || s == Skipped
}

// Store manages the mutable state of stages during one run.
//
// Implementations MUST be safe for concurrent use: every worker reads and
// writes it in parallel.
type Store interface {
	// SetStatus records a status transition. Stages with no recorded status
	// are Pending.
	SetStatus(ctx context.Context, id nodeid.Address, status Status) error

	// Status returns the current status of a stage.
	Status(ctx context.Context, id nodeid.Address) (Status, error)

	// SetOutputs records the outputs of a stage that succeeded. It fails with
	// ErrAlreadyWritten if outputs were already recorded for id.
	SetOutputs(ctx context.Context, id nodeid.Address, outputs map[string]cty.Value) error

	// Outputs returns the recorded outputs of a stage. ok is false when none
	// were recorded.
	Outputs(ctx context.Context, id nodeid.Address) (outputs map[string]cty.Value, ok bool, err error)

	// SetError records why a stage failed or was skipped.
	SetError(ctx context.Context, id nodeid.Address, stageErr error) error

	// Error returns the recorded error of a stage, or nil.
	Error(ctx context.Context, id nodeid.Address) (error, error)
}
