package executor

import (
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/resultstore"
	"github.com/zclconf/go-cty/cty"
)

// RunState is the state of a whole run.
type RunState int

const (
	RunRunning RunState = iota
	RunSucceeded
	RunAborted
)

func (s RunState) String() string {
	switch s {
	case RunSucceeded:
		return "succeeded"
	case RunAborted:
		return "aborted"
	default:
		return "running"
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID string
	State RunState
	// Statuses holds the final status of every stage.
	Statuses map[nodeid.Address]resultstore.Status
	// Failure is the first stage failure, or the context error if the run was
	// cancelled. Nil when the run succeeded.
	Failure error

	outputs map[nodeid.Address]map[string]cty.Value
}

// StageOutputs returns the outputs of a stage that succeeded before the run
// ended. Results of stages that finished after an abort are not available.
func (r *Result) StageOutputs(addr nodeid.Address) (map[string]cty.Value, bool) {
	out, ok := r.outputs[addr]
	return out, ok
}

// Status returns the final status of a stage.
func (r *Result) Status(addr nodeid.Address) resultstore.Status {
	return r.Statuses[addr]
}
