package scheduler

import "github.com/specialistvlad/stagegrid/internal/dag"

// Scheduler tracks dependency satisfaction for one run.
type Scheduler interface {
	// Sources returns the stages that are ready before anything has run, in
	// declaration order.
	Sources() []*dag.Stage

	// Succeeded records that s finished successfully and returns the
	// dependents that became ready as a result, in declaration order. It is
	// safe to call concurrently for different stages.
	Succeeded(s *dag.Stage) []*dag.Stage

	// Remaining returns the number of unmet dependencies of s.
	Remaining(s *dag.Stage) int
}
