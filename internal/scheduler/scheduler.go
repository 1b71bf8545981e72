package scheduler

import (
	"sync/atomic"

	"github.com/specialistvlad/stagegrid/internal/dag"
)

// DependencyScheduler is the default Scheduler. It is backed by one atomic
// counter per stage and never blocks.
type DependencyScheduler struct {
	graph     *dag.ExecutionGraph
	remaining []atomic.Int32
}

// New creates a scheduler for g with every counter at its stage's number of
// dependencies.
func New(g *dag.ExecutionGraph) *DependencyScheduler {
	s := &DependencyScheduler{
		graph:     g,
		remaining: make([]atomic.Int32, len(g.Stages)),
	}
	for i, st := range g.Stages {
		s.remaining[i].Store(int32(len(st.Deps)))
	}
	return s
}

var _ Scheduler = (*DependencyScheduler)(nil)

// Sources implements Scheduler.
func (s *DependencyScheduler) Sources() []*dag.Stage {
	var out []*dag.Stage
	for i, st := range s.graph.Stages {
		if s.remaining[i].Load() == 0 {
			out = append(out, st)
		}
	}
	return out
}

// Succeeded implements Scheduler.
func (s *DependencyScheduler) Succeeded(st *dag.Stage) []*dag.Stage {
	var ready []*dag.Stage
	for _, d := range st.Dependents {
		if s.remaining[d].Add(-1) == 0 {
			ready = append(ready, s.graph.Stages[d])
		}
	}
	return ready
}

// Remaining implements Scheduler.
func (s *DependencyScheduler) Remaining(st *dag.Stage) int {
	return int(s.remaining[st.Index].Load())
}
