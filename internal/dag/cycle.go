package dag

import "github.com/specialistvlad/stagegrid/internal/nodeid"

// findCycle runs a depth-first search over dependency edges and returns the
// first cycle found as a closed path (first and last elements are equal), or
// nil when the graph is acyclic. Stages are visited in declaration order so
// the reported path is stable.
func findCycle(g *ExecutionGraph) []nodeid.Address {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make([]int, len(g.Stages))
	var stack []int

	var visit func(i int) []int
	visit = func(i int) []int {
		state[i] = onStack
		stack = append(stack, i)
		for _, next := range g.Stages[i].Dependents {
			switch state[next] {
			case onStack:
				start := 0
				for j, s := range stack {
					if s == next {
						start = j
						break
					}
				}
				path := append([]int(nil), stack[start:]...)
				return append(path, next)
			case unvisited:
				if path := visit(next); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		return nil
	}

	for i := range g.Stages {
		if state[i] != unvisited {
			continue
		}
		if path := visit(i); path != nil {
			out := make([]nodeid.Address, len(path))
			for j, idx := range path {
				out[j] = g.Stages[idx].Addr
			}
			return out
		}
	}
	return nil
}
