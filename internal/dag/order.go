package dag

// topologicalOrder returns stage indexes so that every stage comes after all
// of its dependencies. Among stages that are ready at the same time the one
// declared first wins. The graph must be acyclic.
func topologicalOrder(g *ExecutionGraph) []int {
	remaining := make([]int, len(g.Stages))
	var ready []int
	for i, s := range g.Stages {
		remaining[i] = len(s.Deps)
		if remaining[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.Stages))
	for len(ready) > 0 {
		// ready is kept sorted, so the head is the earliest declaration.
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, d := range g.Stages[next].Dependents {
			remaining[d]--
			if remaining[d] == 0 {
				ready = insertSorted(ready, d)
			}
		}
	}
	return order
}

func insertSorted(s []int, v int) []int {
	i := 0
	for i < len(s) && s[i] < v {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
