package scheduler

import (
	"sync"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond builds a -> {b, c} -> d, plus an unconnected e.
func diamond() *dag.ExecutionGraph {
	edges := map[int][]int{0: {1, 2}, 1: {3}, 2: {3}}
	names := []string{"a", "b", "c", "d", "e"}
	g := &dag.ExecutionGraph{}
	for i, n := range names {
		g.Stages = append(g.Stages, &dag.Stage{Index: i, Addr: nodeid.New("t", n)})
	}
	for from, tos := range edges {
		for _, to := range tos {
			g.Stages[from].Dependents = append(g.Stages[from].Dependents, to)
			g.Stages[to].Deps = append(g.Stages[to].Deps, from)
		}
	}
	return g
}

func ids(stages []*dag.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.ID()
	}
	return out
}

func TestScheduler_SourcesInDeclarationOrder(t *testing.T) {
	s := New(diamond())

	assert.Equal(t, []string{"t.a", "t.e"}, ids(s.Sources()))
}

func TestScheduler_ReleasesDependentsOnlyWhenAllDepsSucceed(t *testing.T) {
	// --- Arrange ---
	g := diamond()
	s := New(g)
	a, b, c, d := g.Stages[0], g.Stages[1], g.Stages[2], g.Stages[3]

	// --- Act & Assert ---
	assert.Equal(t, 2, s.Remaining(d))
	assert.Equal(t, []string{"t.b", "t.c"}, ids(s.Succeeded(a)))

	assert.Empty(t, s.Succeeded(b), "d still waits for c")
	assert.Equal(t, 1, s.Remaining(d))

	assert.Equal(t, []string{"t.d"}, ids(s.Succeeded(c)))
	assert.Equal(t, 0, s.Remaining(d))
	assert.Empty(t, s.Succeeded(d))
}

func TestScheduler_ConcurrentSuccessReleasesOnce(t *testing.T) {
	// --- Arrange ---
	const fanIn = 64
	g := &dag.ExecutionGraph{}
	sink := &dag.Stage{Index: fanIn, Addr: nodeid.New("t", "sink")}
	for i := 0; i < fanIn; i++ {
		g.Stages = append(g.Stages, &dag.Stage{Index: i, Addr: nodeid.New("t", "src"), Dependents: []int{fanIn}})
		sink.Deps = append(sink.Deps, i)
	}
	g.Stages = append(g.Stages, sink)
	s := New(g)

	// --- Act ---
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		releases int
	)
	for _, st := range g.Stages[:fanIn] {
		wg.Add(1)
		go func(st *dag.Stage) {
			defer wg.Done()
			if ready := s.Succeeded(st); len(ready) > 0 {
				mu.Lock()
				releases += len(ready)
				mu.Unlock()
			}
		}(st)
	}
	wg.Wait()

	// --- Assert ---
	require.Equal(t, 1, releases)
	assert.Equal(t, 0, s.Remaining(sink))
}
