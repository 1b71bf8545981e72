package dag

import (
	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Stage is one vertex of the execution graph: a step bound to its stage
// definition and handler.
type Stage struct {
	// Index is the stage's position in declaration order.
	Index      int
	Addr       nodeid.Address
	Definition *config.StageDefinition
	Handler    registry.Handler
	// Bindings holds one binding per declared input, in manifest order.
	Bindings []binding.Binding
	// InputTypes maps each input port to the carrier type of its kind.
	InputTypes map[string]cty.Type
	// Deps and Dependents are sorted indexes of adjacent stages.
	Deps       []int
	Dependents []int
}

// ID returns the canonical string form of the stage address.
func (s *Stage) ID() string {
	return s.Addr.String()
}

// ExecutionGraph is the validated, acyclic set of stages and bindings for
// one pipeline invocation.
type ExecutionGraph struct {
	Stages []*Stage
	// Order lists stage indexes in topological order. Ties are broken by
	// declaration order, so the same declaration always yields the same order.
	Order []int
	// Inputs holds the resolved pipeline-level inputs. Optional inputs with
	// no value are value.Unresolved.
	Inputs map[string]value.Value
	// InputKinds maps each declared pipeline input to its kind.
	InputKinds map[string]kind.Kind
	Outputs    []*config.Output
	Kinds      *kind.Registry

	index map[nodeid.Address]int
}

// Stage returns the stage with the given address.
func (g *ExecutionGraph) Stage(addr nodeid.Address) (*Stage, bool) {
	i, ok := g.index[addr]
	if !ok {
		return nil, false
	}
	return g.Stages[i], true
}

// TopologicalOrder returns stage addresses in execution order.
func (g *ExecutionGraph) TopologicalOrder() []nodeid.Address {
	out := make([]nodeid.Address, len(g.Order))
	for i, idx := range g.Order {
		out[i] = g.Stages[idx].Addr
	}
	return out
}

// Sources returns the stages with no dependencies, in declaration order.
func (g *ExecutionGraph) Sources() []*Stage {
	var out []*Stage
	for _, s := range g.Stages {
		if len(s.Deps) == 0 {
			out = append(out, s)
		}
	}
	return out
}

// Ancestors returns the indexes of every stage s transitively depends on.
func (g *ExecutionGraph) Ancestors(s *Stage) map[int]struct{} {
	seen := make(map[int]struct{})
	stack := append([]int(nil), s.Deps...)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		stack = append(stack, g.Stages[i].Deps...)
	}
	return seen
}
