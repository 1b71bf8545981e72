package dag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Build validates the pipeline declared in model against the registered
// stages and kinds and returns its execution graph. provided holds the
// caller-supplied values of pipeline-level inputs; a null value counts as
// not provided.
//
// Every problem found is reported, joined into a single error whose parts
// are *GraphConstructionError values. A cycle is only looked for once the
// rest of the declaration is valid.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, kinds *kind.Registry, provided map[string]cty.Value) (*ExecutionGraph, error) {
	logger := ctxlog.FromContext(ctx)
	b := &builder{
		grid:   model.Grid,
		reg:    reg,
		kinds:  kinds,
		binder: binding.NewBinder(),
		graph: &ExecutionGraph{
			Kinds: kinds,
			index: make(map[nodeid.Address]int),
		},
		vars: make(map[string]*config.Variable),
	}
	if b.grid == nil {
		b.grid = &config.Grid{}
	}

	b.resolveInputs(provided)
	b.addStages()
	b.bindArguments()
	b.addExplicitDependencies()
	b.finalizeBindings()
	b.checkOutputs()

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	b.linkEdges()
	if cycle := findCycle(b.graph); cycle != nil {
		return nil, &GraphConstructionError{
			Kind:  CycleDetected,
			Cycle: cycle,
			Err:   errors.New("the pipeline contains a dependency cycle"),
		}
	}
	b.graph.Order = topologicalOrder(b.graph)

	logger.Debug("Execution graph built.", "stages", len(b.graph.Stages), "outputs", len(b.graph.Outputs))
	return b.graph, nil
}

type builder struct {
	grid   *config.Grid
	reg    *registry.Registry
	kinds  *kind.Registry
	binder *binding.Binder
	graph  *ExecutionGraph
	vars   map[string]*config.Variable
	steps  []*config.Step
	deps   []map[int]struct{}
	errs   []error
}

func (b *builder) fail(err error) {
	b.errs = append(b.errs, err)
}

// resolveInputs turns provided values, variable defaults and optional
// markers into the graph's pipeline-level inputs.
func (b *builder) resolveInputs(provided map[string]cty.Value) {
	inputs := make(map[string]value.Value, len(b.grid.Variables))
	b.graph.InputKinds = make(map[string]kind.Kind, len(b.grid.Variables))
	for _, v := range b.grid.Variables {
		if _, dup := b.vars[v.Name]; dup {
			b.fail(newErr(InvalidReference, nodeid.Address{}, "variable %q is declared more than once", v.Name))
			continue
		}
		b.vars[v.Name] = v

		k := kind.Kind(v.Kind)
		b.graph.InputKinds[v.Name] = k
		if !b.kinds.Known(k) {
			b.fail(newErr(InvalidReference, nodeid.Address{}, "variable %q has unknown kind %q", v.Name, v.Kind))
			continue
		}

		raw, ok := provided[v.Name]
		if ok && raw.IsNull() {
			ok = false
		}
		switch {
		case ok:
			conformed, err := b.kinds.Conform(k, raw)
			if err != nil {
				b.fail(newErr(TypeMismatch, nodeid.Address{}, "variable %q: %w", v.Name, err))
				continue
			}
			inputs[v.Name] = value.Of(conformed)
		case v.Default != nil:
			conformed, err := b.kinds.Conform(k, *v.Default)
			if err != nil {
				b.fail(newErr(TypeMismatch, nodeid.Address{}, "default of variable %q: %w", v.Name, err))
				continue
			}
			inputs[v.Name] = value.Of(conformed)
		case v.Optional:
			inputs[v.Name] = value.Unresolved()
		default:
			b.fail(newErr(MissingRequiredInput, nodeid.Address{}, "pipeline input %q was not provided and has no default", v.Name))
		}
	}

	names := make([]string, 0, len(provided))
	for name := range provided {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := b.vars[name]; !ok {
			b.fail(newErr(InvalidReference, nodeid.Address{}, "a value was provided for undeclared variable %q", name))
		}
	}

	b.graph.Inputs = inputs
}

// addStages creates one stage per step, in declaration order.
func (b *builder) addStages() {
	for _, step := range b.grid.Steps {
		addr := step.Address()
		if !nodeid.ValidSegment(addr.StageType) || !nodeid.ValidSegment(addr.Name) {
			b.fail(newErr(InvalidReference, addr, "invalid step identifier"))
			continue
		}
		if _, dup := b.graph.index[addr]; dup {
			b.fail(newErr(InvalidReference, addr, "step is declared more than once"))
			continue
		}
		def, handler, err := b.reg.Stage(addr.StageType)
		if err != nil {
			b.fail(wrapErr(InvalidReference, addr, err))
			continue
		}

		types := make(map[string]cty.Type, len(def.Inputs))
		for _, in := range def.Inputs {
			ty, err := b.kinds.Type(kind.Kind(in.Kind))
			if err != nil {
				b.fail(wrapErr(InvalidReference, addr, fmt.Errorf("input %q: %w", in.Name, err)))
				continue
			}
			types[in.Name] = ty
		}

		s := &Stage{
			Index:      len(b.graph.Stages),
			Addr:       addr,
			Definition: def,
			Handler:    handler,
			InputTypes: types,
		}
		b.graph.index[addr] = s.Index
		b.graph.Stages = append(b.graph.Stages, s)
		b.steps = append(b.steps, step)
		b.deps = append(b.deps, make(map[int]struct{}))
	}
}

// bindArguments checks each argument's source and records it in the binder.
func (b *builder) bindArguments() {
	for i, s := range b.graph.Stages {
		for _, arg := range b.steps[i].Arguments {
			src := arg.Source
			if in, ok := s.Definition.Input(arg.Port); ok {
				checked, err := b.checkSource(s, in, src)
				if err != nil {
					b.fail(err)
					continue
				}
				src = checked
			}
			// Undeclared ports are reported by Finalize.
			if err := b.binder.Bind(s.Addr, arg.Port, src); err != nil {
				b.fail(wrapErr(DuplicateBinding, s.Addr, err))
			}
		}
	}
}

// checkSource validates src against the input port in of stage s. It returns
// the source to bind, which for literals carries the conformed value.
func (b *builder) checkSource(s *Stage, in *config.InputDefinition, src binding.Source) (binding.Source, error) {
	want := kind.Kind(in.Kind)
	target := binding.Target{Step: s.Addr, Port: in.Name}.String()

	switch src := src.(type) {
	case binding.FromStageOutput:
		pi, ok := b.graph.index[src.Ref.Step]
		if !ok {
			return nil, newErr(InvalidReference, s.Addr, "input %q refers to undeclared step %q", in.Name, src.Ref.Step)
		}
		producer := b.graph.Stages[pi]
		have, ok := producer.Definition.PortKind(kind.Out, src.Ref.Port)
		if !ok {
			return nil, newErr(InvalidReference, s.Addr, "input %q refers to %s %q, which stage %q does not declare", in.Name, kind.Out, src.Ref.Port, producer.Addr.StageType)
		}
		if !kind.Compatible(have, want) {
			return nil, wrapErr(TypeMismatch, s.Addr, &kind.MismatchError{Source: src.String(), Target: target, Have: have, Want: want})
		}
		b.deps[s.Index][pi] = struct{}{}
	case binding.FromPipelineInput:
		v, ok := b.vars[src.Name]
		if !ok {
			return nil, newErr(InvalidReference, s.Addr, "input %q refers to undeclared variable %q", in.Name, src.Name)
		}
		if have := kind.Kind(v.Kind); !kind.Compatible(have, want) {
			return nil, wrapErr(TypeMismatch, s.Addr, &kind.MismatchError{Source: src.String(), Target: target, Have: have, Want: want})
		}
	case binding.Literal:
		conformed, err := b.kinds.Conform(want, src.Value)
		if err != nil {
			return nil, wrapErr(TypeMismatch, s.Addr, fmt.Errorf("input %q: %w", in.Name, err))
		}
		return binding.Literal{Value: conformed}, nil
	}
	return src, nil
}

// addExplicitDependencies records depends_on edges. They order execution but
// carry no data.
func (b *builder) addExplicitDependencies() {
	for i, s := range b.graph.Stages {
		for _, raw := range b.steps[i].DependsOn {
			addr, err := nodeid.Parse(raw)
			if err != nil {
				b.fail(wrapErr(InvalidReference, s.Addr, fmt.Errorf("depends_on: %w", err)))
				continue
			}
			pi, ok := b.graph.index[addr]
			if !ok {
				b.fail(newErr(InvalidReference, s.Addr, "depends_on refers to undeclared step %q", addr))
				continue
			}
			b.deps[i][pi] = struct{}{}
		}
	}
}

// finalizeBindings fills unbound ports with Unresolved and rejects required
// ports left without a value.
func (b *builder) finalizeBindings() {
	for _, s := range b.graph.Stages {
		ports := make([]binding.Port, len(s.Definition.Inputs))
		for i, in := range s.Definition.Inputs {
			ports[i] = binding.Port{
				Target:      binding.Target{Step: s.Addr, Port: in.Name},
				Defaultable: in.Defaultable(),
			}
		}
		bindings, err := b.binder.Finalize(s.Addr, ports, b.graph.Inputs)
		if err != nil {
			b.classifyFinalizeErrors(s.Addr, err)
			continue
		}
		s.Bindings = bindings
	}
}

func (b *builder) classifyFinalizeErrors(addr nodeid.Address, err error) {
	for _, e := range flatten(err) {
		var missing *binding.MissingRequiredInputError
		var unknown *binding.UnknownPortError
		switch {
		case errors.As(e, &missing):
			b.fail(wrapErr(MissingRequiredInput, addr, e))
		case errors.As(e, &unknown):
			b.fail(wrapErr(InvalidReference, addr, e))
		default:
			b.fail(wrapErr(InvalidReference, addr, e))
		}
	}
}

// checkOutputs validates the pipeline's external outputs.
func (b *builder) checkOutputs() {
	seen := make(map[string]struct{}, len(b.grid.Outputs))
	files := make(map[string]string, len(b.grid.Outputs))
	for _, o := range b.grid.Outputs {
		if _, dup := seen[o.Name]; dup {
			b.fail(newErr(InvalidReference, nodeid.Address{}, "output %q is declared more than once", o.Name))
			continue
		}
		seen[o.Name] = struct{}{}

		if o.FileName != "" {
			if err := CheckOutputFileName(o.FileName); err != nil {
				b.fail(wrapErr(InvalidReference, nodeid.Address{}, fmt.Errorf("output %q: %w", o.Name, err)))
				continue
			}
			if other, dup := files[o.FileName]; dup {
				b.fail(newErr(InvalidReference, nodeid.Address{}, "outputs %q and %q share file_name %q", other, o.Name, o.FileName))
				continue
			}
			files[o.FileName] = o.Name
		}

		switch src := o.Source.(type) {
		case binding.FromStageOutput:
			pi, ok := b.graph.index[src.Ref.Step]
			if !ok {
				b.fail(newErr(InvalidReference, nodeid.Address{}, "output %q refers to undeclared step %q", o.Name, src.Ref.Step))
				continue
			}
			if _, ok := b.graph.Stages[pi].Definition.PortKind(kind.Out, src.Ref.Port); !ok {
				b.fail(newErr(InvalidReference, nodeid.Address{}, "output %q refers to undeclared port %s", o.Name, src.Ref))
				continue
			}
		case binding.FromPipelineInput:
			if _, ok := b.vars[src.Name]; !ok {
				b.fail(newErr(InvalidReference, nodeid.Address{}, "output %q refers to undeclared variable %q", o.Name, src.Name))
				continue
			}
		case binding.Unresolved, nil:
			b.fail(newErr(InvalidReference, nodeid.Address{}, "output %q has no value", o.Name))
			continue
		}
		b.graph.Outputs = append(b.graph.Outputs, o)
	}
}

// linkEdges converts the accumulated dependency sets into sorted adjacency
// lists.
func (b *builder) linkEdges() {
	for i, set := range b.deps {
		s := b.graph.Stages[i]
		for d := range set {
			s.Deps = append(s.Deps, d)
			p := b.graph.Stages[d]
			p.Dependents = append(p.Dependents, i)
		}
		sort.Ints(s.Deps)
	}
	for _, s := range b.graph.Stages {
		sort.Ints(s.Dependents)
	}
}

// OutputManifestName is the file written next to materialized outputs. No
// output may be exposed under this name.
const OutputManifestName = "outputs.json"

// CheckOutputFileName reports whether name can expose an output inside the
// output directory: a plain file name that is not OutputManifestName.
func CheckOutputFileName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("file name %q is not a file name", name)
	case filepath.Base(name) != name || filepath.IsAbs(name) || filepath.ToSlash(name) != name:
		return fmt.Errorf("file name %q must not contain a directory", name)
	case name == OutputManifestName:
		return fmt.Errorf("file name %q is reserved for the output manifest", name)
	}
	return nil
}
