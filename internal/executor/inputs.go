package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// assembleInputs resolves every binding of s to a value. A port whose source
// is unresolved gets its manifest default when it has one and stays
// value.Unresolved otherwise.
func (e *Executor) assembleInputs(ctx context.Context, s *dag.Stage) (value.Inputs, error) {
	inputs := make(value.Inputs, len(s.Bindings))
	for _, b := range s.Bindings {
		port := b.Target.Port
		v, err := e.resolve(ctx, b.Source)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", port, err)
		}
		if v.IsUnresolved() {
			in, _ := s.Definition.Input(port)
			if in != nil && in.Default != nil {
				def, err := e.graph.Kinds.Conform(kind.Kind(in.Kind), *in.Default)
				if err != nil {
					return nil, fmt.Errorf("default of input %q: %w", port, err)
				}
				v = value.Of(def)
			}
		}
		inputs[port] = v
	}
	return inputs, nil
}

func (e *Executor) resolve(ctx context.Context, src binding.Source) (value.Value, error) {
	switch s := src.(type) {
	case binding.FromStageOutput:
		outs, ok, err := e.store.Outputs(ctx, s.Ref.Step)
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			return value.Value{}, fmt.Errorf("no result recorded for %s", s.Ref.Step)
		}
		v, ok := outs[s.Ref.Port]
		if !ok {
			return value.Value{}, fmt.Errorf("stage %q did not produce output %q", s.Ref.Step, s.Ref.Port)
		}
		return value.Of(v), nil
	case binding.FromPipelineInput:
		v, ok := e.graph.Inputs[s.Name]
		if !ok {
			return value.Unresolved(), nil
		}
		return v, nil
	case binding.Literal:
		return value.Of(s.Value), nil
	default:
		return value.Unresolved(), nil
	}
}

// checkOutputs verifies that raw holds exactly the outputs s declares and
// conforms each to its kind.
func (e *Executor) checkOutputs(s *dag.Stage, raw map[string]cty.Value) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(s.Definition.Outputs))
	for _, def := range s.Definition.Outputs {
		v, ok := raw[def.Name]
		if !ok {
			return nil, fmt.Errorf("handler did not return output %q", def.Name)
		}
		if v.IsNull() || !v.IsWhollyKnown() {
			return nil, fmt.Errorf("handler returned no value for output %q", def.Name)
		}
		conformed, err := e.graph.Kinds.Conform(kind.Kind(def.Kind), v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", def.Name, err)
		}
		out[def.Name] = conformed
	}
	if len(raw) > len(out) {
		var extra []string
		for name := range raw {
			if _, ok := out[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return nil, fmt.Errorf("handler returned undeclared outputs: %s", strings.Join(extra, ", "))
	}
	return out, nil
}

// formatInputsForLogs renders inputs compactly for debug logs.
func formatInputsForLogs(in value.Inputs) string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + in[name].String()
	}
	return strings.Join(parts, " ")
}
