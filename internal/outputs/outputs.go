package outputs

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Results gives access to the outputs of stages that succeeded.
type Results interface {
	StageOutputs(addr nodeid.Address) (map[string]cty.Value, bool)
}

// Value is one resolved external output.
type Value struct {
	Name  string
	Value cty.Value
	Kind  kind.Kind
	// IsFile is set when Value is a path to an artifact on disk.
	IsFile bool
	// FileName is the fixed name the artifact is exposed under, if any.
	FileName string
	Source   binding.Source
}

// PipelineOutput holds the resolved external outputs in declaration order.
type PipelineOutput struct {
	Values []Value
}

// Get returns the output called name.
func (p *PipelineOutput) Get(name string) (Value, bool) {
	for _, v := range p.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// UnresolvedOutputError is returned when an output's source stage never
// succeeded, or its source pipeline input was left unresolved.
type UnresolvedOutputError struct {
	Output string
	// Stage is the source stage, zero when the source is a pipeline input.
	Stage  nodeid.Address
	Source binding.Source
}

func (e *UnresolvedOutputError) Error() string {
	if e.Stage.IsZero() {
		return fmt.Sprintf("output %q is unresolved: %s has no value", e.Output, e.Source)
	}
	return fmt.Sprintf("output %q is unresolved: stage %q did not succeed", e.Output, e.Stage)
}

// Map resolves every output declared by g against res. All unresolved
// outputs are reported together.
func Map(g *dag.ExecutionGraph, res Results) (*PipelineOutput, error) {
	out := &PipelineOutput{Values: make([]Value, 0, len(g.Outputs))}
	var errs []error

	for _, o := range g.Outputs {
		v := Value{Name: o.Name, FileName: o.FileName, Source: o.Source}

		switch src := o.Source.(type) {
		case binding.FromStageOutput:
			produced, ok := res.StageOutputs(src.Ref.Step)
			val, has := produced[src.Ref.Port]
			if !ok || !has {
				errs = append(errs, &UnresolvedOutputError{Output: o.Name, Stage: src.Ref.Step, Source: src})
				continue
			}
			v.Value = val
			if s, ok := g.Stage(src.Ref.Step); ok {
				if def, ok := s.Definition.Output(src.Ref.Port); ok {
					v.Kind = kind.Kind(def.Kind)
				}
			}
		case binding.FromPipelineInput:
			in, ok := g.Inputs[src.Name]
			if !ok || in.IsUnresolved() {
				errs = append(errs, &UnresolvedOutputError{Output: o.Name, Source: src})
				continue
			}
			v.Value = in.Cty()
			v.Kind = g.InputKinds[src.Name]
		case binding.Literal:
			v.Value = src.Value
		default:
			errs = append(errs, &UnresolvedOutputError{Output: o.Name, Source: o.Source})
			continue
		}

		v.IsFile = v.Kind != "" && g.Kinds.IsFile(v.Kind)
		out.Values = append(out.Values, v)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Display renders v the way it would be written in a pipeline file.
func Display(v cty.Value) string {
	if v == cty.NilVal {
		return "null"
	}
	return string(hclwrite.TokensForValue(v).Bytes())
}
