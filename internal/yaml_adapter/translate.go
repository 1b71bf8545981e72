package yaml_adapter

import (
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// nodeToCty converts a YAML node into a cty.Value by way of JSON. present is
// false when the key was absent from the document.
func nodeToCty(n *yaml.Node) (val cty.Value, present bool, err error) {
	if n.Kind == 0 {
		return cty.NilVal, false, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return cty.NullVal(cty.DynamicPseudoType), true, nil
	}

	var native any
	if err := n.Decode(&native); err != nil {
		return cty.NilVal, true, fmt.Errorf("line %d: %w", n.Line, err)
	}
	raw, err := json.Marshal(native)
	if err != nil {
		return cty.NilVal, true, fmt.Errorf("line %d: value cannot be represented: %w", n.Line, err)
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, true, fmt.Errorf("line %d: %w", n.Line, err)
	}
	val, err = ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return cty.NilVal, true, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return val, true, nil
}

// defaultOf returns the default declared by n, treating null as none.
func defaultOf(n *yaml.Node) (*cty.Value, error) {
	val, present, err := nodeToCty(n)
	if err != nil || !present || val.IsNull() {
		return nil, err
	}
	return &val, nil
}

// sourceOf classifies a from/value pair. Exactly one must be set.
func sourceOf(from string, n *yaml.Node) (binding.Source, error) {
	val, present, err := nodeToCty(n)
	if err != nil {
		return nil, err
	}
	switch {
	case from != "" && present:
		return nil, fmt.Errorf("'from' and 'value' are mutually exclusive")
	case from != "":
		return binding.ParseReference(from)
	case !present:
		return nil, fmt.Errorf("one of 'from' or 'value' is required")
	case val.IsNull():
		return binding.Unresolved{}, nil
	default:
		return binding.Literal{Value: val}, nil
	}
}

func translateStage(s *stageDoc) (*config.StageDefinition, error) {
	d := &config.StageDefinition{
		Type:        s.Type,
		Description: s.Description,
	}
	if s.OnRun != "" {
		d.Lifecycle = &config.Lifecycle{OnRun: s.OnRun}
	}
	for i := range s.Inputs {
		in := &s.Inputs[i]
		if _, dup := d.Input(in.Name); dup {
			return nil, fmt.Errorf("in stage '%s': input '%s' is declared more than once", s.Type, in.Name)
		}
		def, err := defaultOf(&in.Default)
		if err != nil {
			return nil, fmt.Errorf("in stage '%s', input '%s': %w", s.Type, in.Name, err)
		}
		d.Inputs = append(d.Inputs, &config.InputDefinition{
			Name:        in.Name,
			Kind:        in.Kind,
			Description: in.Description,
			Default:     def,
			Optional:    in.Optional,
		})
	}
	for _, out := range s.Outputs {
		if _, dup := d.Output(out.Name); dup {
			return nil, fmt.Errorf("in stage '%s': output '%s' is declared more than once", s.Type, out.Name)
		}
		d.Outputs = append(d.Outputs, &config.OutputDefinition{
			Name:        out.Name,
			Kind:        out.Kind,
			Description: out.Description,
		})
	}
	return d, nil
}

func translateVariable(v *variableDoc) (*config.Variable, error) {
	def, err := defaultOf(&v.Default)
	if err != nil {
		return nil, fmt.Errorf("in variable '%s': %w", v.Name, err)
	}
	return &config.Variable{
		Name:        v.Name,
		Kind:        v.Kind,
		Description: v.Description,
		Default:     def,
		Optional:    v.Optional,
	}, nil
}

func translateStep(s *stepDoc) (*config.Step, error) {
	step := &config.Step{
		StageType: s.Stage,
		Name:      s.Name,
		DependsOn: s.DependsOn,
	}
	for i := range s.Arguments {
		arg := &s.Arguments[i]
		src, err := sourceOf(arg.From, &arg.Value)
		if err != nil {
			return nil, fmt.Errorf("in step '%s.%s', argument '%s': %w", s.Stage, s.Name, arg.Port, err)
		}
		step.Arguments = append(step.Arguments, &config.Argument{Port: arg.Port, Source: src})
	}
	return step, nil
}

func translateOutput(o *outputDoc) (*config.Output, error) {
	src, err := sourceOf(o.From, &o.Value)
	if err != nil {
		return nil, fmt.Errorf("in output '%s': %w", o.Name, err)
	}
	if _, ok := src.(binding.Unresolved); ok {
		return nil, fmt.Errorf("in output '%s': value cannot be null", o.Name)
	}
	return &config.Output{
		Name:        o.Name,
		Description: o.Description,
		Source:      src,
		FileName:    o.FileName,
	}, nil
}
