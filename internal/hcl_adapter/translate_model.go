// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/binding"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// translateStep converts the HCL-specific step schema into the agnostic model.
func translateStep(ctx context.Context, s *stepBlock) (*config.Step, error) {
	logger := ctxlog.FromContext(ctx).With("step_stage", s.StageType, "step_name", s.Name)
	logger.Debug("Translating HCL step to internal config model.")

	step := &config.Step{
		StageType: s.StageType,
		Name:      s.Name,
		DependsOn: s.DependsOn,
	}

	for _, block := range s.Arguments {
		attrs, err := attributesInOrder(block.Body)
		if err != nil {
			return nil, fmt.Errorf("in step '%s.%s': %w", s.StageType, s.Name, err)
		}
		for _, attr := range attrs {
			src, err := binding.FromExpression(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("in step '%s.%s', argument '%s': %w", s.StageType, s.Name, attr.Name, err)
			}
			logger.Debug("Translated argument.", "port", attr.Name, "source", src.String())
			step.Arguments = append(step.Arguments, &config.Argument{
				Port:   attr.Name,
				Source: src,
				Range:  attr.Range,
			})
		}
	}
	return step, nil
}

// translateOutput converts a pipeline output block. Outputs must name a
// source; `null` is rejected.
func translateOutput(o *outputBlock) (*config.Output, error) {
	src, err := binding.FromExpression(o.Value)
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

// translateVariable converts a pipeline-level input declaration.
func translateVariable(ctx context.Context, v *variableBlock) (*config.Variable, error) {
	def, err := evalDefault(ctx, v.Default, fmt.Sprintf("variable '%s'", v.Name))
	if err != nil {
		return nil, err
	}
	return &config.Variable{
		Name:        v.Name,
		Kind:        v.Kind,
		Description: v.Description,
		Default:     def,
		Optional:    v.Optional != nil && *v.Optional,
	}, nil
}

// translateKind converts a custom kind declaration.
func translateKind(ctx context.Context, k *kindBlock) (*config.KindDefinition, error) {
	hasType := isExprDefined(ctx, k.Type, "type")
	if hasType == (k.Base != "") {
		return nil, fmt.Errorf("kind '%s' must set exactly one of 'base' or 'type'", k.Name)
	}
	def := &config.KindDefinition{Name: k.Name, Base: k.Base, Type: cty.NilType}
	if hasType {
		ty, err := typeExprToCtyType(ctx, k.Type)
		if err != nil {
			return nil, fmt.Errorf("in kind '%s': %w", k.Name, err)
		}
		def.Type = ty
	}
	return def, nil
}

// translateStageDefinition converts the HCL-specific stage schema into the agnostic model.
func translateStageDefinition(ctx context.Context, s *stageBlock) (*config.StageDefinition, error) {
	d := &config.StageDefinition{
		Type:        s.Type,
		Description: s.Description,
	}
	if s.Lifecycle != nil {
		d.Lifecycle = &config.Lifecycle{OnRun: s.Lifecycle.OnRun}
	}

	seen := make(map[string]struct{})
	for _, in := range s.Inputs {
		if _, dup := seen[in.Name]; dup {
			return nil, fmt.Errorf("in stage '%s': input '%s' is declared more than once", s.Type, in.Name)
		}
		seen[in.Name] = struct{}{}

		def, err := evalDefault(ctx, in.Default, fmt.Sprintf("input '%s' in stage '%s'", in.Name, s.Type))
		if err != nil {
			return nil, err
		}
		d.Inputs = append(d.Inputs, &config.InputDefinition{
			Name:        in.Name,
			Kind:        in.Kind,
			Description: in.Description,
			Default:     def,
			Optional:    in.Optional != nil && *in.Optional,
		})
	}

	seen = make(map[string]struct{})
	for _, out := range s.Outputs {
		if _, dup := seen[out.Name]; dup {
			return nil, fmt.Errorf("in stage '%s': output '%s' is declared more than once", s.Type, out.Name)
		}
		seen[out.Name] = struct{}{}
		d.Outputs = append(d.Outputs, &config.OutputDefinition{
			Name:        out.Name,
			Kind:        out.Kind,
			Description: out.Description,
		})
	}
	return d, nil
}
