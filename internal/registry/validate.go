package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/ctyconv"
	"github.com/specialistvlad/stagegrid/internal/kind"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	ctyValueType = reflect.TypeOf(cty.Value{})
	anyMapType   = reflect.TypeOf(map[string]any(nil))
)

// ValidateRegistry performs a strict parity check between manifests and Go
// code. Every manifest must point at a registered handler and use known
// kinds. For typed handlers, the Go structs must declare exactly the
// manifest's ports with compatible types.
func (r *Registry) ValidateRegistry(ctx context.Context, kinds *kind.Registry) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	types := make([]string, 0, len(r.DefinitionRegistry))
	for t := range r.DefinitionRegistry {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, stageType := range types {
		def := r.DefinitionRegistry[stageType]
		_, handler, err := r.Stage(stageType)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		for _, in := range def.Inputs {
			if !kinds.Known(kind.Kind(in.Kind)) {
				errs = append(errs, fmt.Sprintf("stage '%s', input '%s': unknown kind %q", stageType, in.Name, in.Kind))
				continue
			}
			if in.Default != nil {
				if _, err := kinds.Conform(kind.Kind(in.Kind), *in.Default); err != nil {
					errs = append(errs, fmt.Sprintf("stage '%s', input '%s': default: %v", stageType, in.Name, err))
				}
			}
		}
		for _, out := range def.Outputs {
			if !kinds.Known(kind.Kind(out.Kind)) {
				errs = append(errs, fmt.Sprintf("stage '%s', output '%s': unknown kind %q", stageType, out.Name, out.Kind))
			}
		}

		typed, ok := handler.(TypedHandler)
		if !ok {
			logger.Debug("Handler is untyped, skipping struct parity check.", "stage", stageType)
			continue
		}
		errs = append(errs, validateInputs(stageType, def, typed.InputType(), kinds)...)
		errs = append(errs, validateOutputs(stageType, def, typed.OutputType())...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func validateInputs(stageType string, def *config.StageDefinition, inputType reflect.Type, kinds *kind.Registry) []string {
	var errs []string
	goInputs := ctyconv.TaggedFields(inputType, ctyconv.InputTag)

	// Check for presence mismatches
	for name := range goInputs {
		if _, ok := def.Input(name); !ok {
			errs = append(errs, fmt.Sprintf("stage '%s': Go struct has field for input '%s' which is not declared in manifest", stageType, name))
		}
	}
	for _, in := range def.Inputs {
		field, ok := goInputs[in.Name]
		if !ok {
			errs = append(errs, fmt.Sprintf("stage '%s': manifest declares input '%s' which is not found in Go struct", stageType, in.Name))
			continue
		}

		if in.Optional && in.Default == nil && !ctyconv.IsValueField(field.Type) {
			errs = append(errs, fmt.Sprintf("stage '%s', input '%s': optional input must be received in a value.Value field, got %s", stageType, in.Name, field.Type))
			continue
		}
		if msg := checkFieldType(kinds, kind.Kind(in.Kind), field); msg != "" {
			errs = append(errs, fmt.Sprintf("stage '%s', input '%s': %s", stageType, in.Name, msg))
		}
	}
	return errs
}

func validateOutputs(stageType string, def *config.StageDefinition, outputType reflect.Type) []string {
	if outputType.Kind() != reflect.Struct {
		return nil
	}
	var errs []string
	goOutputs := ctyconv.TaggedFields(outputType, ctyconv.OutputTag)
	for name := range goOutputs {
		if _, ok := def.Output(name); !ok {
			errs = append(errs, fmt.Sprintf("stage '%s': Go struct has field for output '%s' which is not declared in manifest", stageType, name))
		}
	}
	for _, out := range def.Outputs {
		if _, ok := goOutputs[out.Name]; !ok {
			errs = append(errs, fmt.Sprintf("stage '%s': manifest declares output '%s' which is not found in Go struct", stageType, out.Name))
		}
	}
	return errs
}

// checkFieldType returns a non-empty message when values of kind k cannot be
// decoded into field.
func checkFieldType(kinds *kind.Registry, k kind.Kind, field reflect.StructField) string {
	if ctyconv.IsValueField(field.Type) || field.Type == ctyValueType || field.Type.Kind() == reflect.Interface || field.Type == anyMapType {
		return ""
	}
	kindType, err := kinds.Type(k)
	if err != nil {
		return err.Error()
	}
	goType, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface())
	if err != nil {
		return fmt.Sprintf("could not imply cty type from Go field type %s: %v", field.Type, err)
	}
	if kindType.Equals(goType) {
		return ""
	}
	if convert.GetConversionUnsafe(kindType, goType) == nil {
		return fmt.Sprintf("type mismatch. Kind %q carries '%s' but Go struct field '%s' provides incompatible type '%s'",
			k, kindType.FriendlyName(), field.Name, goType.FriendlyName())
	}
	return ""
}
