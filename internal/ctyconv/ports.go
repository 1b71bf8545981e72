package ctyconv

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// InputTag is the struct tag naming the input port a field receives.
const InputTag = "stage"

// OutputTag is the struct tag naming the output port a field produces.
const OutputTag = "cty"

var valueType = reflect.TypeOf(value.Value{})

// IsValueField reports whether a field receives the tagged value as-is,
// including the Unresolved marker.
func IsValueField(t reflect.Type) bool {
	return t == valueType
}

// DecodeInputs fills the struct pointed to by target from inputs. types maps
// each port to the carrier type of its declared kind.
func DecodeInputs(ctx context.Context, inputs value.Inputs, types map[string]cty.Type, target any) error {
	logger := ctxlog.FromContext(ctx)

	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("input target must be a non-nil pointer to a struct, got %T", target)
	}
	st := ptr.Elem()

	for i := 0; i < st.NumField(); i++ {
		field := st.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		port := tagName(field, InputTag)
		if port == "" {
			continue
		}
		v, ok := inputs[port]
		if !ok {
			continue
		}

		dst := st.Field(i)
		if IsValueField(field.Type) {
			dst.Set(reflect.ValueOf(v))
			continue
		}
		if v.IsUnresolved() {
			return fmt.Errorf("input %q is unresolved but field %s cannot represent that; use value.Value", port, field.Name)
		}
		ty, ok := types[port]
		if !ok {
			ty = cty.DynamicPseudoType
		}
		if err := decode(ctx, v.Cty(), ty, dst); err != nil {
			return fmt.Errorf("failed to decode input '%s': %w", port, err)
		}
	}
	logger.Debug("Decoded handler inputs.", "type", st.Type().String())
	return nil
}

// EncodeOutputs converts a handler's output into port values. out may be a
// map[string]cty.Value, a map[string]any, or a struct (or pointer to one)
// whose fields carry `cty:"<port>"` tags. A nil out yields no outputs.
func EncodeOutputs(out any) (map[string]cty.Value, error) {
	if out == nil {
		return map[string]cty.Value{}, nil
	}
	switch o := out.(type) {
	case map[string]cty.Value:
		return o, nil
	case map[string]any:
		res := make(map[string]cty.Value, len(o))
		for k, v := range o {
			cv, err := ToCtyValue(v)
			if err != nil {
				return nil, fmt.Errorf("output '%s': %w", k, err)
			}
			res[k] = cv
		}
		return res, nil
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return map[string]cty.Value{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported handler output type %T", out)
	}

	res := make(map[string]cty.Value)
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		port := tagName(field, OutputTag)
		if port == "" {
			continue
		}
		cv, err := ToCtyValue(rv.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("output '%s': %w", port, err)
		}
		res[port] = cv
	}
	return res, nil
}

// TaggedFields returns the port names declared by a struct type under tag,
// mapped to their fields.
func TaggedFields(t reflect.Type, tag string) map[string]reflect.StructField {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	fields := make(map[string]reflect.StructField)
	if t.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name := tagName(f, tag); name != "" {
			fields[name] = f
		}
	}
	return fields
}
