package ctyconv

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	ctyValueType = reflect.TypeOf(cty.Value{})
	anyMapType   = reflect.TypeOf(map[string]any(nil))
)

// Decode populates the Go value pointed to by target from val, converting
// primitives to the declared type ty. Null and unknown values leave target
// untouched.
func Decode(ctx context.Context, val cty.Value, ty cty.Type, target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	return decode(ctx, val, ty, ptr.Elem())
}

func decode(ctx context.Context, val cty.Value, ty cty.Type, dst reflect.Value) error {
	goType := dst.Type()

	if goType == ctyValueType {
		if val.IsKnown() {
			dst.Set(reflect.ValueOf(val))
		}
		return nil
	}
	if !val.IsKnown() || val.IsNull() {
		return nil
	}

	switch goType.Kind() {
	case reflect.Struct:
		return decodeStruct(ctx, val, ty, dst)

	case reflect.Interface:
		nv, err := ToNative(val)
		if err != nil {
			return err
		}
		if nv != nil {
			dst.Set(reflect.ValueOf(nv))
		}
		return nil

	case reflect.Map:
		return decodeMap(ctx, val, ty, dst)

	case reflect.Slice:
		return decodeSlice(ctx, val, ty, dst)

	default:
		converted, err := convert.Convert(val, primitiveTarget(ty, val))
		if err != nil {
			return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
		}
		return gocty.FromCtyValue(converted, dst.Addr().Interface())
	}
}

func primitiveTarget(ty cty.Type, val cty.Value) cty.Type {
	if ty == cty.NilType || ty == cty.DynamicPseudoType {
		return val.Type()
	}
	return ty
}

func decodeStruct(ctx context.Context, val cty.Value, ty cty.Type, dst reflect.Value) error {
	vt := val.Type()
	if !vt.IsObjectType() && !vt.IsMapType() {
		return fmt.Errorf("type mismatch: cannot decode %s into Go struct %s", vt.FriendlyName(), dst.Type())
	}

	attrs := val.AsValueMap()
	for i := 0; i < dst.NumField(); i++ {
		field := dst.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		name := tagName(field, "cty")
		if name == "" {
			continue
		}
		av, ok := attrs[name]
		if !ok {
			continue
		}
		if err := decode(ctx, av, attrType(ty, name, av), dst.Field(i)); err != nil {
			return fmt.Errorf("in attribute '%s': %w", name, err)
		}
	}
	return nil
}

func attrType(ty cty.Type, name string, av cty.Value) cty.Type {
	switch {
	case ty.IsObjectType() && ty.HasAttribute(name):
		return ty.AttributeType(name)
	case ty.IsMapType():
		return ty.ElementType()
	default:
		return av.Type()
	}
}

// decodeMap has a fast path for map[string]any and a typed path for every
// other map, where each element is decoded against the declared element type.
func decodeMap(ctx context.Context, val cty.Value, ty cty.Type, dst reflect.Value) error {
	logger := ctxlog.FromContext(ctx)
	if dst.Type() == anyMapType {
		nv, err := ToNative(val)
		if err != nil {
			return err
		}
		if m, ok := nv.(map[string]any); ok {
			dst.Set(reflect.ValueOf(m))
			return nil
		}
		return fmt.Errorf("type mismatch: cannot decode %s into map[string]any", val.Type().FriendlyName())
	}

	vt := val.Type()
	if !vt.IsMapType() && !vt.IsObjectType() {
		return fmt.Errorf("type mismatch: cannot decode %s into Go map %s", vt.FriendlyName(), dst.Type())
	}
	logger.Debug("Decoding into typed Go map.", "go_type", dst.Type().String(), "cty_type", vt.FriendlyName())

	out := reflect.MakeMapWithSize(dst.Type(), val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		key := k.AsString()
		elemType := ev.Type()
		if ty.IsMapType() {
			elemType = ty.ElementType()
		}
		elem := reflect.New(dst.Type().Elem()).Elem()
		if err := decode(ctx, ev, elemType, elem); err != nil {
			return fmt.Errorf("failed to decode map element '%s': %w", key, err)
		}
		out.SetMapIndex(reflect.ValueOf(key), elem)
	}
	dst.Set(out)
	return nil
}

func decodeSlice(ctx context.Context, val cty.Value, ty cty.Type, dst reflect.Value) error {
	vt := val.Type()
	if !vt.IsListType() && !vt.IsTupleType() && !vt.IsSetType() {
		return fmt.Errorf("type mismatch: cannot decode %s into Go slice %s", vt.FriendlyName(), dst.Type())
	}

	out := reflect.MakeSlice(dst.Type(), val.LengthInt(), val.LengthInt())
	i := 0
	for it := val.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		elemType := ev.Type()
		if ty.IsListType() || ty.IsSetType() {
			elemType = ty.ElementType()
		}
		if err := decode(ctx, ev, elemType, out.Index(i)); err != nil {
			return fmt.Errorf("in slice element %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

// tagName returns the first comma-separated part of the named struct tag,
// or "" when the field is untagged or skipped with "-".
func tagName(field reflect.StructField, key string) string {
	name := strings.Split(field.Tag.Get(key), ",")[0]
	if name == "-" {
		return ""
	}
	return name
}
