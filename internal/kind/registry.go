package kind

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Registry resolves kind names to their carrier types. The zero value is not
// usable; create one with NewRegistry. A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	types    map[Kind]cty.Type
	fileLike map[Kind]bool
	integral map[Kind]bool
}

// NewRegistry returns a registry pre-populated with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{
		types:    make(map[Kind]cty.Type, len(builtins)),
		fileLike: make(map[Kind]bool, len(fileLike)),
		integral: map[Kind]bool{Int: true},
	}
	for k, t := range builtins {
		r.types[k] = t
	}
	for k := range fileLike {
		r.fileLike[k] = true
	}
	return r
}

// Register adds a custom kind with the given carrier type. Re-registering an
// existing name is an error.
func (r *Registry) Register(name Kind, ty cty.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return fmt.Errorf("kind name cannot be empty")
	}
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("kind %q is already registered", name)
	}
	r.types[name] = ty
	return nil
}

// Derive registers name as a new kind sharing the carrier type of base. The
// new kind is not compatible with base.
func (r *Registry) Derive(name, base Kind) error {
	r.mu.RLock()
	ty, ok := r.types[base]
	isFile := r.fileLike[base]
	isInt := r.integral[base]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("kind %q derives from unknown kind %q", name, base)
	}
	if err := r.Register(name, ty); err != nil {
		return err
	}
	r.mu.Lock()
	r.fileLike[name] = isFile
	r.integral[name] = isInt
	r.mu.Unlock()
	return nil
}

// Type returns the carrier type of k.
func (r *Registry) Type(k Kind) (cty.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ty, ok := r.types[k]
	if !ok {
		return cty.NilType, fmt.Errorf("unknown kind %q", k)
	}
	return ty, nil
}

// Known reports whether k has been registered.
func (r *Registry) Known(k Kind) bool {
	_, err := r.Type(k)
	return err == nil
}

// IsFile reports whether values of kind k are paths to artifacts on disk.
func (r *Registry) IsFile(k Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fileLike[k]
}

// Names returns all registered kind names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for k := range r.types {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Conform converts v to the carrier type of k. Kinds derived from int only
// accept whole numbers.
func (r *Registry) Conform(k Kind, v cty.Value) (cty.Value, error) {
	ty, err := r.Type(k)
	if err != nil {
		return cty.NilVal, err
	}
	out, err := convert.Convert(v, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("value of type %s is not a valid %q: %w", v.Type().FriendlyName(), k, err)
	}
	if r.isIntegral(k) && out.IsKnown() && !out.IsNull() && !out.AsBigFloat().IsInt() {
		return cty.NilVal, fmt.Errorf("value %s is not a valid %q: must be a whole number", out.AsBigFloat().Text('g', -1), k)
	}
	return out, nil
}

func (r *Registry) isIntegral(k Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.integral[k]
}

// Define registers a custom kind declared in a manifest: derived from base
// when base is set, carried by ty otherwise.
func (r *Registry) Define(name, base Kind, ty cty.Type) error {
	if base != "" {
		return r.Derive(name, base)
	}
	if ty == cty.NilType {
		return fmt.Errorf("kind %q needs either a base kind or a type", name)
	}
	return r.Register(name, ty)
}
