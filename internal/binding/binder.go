package binding

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/value"
)

// Target is the receiving end of a binding: one input port of one step.
type Target struct {
	Step nodeid.Address
	Port string
}

func (t Target) String() string {
	return t.Step.String() + "." + t.Port
}

// Binding connects a Source to a Target.
type Binding struct {
	Target Target
	Source Source
}

// Port describes a declared input port for Finalize.
type Port struct {
	Target      Target
	Defaultable bool
}

// Binder accumulates bindings while a graph is being declared.
type Binder struct {
	bound map[Target]Source
	order []Target
}

// NewBinder creates an empty binder.
func NewBinder() *Binder {
	return &Binder{bound: make(map[Target]Source)}
}

// Bind binds the port of a consumer step to src. Binding an already-bound
// port fails with a *DuplicateBindingError and leaves the first binding in
// place.
func (b *Binder) Bind(consumer nodeid.Address, port string, src Source) error {
	t := Target{Step: consumer, Port: port}
	if first, exists := b.bound[t]; exists {
		return &DuplicateBindingError{Target: t, First: first, Second: src}
	}
	b.bound[t] = src
	b.order = append(b.order, t)
	return nil
}

// Lookup returns the source bound to t.
func (b *Binder) Lookup(t Target) (Source, bool) {
	src, ok := b.bound[t]
	return src, ok
}

// Finalize checks the bindings of consumer against its declared ports and
// returns one binding per port, in the order ports are given. Bindings of
// other steps are left for their own Finalize call. Ports left unbound are
// bound to Unresolved. A required port whose effective source is
// Unresolved, directly or through a pipeline input that resolved to
// Unresolved, yields a *MissingRequiredInputError. Bindings to undeclared
// ports yield an *UnknownPortError. All problems are reported together.
func (b *Binder) Finalize(consumer nodeid.Address, ports []Port, inputs map[string]value.Value) ([]Binding, error) {
	var errs []error
	declared := make(map[Target]struct{}, len(ports))
	out := make([]Binding, 0, len(ports))

	for _, p := range ports {
		declared[p.Target] = struct{}{}
		src, ok := b.bound[p.Target]
		if !ok {
			src = Unresolved{}
		}

		if !p.Defaultable && isUnresolved(src, inputs) {
			var via Source
			if ok {
				via = src
			}
			errs = append(errs, &MissingRequiredInputError{Target: p.Target, Via: via})
		}
		out = append(out, Binding{Target: p.Target, Source: src})
	}

	for _, t := range b.order {
		if t.Step != consumer {
			continue
		}
		if _, ok := declared[t]; !ok {
			errs = append(errs, &UnknownPortError{Target: t})
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func isUnresolved(src Source, inputs map[string]value.Value) bool {
	switch s := src.(type) {
	case Unresolved:
		return true
	case FromPipelineInput:
		v, ok := inputs[s.Name]
		return !ok || v.IsUnresolved()
	default:
		return false
	}
}

// DuplicateBindingError is returned when a port is bound twice.
type DuplicateBindingError struct {
	Target Target
	First  Source
	Second Source
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("input %q of step %q is bound more than once (%s, then %s)", e.Target.Port, e.Target.Step, e.First, e.Second)
}

// MissingRequiredInputError is returned when a port that has no default is
// left unresolved.
type MissingRequiredInputError struct {
	Target Target
	// Via is the source that resolved to Unresolved, or nil when the port
	// was never bound.
	Via Source
}

func (e *MissingRequiredInputError) Error() string {
	if e.Via == nil {
		return fmt.Sprintf("missing required input %q for step %q", e.Target.Port, e.Target.Step)
	}
	return fmt.Sprintf("missing required input %q for step %q: bound to %s, which is unresolved", e.Target.Port, e.Target.Step, e.Via)
}

// UnknownPortError is returned when a binding targets a port the stage does
// not declare.
type UnknownPortError struct {
	Target Target
}

func (e *UnknownPortError) Error() string {
	return fmt.Sprintf("step %q has no input %q", e.Target.Step, e.Target.Port)
}
