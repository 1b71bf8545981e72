// Package value defines the tagged value passed to stage input ports.
//
// A port either carries a concrete cty.Value or is Unresolved, meaning the
// caller deliberately left it unset and the stage must choose its own
// default. Unresolved is a distinct state, not a null cty.Value, so a stage
// can never mistake "not provided" for "provided as empty".
package value

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Value is either a concrete cty.Value or the Unresolved marker.
type Value struct {
	v          cty.Value
	unresolved bool
}

// Unresolved returns the marker meaning "use the stage's own default".
func Unresolved() Value {
	return Value{unresolved: true}
}

// Of wraps a concrete value. A null cty.Value is still a concrete value.
func Of(v cty.Value) Value {
	return Value{v: v}
}

// IsUnresolved reports whether v is the Unresolved marker.
func (v Value) IsUnresolved() bool {
	return v.unresolved
}

// Cty returns the wrapped value. It panics when called on Unresolved.
func (v Value) Cty() cty.Value {
	if v.unresolved {
		panic("value: Cty called on an unresolved value")
	}
	return v.v
}

// Or returns the wrapped value, or def when v is Unresolved.
func (v Value) Or(def cty.Value) cty.Value {
	if v.unresolved {
		return def
	}
	return v.v
}

// Equals reports whether two values are identical, treating Unresolved as
// equal only to Unresolved.
func (v Value) Equals(other Value) bool {
	if v.unresolved || other.unresolved {
		return v.unresolved == other.unresolved
	}
	return v.v.RawEquals(other.v)
}

func (v Value) String() string {
	if v.unresolved {
		return "<unresolved>"
	}
	if v.v == cty.NilVal {
		return "<nil>"
	}
	return fmt.Sprintf("%#v", v.v)
}

// Inputs is the set of values bound to a stage's input ports for one run.
type Inputs map[string]Value

// Get returns the value bound to port, and whether the port is present.
func (in Inputs) Get(port string) (Value, bool) {
	v, ok := in[port]
	return v, ok
}

// Resolved returns the concrete value of port. Missing ports and Unresolved
// ports are reported as errors.
func (in Inputs) Resolved(port string) (cty.Value, error) {
	v, ok := in[port]
	if !ok {
		return cty.NilVal, fmt.Errorf("input %q is not bound", port)
	}
	if v.IsUnresolved() {
		return cty.NilVal, fmt.Errorf("input %q is unresolved", port)
	}
	return v.v, nil
}
