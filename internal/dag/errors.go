package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
)

// ErrorKind classifies a GraphConstructionError.
type ErrorKind int

const (
	CycleDetected ErrorKind = iota + 1
	TypeMismatch
	DuplicateBinding
	MissingRequiredInput
	// InvalidReference covers unknown stage types, steps, ports and
	// variables, and malformed identifiers.
	InvalidReference
)

func (k ErrorKind) String() string {
	switch k {
	case CycleDetected:
		return "cycle detected"
	case TypeMismatch:
		return "type mismatch"
	case DuplicateBinding:
		return "duplicate binding"
	case MissingRequiredInput:
		return "missing required input"
	case InvalidReference:
		return "invalid reference"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// GraphConstructionError is returned by Build. It is always detected before
// any stage runs.
type GraphConstructionError struct {
	Kind ErrorKind
	// Step is the step the problem was found on, if any.
	Step nodeid.Address
	// Cycle lists every step on the cycle, starting and ending with the same
	// step. Set only for CycleDetected.
	Cycle []nodeid.Address
	Err   error
}

func (e *GraphConstructionError) Error() string {
	if e.Kind == CycleDetected {
		parts := make([]string, len(e.Cycle))
		for i, a := range e.Cycle {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(parts, " -> "))
	}
	if e.Step.IsZero() {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s in step %q: %v", e.Kind, e.Step, e.Err)
}

func (e *GraphConstructionError) Unwrap() error {
	return e.Err
}

// HasKind reports whether err, or any error joined into it, is a
// GraphConstructionError of kind k.
func HasKind(err error, k ErrorKind) bool {
	for _, e := range flatten(err) {
		var gce *GraphConstructionError
		if errors.As(e, &gce) && gce.Kind == k {
			return true
		}
	}
	return false
}

// Errors returns every GraphConstructionError contained in err.
func Errors(err error) []*GraphConstructionError {
	var out []*GraphConstructionError
	for _, e := range flatten(err) {
		var gce *GraphConstructionError
		if errors.As(e, &gce) {
			out = append(out, gce)
		}
	}
	return out
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func newErr(k ErrorKind, step nodeid.Address, format string, args ...any) *GraphConstructionError {
	return &GraphConstructionError{Kind: k, Step: step, Err: fmt.Errorf(format, args...)}
}

func wrapErr(k ErrorKind, step nodeid.Address, err error) *GraphConstructionError {
	return &GraphConstructionError{Kind: k, Step: step, Err: err}
}
