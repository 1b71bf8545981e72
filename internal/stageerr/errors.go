// Package stageerr holds the errors a running stage can end with.
package stageerr

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
)

// StageExecutionFailure is a failure raised by a stage's handler. It is always
// fatal to the run and is never retried.
type StageExecutionFailure struct {
	Stage nodeid.Address
	Err   error
}

func (e *StageExecutionFailure) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageExecutionFailure) Unwrap() error {
	return e.Err
}

// InvariantViolation is returned by gate stages when merged state does not
// agree with the inputs it was merged from. It is a correctness failure, not
// a transient one.
type InvariantViolation struct {
	// Check names the invariant that was violated, e.g. "barcode_count".
	Check string
	// Detail describes the observed disagreement.
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %q violated: %s", e.Check, e.Detail)
}

// Invariant builds an *InvariantViolation with a formatted detail message.
func Invariant(check, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Check: check, Detail: fmt.Sprintf(format, args...)}
}

// IsInvariantViolation reports whether err carries an *InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}

// FailedStage returns the stage named by the *StageExecutionFailure in err.
func FailedStage(err error) (nodeid.Address, bool) {
	var sef *StageExecutionFailure
	if errors.As(err, &sef) {
		return sef.Stage, true
	}
	return nodeid.Address{}, false
}
