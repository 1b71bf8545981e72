package stageerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageExecutionFailure(t *testing.T) {
	// --- Arrange ---
	root := errors.New("disk full")
	err := fmt.Errorf("run aborted: %w", &StageExecutionFailure{Stage: nodeid.New("aggregate", "merge"), Err: root})

	// --- Act ---
	stage, ok := FailedStage(err)

	// --- Assert ---
	require.True(t, ok)
	assert.Equal(t, nodeid.New("aggregate", "merge"), stage)
	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), `stage "aggregate.merge" failed: disk full`)
}

func TestInvariantViolationSurvivesWrapping(t *testing.T) {
	// --- Arrange ---
	iv := Invariant("barcode_count", "expected %d, got %d", 10, 9)
	err := &StageExecutionFailure{Stage: nodeid.New("check_invariants", "gate"), Err: iv}

	// --- Act & Assert ---
	assert.True(t, IsInvariantViolation(err))
	assert.False(t, IsInvariantViolation(errors.New("plain")))
	assert.Contains(t, err.Error(), `invariant "barcode_count" violated: expected 10, got 9`)
}
