package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStageStates checks the sequence of statuses a stage went through,
// e.g. "ready", "running", "succeeded".
func AssertStageStates(t *testing.T, result *HarnessResult, stage string, want ...string) {
	t.Helper()
	require.NotNil(t, result.App, "app was not created: %v", result.Err)
	require.Equal(t, want, result.App.Events().States(stage), "unexpected states for stage %s", stage)
}

// AssertStageNeverStarted checks that a stage was never handed to a worker.
func AssertStageNeverStarted(t *testing.T, result *HarnessResult, stage string) {
	t.Helper()
	require.NotNil(t, result.App, "app was not created: %v", result.Err)
	require.Equal(t, -1, result.App.Events().IndexOf(stage, "running"), "stage %s should not have started", stage)
}

// AssertRanBefore checks that stage a succeeded before stage b started.
func AssertRanBefore(t *testing.T, result *HarnessResult, a, b string) {
	t.Helper()
	require.NotNil(t, result.App, "app was not created: %v", result.Err)
	rec := result.App.Events()
	done, started := rec.IndexOf(a, "succeeded"), rec.IndexOf(b, "running")
	require.NotEqual(t, -1, done, "stage %s never succeeded", a)
	require.NotEqual(t, -1, started, "stage %s never started", b)
	require.Less(t, done, started, "stage %s should finish before %s starts", a, b)
}
