package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// SleeperManifest declares the "sleeper" stage served by MockSleeperModule.
// Its "after" input lets tests chain sleepers.
const SleeperManifest = `
	stage "sleeper" {
		lifecycle { on_run = "OnRunSleeper" }
		input "id" {
			kind = "string"
		}
		input "after" {
			kind     = "string"
			optional = true
		}
		output "id" {
			kind = "string"
		}
	}
`

// ExecutionRecord is when one sleeper step started and finished.
type ExecutionRecord struct {
	Start, End time.Time
}

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It records the execution time of each step that uses it.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Record returns the execution record of the sleeper with the given id.
func (m *MockSleeperModule) Record(id string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecutionTimes[id]
}

// Register registers the "sleeper" stage's Go handler.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunSleeper", registry.HandlerFunc(func(ctx context.Context, req *registry.Request) (map[string]cty.Value, error) {
		id, err := req.Inputs.Resolved("id")
		if err != nil {
			return nil, err
		}

		startTime := time.Now()
		select {
		case <-time.After(m.sleepDuration):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		endTime := time.Now()

		m.mu.Lock()
		m.ExecutionTimes[id.AsString()] = &ExecutionRecord{Start: startTime, End: endTime}
		m.mu.Unlock()

		if m.completionChan != nil {
			m.completionChan <- id.AsString()
		}
		return map[string]cty.Value{"id": id}, nil
	}))
}
