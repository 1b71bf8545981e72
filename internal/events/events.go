// Package events publishes the lifecycle of a run: when it starts and ends
// and every stage status transition in between.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// Type identifies what an Event reports.
type Type string

const (
	RunStarted   Type = "run_started"
	StageChanged Type = "stage_changed"
	RunFinished  Type = "run_finished"
)

// Event is one observation of a run.
type Event struct {
	RunID string    `json:"run_id"`
	Type  Type      `json:"type"`
	Time  time.Time `json:"time"`
	// Stage is the stage address for StageChanged events.
	Stage string `json:"stage,omitempty"`
	// State is the new stage status, or the final run state for RunFinished.
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// Sink receives events. Publish must be safe for concurrent use and must not
// block the run for long; sinks that talk to the network buffer or drop.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// Multi fans each event out to every sink in order.
type Multi []Sink

// Publish implements Sink.
func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}

// LogSink writes events to the logger carried by the context.
type LogSink struct{}

// Publish implements Sink.
func (LogSink) Publish(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	switch ev.Type {
	case StageChanged:
		logger.Debug("Stage status changed.", "runID", ev.RunID, "stage", ev.Stage, "state", ev.State)
	case RunStarted:
		logger.Debug("Run started.", "runID", ev.RunID)
	case RunFinished:
		logger.Debug("Run finished.", "runID", ev.RunID, "state", ev.State)
	}
}

// Recorder keeps every event in memory. It is used by tests and by the
// healthcheck server to report progress.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Sink.
func (r *Recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// States returns the sequence of states recorded for stage.
func (r *Recorder) States(stage string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Type == StageChanged && ev.Stage == stage {
			out = append(out, ev.State)
		}
	}
	return out
}

// IndexOf returns the position of the first event for stage entering state,
// or -1.
func (r *Recorder) IndexOf(stage, state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ev := range r.events {
		if ev.Type == StageChanged && ev.Stage == stage && ev.State == state {
			return i
		}
	}
	return -1
}
