package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/events"
	"github.com/specialistvlad/stagegrid/internal/inmemorystore"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/resultstore"
	"github.com/specialistvlad/stagegrid/internal/scheduler"
	"github.com/specialistvlad/stagegrid/internal/stageerr"
	"github.com/zclconf/go-cty/cty"
)

// Executor runs one execution graph. An Executor is single-use.
type Executor struct {
	graph      *dag.ExecutionGraph
	store      resultstore.Store
	sched      scheduler.Scheduler
	sink       events.Sink
	numWorkers int
	workDir    string
	runID      string
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the number of stages running at once. Values below one
// mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Executor) { e.numWorkers = n }
}

// WithStore sets the result store. The default is an in-memory store.
func WithStore(s resultstore.Store) Option {
	return func(e *Executor) { e.store = s }
}

// WithSink sets where run events are published.
func WithSink(s events.Sink) Option {
	return func(e *Executor) { e.sink = s }
}

// WithWorkDir sets the directory under which each stage gets a private
// working directory. The default is a fresh temporary directory.
func WithWorkDir(dir string) Option {
	return func(e *Executor) { e.workDir = dir }
}

// WithRunID sets the run identifier. The default is a random UUID.
func WithRunID(id string) Option {
	return func(e *Executor) { e.runID = id }
}

// New creates an executor for g.
func New(g *dag.ExecutionGraph, opts ...Option) *Executor {
	e := &Executor{graph: g}
	for _, opt := range opts {
		opt(e)
	}
	if e.numWorkers < 1 {
		e.numWorkers = runtime.NumCPU()
	}
	if e.store == nil {
		e.store = inmemorystore.New()
	}
	if e.sink == nil {
		e.sink = events.Discard
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	e.sched = scheduler.New(g)
	return e
}

// RunID returns the identifier events and logs of this run carry.
func (e *Executor) RunID() string {
	return e.runID
}

// outcome is what a worker reports back for one stage.
type outcome struct {
	stage   *dag.Stage
	outputs map[string]cty.Value
	err     error
	// skipped is set when the worker declined to start the stage.
	skipped bool
}

// Run executes the graph and returns its result. The returned error is nil
// when every stage succeeded. Otherwise it is the first
// *stageerr.StageExecutionFailure, or the context's error if ctx was
// cancelled before a stage failed.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	ctx = ctxlog.With(ctx, "runID", e.runID)
	logger := ctxlog.FromContext(ctx)

	if e.workDir == "" {
		dir, err := os.MkdirTemp("", "stagegrid-run-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
		e.workDir = dir
	}

	e.publish(ctx, events.Event{Type: events.RunStarted})
	logger.Info("▶️ Starting run", "stages", len(e.graph.Stages), "workers", e.numWorkers)

	n := len(e.graph.Stages)
	readyChan := make(chan *dag.Stage, n)
	doneChan := make(chan outcome, n)
	c := &coordinator{Executor: e, aborted: make(chan struct{})}

	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, doneChan, c.aborted, i)
	}

	inFlight := 0
	for _, s := range e.sched.Sources() {
		logger.Debug("Found source stage.", "stage", s.ID())
		e.transition(ctx, s, resultstore.Ready, nil)
		readyChan <- s
		inFlight++
	}

	for inFlight > 0 {
		o := <-doneChan
		inFlight--
		for _, next := range c.settle(ctx, o) {
			e.transition(ctx, next, resultstore.Ready, nil)
			readyChan <- next
			inFlight++
		}
	}
	close(readyChan)

	return c.finish(ctx)
}

// coordinator holds the state only the Run loop touches.
type coordinator struct {
	*Executor
	aborted   chan struct{}
	isAborted bool
	failure   error
}

// abort moves the run to Aborted. Only the first call records its cause.
func (c *coordinator) abort(cause error) {
	if c.isAborted {
		return
	}
	c.isAborted = true
	c.failure = cause
	close(c.aborted)
}

// settle records the outcome of one stage and returns the stages it made
// ready.
func (c *coordinator) settle(ctx context.Context, o outcome) []*dag.Stage {
	logger := ctxlog.FromContext(ctx).With("stage", o.stage.ID())

	switch {
	case o.skipped:
		if o.err != nil && !c.isAborted {
			c.abort(o.err)
		}
		c.transition(ctx, o.stage, resultstore.Skipped, o.err)
		return nil

	case o.err != nil:
		failure := &stageerr.StageExecutionFailure{Stage: o.stage.Addr, Err: o.err}
		logger.Error("❌ Stage failed", "error", o.err)
		c.transition(ctx, o.stage, resultstore.Failed, failure)
		if !c.isAborted {
			logger.Warn("Aborting run; no further stages will start.")
			c.abort(failure)
		}
		return nil

	case c.isAborted:
		// Finished while the run was draining; the result does not count.
		logger.Info("Discarding result of stage that finished after the run aborted.")
		c.transition(ctx, o.stage, resultstore.Succeeded, nil)
		return nil
	}

	if err := c.store.SetOutputs(ctx, o.stage.Addr, o.outputs); err != nil {
		failure := &stageerr.StageExecutionFailure{Stage: o.stage.Addr, Err: err}
		c.transition(ctx, o.stage, resultstore.Failed, failure)
		c.abort(failure)
		return nil
	}
	c.transition(ctx, o.stage, resultstore.Succeeded, nil)
	logger.Info("✅ Stage succeeded")

	ready := c.sched.Succeeded(o.stage)
	for _, r := range ready {
		logger.Debug("Unlocking dependent stage.", "dependent", r.ID())
	}
	return ready
}

// finish marks never-started stages Skipped and assembles the result.
func (c *coordinator) finish(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	res := &Result{
		RunID:    c.runID,
		Statuses: make(map[nodeid.Address]resultstore.Status, len(c.graph.Stages)),
		outputs:  make(map[nodeid.Address]map[string]cty.Value),
	}

	for _, s := range c.graph.Stages {
		status, err := c.store.Status(ctx, s.Addr)
		if err != nil {
			return nil, fmt.Errorf("failed to read status of stage %q: %w", s.ID(), err)
		}
		if !status.Terminal() {
			c.transition(ctx, s, resultstore.Skipped, errors.New("skipped: the run aborted before this stage could start"))
			status = resultstore.Skipped
		}
		res.Statuses[s.Addr] = status

		if out, ok, err := c.store.Outputs(ctx, s.Addr); err == nil && ok {
			res.outputs[s.Addr] = out
		}
	}

	if c.isAborted {
		res.State = RunAborted
		res.Failure = c.failure
		logger.Error("Run aborted.", "error", c.failure)
		c.publish(ctx, events.Event{Type: events.RunFinished, State: res.State.String(), Error: c.failure.Error()})
		return res, c.failure
	}

	res.State = RunSucceeded
	logger.Info("✅ Run succeeded")
	c.publish(ctx, events.Event{Type: events.RunFinished, State: res.State.String()})
	return res, nil
}

// transition records a status change and publishes it.
func (e *Executor) transition(ctx context.Context, s *dag.Stage, status resultstore.Status, stageErr error) {
	logger := ctxlog.FromContext(ctx)
	if err := e.store.SetStatus(ctx, s.Addr, status); err != nil {
		logger.Error("Failed to record stage status.", "stage", s.ID(), "status", status, "error", err)
	}
	ev := events.Event{Type: events.StageChanged, Stage: s.ID(), State: status.String()}
	if stageErr != nil {
		if err := e.store.SetError(ctx, s.Addr, stageErr); err != nil {
			logger.Error("Failed to record stage error.", "stage", s.ID(), "error", err)
		}
		ev.Error = stageErr.Error()
	}
	e.publish(ctx, ev)
}

func (e *Executor) publish(ctx context.Context, ev events.Event) {
	ev.RunID = e.runID
	ev.Time = time.Now()
	e.sink.Publish(ctx, ev)
}
