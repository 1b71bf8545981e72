package app

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/events"
	"github.com/specialistvlad/stagegrid/internal/executor"
	"github.com/specialistvlad/stagegrid/internal/objectstore"
	"github.com/specialistvlad/stagegrid/internal/outputs"
)

// Run executes the main application logic: build the graph, then either
// print the plan or execute it and deliver its outputs.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.startHealthcheckServer(ctx)
	defer a.closeHealthcheckServer(ctx)

	provided, err := a.providedInputs(ctx)
	if err != nil {
		return &StartupError{Err: err}
	}

	graph, err := dag.Build(ctx, a.model, a.registry, a.kinds, provided)
	if err != nil {
		return &StartupError{Err: fmt.Errorf("failed to build execution graph: %w", err)}
	}
	a.logger.Debug("Execution graph built.", "stage_count", len(graph.Stages))
	a.logger.Info("Stage handlers registered:", "count", len(a.registry.HandlerRegistry), "keys", a.registry.HandlerNames())

	if a.config.Plan {
		_, err := a.outW.Write(graph.Render())
		return err
	}
	if len(graph.Stages) == 0 {
		a.logger.Warn("No steps found in pipeline, execution not required.")
	}

	sink, closeSink := a.eventSink(ctx)
	defer closeSink()

	workDir, err := os.MkdirTemp("", "stagegrid-run-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	exec := executor.New(graph,
		executor.WithWorkers(a.config.WorkerCount),
		executor.WithSink(sink),
		executor.WithWorkDir(workDir),
	)
	a.logger.Info("🚀 Starting concurrent execution...", "runID", exec.RunID())
	res, err := exec.Run(ctx)
	if err != nil {
		a.logger.Error("Run aborted.", "runID", exec.RunID(), "error", err, "workDir", workDir)
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.", "runID", res.RunID, "state", res.State.String())

	out, err := outputs.Map(graph, res)
	if err != nil {
		return fmt.Errorf("failed to map pipeline outputs: %w", err)
	}
	a.outputs = out

	if a.config.OutDir == "" {
		a.logger.Info("No output directory set, artifacts stay in the work directory.", "workDir", workDir)
		a.printOutputs(out)
		return nil
	}
	defer os.RemoveAll(workDir)

	if _, err := out.Materialize(ctx, a.config.OutDir); err != nil {
		return err
	}
	a.logger.Info("Outputs materialized.", "dir", a.config.OutDir, "count", len(out.Values))
	a.printOutputs(out)

	if a.config.Publish.Endpoint != "" {
		if err := a.publish(ctx, res.RunID); err != nil {
			return fmt.Errorf("failed to publish outputs: %w", err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// eventSink assembles where run events go. The returned func releases any
// network connection.
func (a *App) eventSink(ctx context.Context) (events.Sink, func()) {
	sinks := events.Multi{events.LogSink{}, a.recorder}
	if a.config.EventsURL == "" {
		return sinks, func() {}
	}
	sio, err := events.DialSocketIO(ctx, events.SocketIOConfig{URL: a.config.EventsURL})
	if err != nil {
		// Event streaming is best effort; the run proceeds without it.
		a.logger.Warn("Could not connect to event server, continuing without it.", "url", a.config.EventsURL, "error", err)
		return sinks, func() {}
	}
	return append(sinks, sio), sio.Close
}

func (a *App) publish(ctx context.Context, runID string) error {
	cfg := a.config.Publish.WithEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	pub, err := objectstore.NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	_, err = pub.Publish(ctx, runID, a.config.OutDir)
	return err
}

// printOutputs writes one line per pipeline output, sorted by name.
func (a *App) printOutputs(out *outputs.PipelineOutput) {
	values := append([]outputs.Value(nil), out.Values...)
	sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
	for _, v := range values {
		fmt.Fprintf(a.outW, "%s = %s\n", v.Name, outputs.Display(v.Value))
	}
}
