package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/resultstore"
	"github.com/zclconf/go-cty/cty"
)

// worker is the processing loop for a single concurrent worker. It never
// starts a stage once the run has aborted or ctx is done.
func (e *Executor) worker(ctx context.Context, readyChan <-chan *dag.Stage, doneChan chan<- outcome, aborted <-chan struct{}, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for s := range readyChan {
		stageCtx := ctxlog.With(ctx, "workerID", workerID, "stage", s.ID())
		workerLogger := ctxlog.FromContext(stageCtx)

		select {
		case <-aborted:
			workerLogger.Debug("Run aborted, not starting stage.")
			doneChan <- outcome{stage: s, skipped: true}
			continue
		default:
		}
		if err := ctx.Err(); err != nil {
			workerLogger.Warn("Context canceled, not starting stage.")
			doneChan <- outcome{stage: s, skipped: true, err: err}
			continue
		}

		e.transition(ctx, s, resultstore.Running, nil)
		workerLogger.Info("▶️ Starting stage")
		outputs, err := e.runStage(stageCtx, s)
		doneChan <- outcome{stage: s, outputs: outputs, err: err}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// runStage assembles the inputs of s, calls its handler and checks the
// outputs it returned against the stage definition.
func (e *Executor) runStage(ctx context.Context, s *dag.Stage) (outputs map[string]cty.Value, err error) {
	logger := ctxlog.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	inputs, err := e.assembleInputs(ctx, s)
	if err != nil {
		return nil, err
	}

	workDir := filepath.Join(e.workDir, s.ID())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	logger.Debug("Calling stage handler.", "handler", s.Definition.Lifecycle.OnRun, "inputs", formatInputsForLogs(inputs))
	raw, err := s.Handler.Run(ctx, &registry.Request{
		Step:    s.Addr,
		Inputs:  inputs,
		Types:   s.InputTypes,
		WorkDir: workDir,
	})
	if err != nil {
		return nil, err
	}
	return e.checkOutputs(s, raw)
}
