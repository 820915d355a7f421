package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"weeklyreport/types"
)

// ErrBusy is returned when a run is requested while another is active
var ErrBusy = errors.New("a run is already in progress")

// StageRunner is the part of Pipeline the Runner drives
type StageRunner interface {
	Run(ctx context.Context, stage types.Stage) (*types.RunReport, error)
}

// Runner serializes stage runs coming from HTTP, cron and Kafka and keeps
// the state snapshot current. mu is held for the whole of a run.
type Runner struct {
	pipeline StageRunner
	state    *StateManager
	log      *slog.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewRunner creates a Runner
func NewRunner(pipeline StageRunner, state *StateManager, log *slog.Logger) *Runner {
	return &Runner{pipeline: pipeline, state: state, log: log}
}

// State returns the state manager
func (r *Runner) State() *StateManager { return r.state }

// Start launches stage in the background. It returns ErrBusy if a run is
// already active.
func (r *Runner) Start(ctx context.Context, stage types.Stage) error {
	if !r.mu.TryLock() {
		return ErrBusy
	}
	r.state.Begin(stage)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.mu.Unlock()
		_, _ = r.execute(ctx, stage)
	}()
	return nil
}

// RunNow waits for any active run to finish, then runs stage
func (r *Runner) RunNow(ctx context.Context, stage types.Stage) (*types.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Begin(stage)
	return r.execute(ctx, stage)
}

// Wait blocks until background runs have finished
func (r *Runner) Wait() { r.wg.Wait() }

// must hold r.mu
func (r *Runner) execute(ctx context.Context, stage types.Stage) (*types.RunReport, error) {
	r.log.Info("Run started", "stage", stage)
	report, err := r.pipeline.Run(ctx, stage)
	r.recordProgress(report)
	r.state.Finish(report, err)
	if err != nil {
		r.log.Error("Run failed", "stage", stage, "error", err)
	} else {
		r.log.Info("Run complete", "stage", stage, "run_id", report.RunID)
	}
	return report, err
}

// recordProgress adds one status log line per completed stage
func (r *Runner) recordProgress(report *types.RunReport) {
	if report == nil {
		return
	}
	if f := report.Fetch; f != nil {
		r.state.AddLog(fmt.Sprintf("fetch: %d articles saved from %d entries", f.Saved, f.Entries))
	}
	if s := report.Summarize; s != nil {
		r.state.AddLog(fmt.Sprintf("summarize: %d summaries via %s, %d fallbacks", s.Articles, s.Generator, s.Fallbacks))
	}
	if rr := report.Render; rr != nil {
		r.state.AddLog(fmt.Sprintf("render: %s", rr.Path))
	}
}
