package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// stopTimeout bounds how long Run waits for the office to wind down.
const stopTimeout = 10 * time.Second

// InvocationResult is the outcome of one invocation from the floor.
type InvocationResult struct {
	Function string
	Delay    time.Duration
	Duration time.Duration
	Err      error
}

// Summary describes a run.
type Summary struct {
	Office  string
	Results []InvocationResult
}

// Failed returns the number of failed invocations.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Run starts the office, runs every invocation of the floor concurrently and
// stops the office once they have completed. A floor without invocations is
// served, for its input sources, until ctx ends.
func (a *App) Run(ctx context.Context) (*Summary, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthcheckServer(); err != nil {
		return nil, err
	}
	defer a.closeHealthcheckServer()

	if err := a.office.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start office: %w", err)
	}

	summary := &Summary{Office: a.office.Name()}
	if len(a.floor.Invocations) > 0 {
		a.logger.Info("🚀 Running invocations...", "count", len(a.floor.Invocations))
		summary.Results = a.invokeAll(ctx)
		a.logger.Info("🏁 Invocations finished.", "failed", summary.Failed())
	} else {
		a.logger.Info("No invocations in floor, serving until interrupted.")
		<-ctx.Done()
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	var errs []error
	if err := a.office.Stop(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop office: %w", err))
	}
	if err := a.tracing.Shutdown(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
	}

	a.logger.Debug("App.Run method finished.")
	return summary, errors.Join(errs...)
}

func (a *App) invokeAll(ctx context.Context) []InvocationResult {
	invocations := a.floor.Invocations
	results := make([]InvocationResult, len(invocations))

	var g errgroup.Group
	for i, inv := range invocations {
		results[i] = InvocationResult{Function: inv.Function, Delay: inv.Delay}
		g.Go(func() error {
			start := time.Now()
			fm, err := a.office.FunctionManager(inv.Function)
			if err == nil {
				err = fm.WithTimeout(a.settings.InvokeTimeout).InvokeAfter(ctx, inv.Delay, inv.Parameter, nil)
			}
			results[i].Duration = time.Since(start)
			results[i].Err = err
			if err != nil {
				a.logger.Warn("Invocation failed.", "function", inv.Function, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
