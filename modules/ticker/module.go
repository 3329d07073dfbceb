// Package ticker provides an input managed-object source that invokes a
// function on a fixed interval. The invoked function receives the tick number
// as parameter and a Tick as its input managed object.
package ticker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Tick is the managed object handed to each invoked process.
type Tick struct {
	N  int
	At time.Time
}

// Source invokes Function every Interval, at most Limit times when Limit > 0.
type Source struct {
	Function string
	Interval time.Duration
	Limit    int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Input defines the arguments of a ticker managed object.
type Input struct {
	Function string `hcl:"function"`
	Interval string `hcl:"interval,optional"`
	Limit    int    `hcl:"limit,optional"`
}

func defaultInput() *Input {
	return &Input{Interval: "1s"}
}

// NewSource builds a source from its input.
func NewSource(input *Input) (kernel.Source, error) {
	if input.Function == "" {
		return nil, fmt.Errorf("ticker requires a function")
	}
	interval, err := time.ParseDuration(input.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("ticker interval must be positive, got %s", interval)
	}
	return &Source{Function: input.Function, Interval: interval, Limit: input.Limit}, nil
}

// Factory decodes and builds the source.
func Factory() registry.SourceFactory {
	return registry.NewFactory(defaultInput, NewSource)
}

// Start implements kernel.InputSource.
func (s *Source) Start(ctx context.Context, ec kernel.ExecuteContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("ticker for '%s' already started", s.Function)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	logger := ctxlog.FromContext(ctx).With("input", "ticker", "function", s.Function)
	logger.Debug("Ticker started.", "interval", s.Interval, "limit", s.Limit)
	go s.loop(runCtx, ec, s.done)
	return nil
}

func (s *Source) loop(ctx context.Context, ec kernel.ExecuteContext, done chan struct{}) {
	defer close(done)
	logger := ctxlog.FromContext(ctx)
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for n := 1; s.Limit <= 0 || n <= s.Limit; n++ {
		select {
		case <-ctx.Done():
			return
		case at := <-t.C:
			if _, err := ec.InvokeProcess(ctx, s.Function, n, Tick{N: n, At: at}, 0, nil); err != nil {
				logger.Warn("Ticker failed to invoke process.", "function", s.Function, "tick", n, "error", err)
				return
			}
		}
	}
	logger.Debug("Ticker reached its limit.", "function", s.Function, "limit", s.Limit)
}

// Stop implements kernel.InputSource. It waits for the ticking goroutine.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register registers the source.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSource("ticker", Factory())
}
