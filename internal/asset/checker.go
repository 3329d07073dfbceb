package asset

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/officegrid/internal/ctxlog"
)

// DefaultCheckInterval is used when a Checker is created with a non-positive interval.
const DefaultCheckInterval = 100 * time.Millisecond

// Clock supplies the current time to the checker.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Checker periodically checks every monitor holding timed waiters.
type Checker struct {
	clock    Clock
	interval time.Duration
	onExpire func(monitor string)

	mu       sync.Mutex
	monitors map[*Monitor]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewChecker creates a checker. It does nothing until Start is called, but
// CheckNow may be used at any time.
func NewChecker(clock Clock, interval time.Duration) *Checker {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Checker{
		clock:    clock,
		interval: interval,
		monitors: make(map[*Monitor]struct{}),
	}
}

// OnExpire registers a hook invoked once per expired waiter, after it has been
// failed. It must be set before the checker is shared.
func (c *Checker) OnExpire(f func(monitor string)) {
	c.onExpire = f
}

// Interval returns the polling interval.
func (c *Checker) Interval() time.Duration {
	return c.interval
}

// Start launches the polling goroutine. It stops when ctx is done or Stop is called.
func (c *Checker) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Asset checker started.", "interval", c.interval)
	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				logger.Debug("Asset checker stopped.")
				return
			case <-ticker.C:
				c.CheckNow()
			}
		}
	}()
}

// Stop halts the polling goroutine and waits for it to exit.
func (c *Checker) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CheckNow checks every tracked monitor against the clock and resumes expired
// waiters. It returns the number of waiters failed.
func (c *Checker) CheckNow() int {
	now := c.clock.Now()

	c.mu.Lock()
	monitors := make([]*Monitor, 0, len(c.monitors))
	for m := range c.monitors {
		monitors = append(monitors, m)
	}
	c.mu.Unlock()

	var set ActivateSet
	expired := make(map[string]int)
	for _, m := range monitors {
		before := set.Len()
		if !m.Check(now, &set) {
			c.untrack(m)
		}
		if n := set.Len() - before; n > 0 {
			expired[m.Name()] += n
		}
	}
	failed := set.Len()
	set.Activate()

	if c.onExpire != nil {
		for name, n := range expired {
			for i := 0; i < n; i++ {
				c.onExpire(name)
			}
		}
	}
	return failed
}

// Tracked returns the number of monitors currently polled.
func (c *Checker) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.monitors)
}

func (c *Checker) now() time.Time {
	return c.clock.Now()
}

func (c *Checker) track(m *Monitor) {
	c.mu.Lock()
	c.monitors[m] = struct{}{}
	c.mu.Unlock()
}

// untrack drops m unless a timed waiter arrived since it was checked.
func (c *Checker) untrack(m *Monitor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !m.hasTimed() {
		delete(c.monitors, m)
	}
}
