package asset

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// TimeoutError is the failure handed to a waiter whose deadline passed.
type TimeoutError struct {
	Asset  string
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting on %s after %s", e.Asset, e.Waited)
}

type waiting struct {
	waiter   Waiter
	started  time.Time
	deadline time.Time // zero when the wait is untimed
}

// Monitor is a named wait list. It is safe for concurrent use; its lock is a
// leaf and is never held while calling out of the package.
type Monitor struct {
	name    string
	checker *Checker

	mu       sync.Mutex
	waiters  *list.List
	timed    int
	released bool
}

// NewMonitor creates a monitor. A nil checker disables timeouts.
func NewMonitor(name string, checker *Checker) *Monitor {
	return &Monitor{
		name:    name,
		checker: checker,
		waiters: list.New(),
	}
}

// Name returns the monitor's name.
func (m *Monitor) Name() string {
	return m.name
}

// Wait registers w. It returns false without registering when the monitor has
// been permanently released, in which case the caller proceeds directly. A
// timeout of zero or less waits indefinitely.
func (m *Monitor) Wait(w Waiter, timeout time.Duration) bool {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return false
	}
	entry := &waiting{waiter: w}
	if m.checker != nil {
		entry.started = m.checker.now()
		if timeout > 0 {
			entry.deadline = entry.started.Add(timeout)
			m.timed++
		}
	}
	m.waiters.PushBack(entry)
	track := !entry.deadline.IsZero()
	m.mu.Unlock()

	if track {
		m.checker.track(m)
	}
	return true
}

// Waiting returns the number of registered waiters.
func (m *Monitor) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters.Len()
}

// IsReleased reports whether the monitor was permanently released.
func (m *Monitor) IsReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// ActivateAll queues every waiter for activation in registration order. When
// permanent is set, later calls to Wait return false.
func (m *Monitor) ActivateAll(set *ActivateSet, permanent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if permanent {
		m.released = true
	}
	for e := m.waiters.Front(); e != nil; e = e.Next() {
		set.Add(e.Value.(*waiting).waiter)
	}
	m.waiters.Init()
	m.timed = 0
}

// FailAll queues every waiter to be failed with err in registration order.
func (m *Monitor) FailAll(set *ActivateSet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e := m.waiters.Front(); e != nil; e = e.Next() {
		set.AddFailure(e.Value.(*waiting).waiter, err)
	}
	m.waiters.Init()
	m.timed = 0
}

// Check fails and removes every waiter whose deadline is at or before now. It
// returns true while timed waiters remain.
func (m *Monitor) Check(now time.Time, set *ActivateSet) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e := m.waiters.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*waiting)
		if !entry.deadline.IsZero() && !now.Before(entry.deadline) {
			m.waiters.Remove(e)
			m.timed--
			set.AddFailure(entry.waiter, &TimeoutError{Asset: m.name, Waited: now.Sub(entry.started)})
		}
		e = next
	}
	return m.timed > 0
}

func (m *Monitor) hasTimed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timed > 0
}
