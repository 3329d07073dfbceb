package kernel

import (
	"sync"
	"time"

	"github.com/specialistvlad/officegrid/internal/asset"
)

// jobSequence is a flow: an ordered chain of jobs in one thread. Its only
// state is its slot in the thread's arena.
type jobSequence struct {
	thread *ThreadState
	slot   int
	// barrier is told when the flow ends. Set for parallel flows.
	barrier *joinPoint
}

// flowArena is the active-flow set. Slots of removed flows are reused.
type flowArena struct {
	slots  []*jobSequence
	free   []int
	active int
}

func (a *flowArena) add(f *jobSequence) {
	if n := len(a.free); n > 0 {
		f.slot = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[f.slot] = f
	} else {
		f.slot = len(a.slots)
		a.slots = append(a.slots, f)
	}
	a.active++
}

// remove reports whether f was active.
func (a *flowArena) remove(f *jobSequence) bool {
	if f.slot < 0 || f.slot >= len(a.slots) || a.slots[f.slot] != f {
		return false
	}
	a.slots[f.slot] = nil
	a.free = append(a.free, f.slot)
	f.slot = -1
	a.active--
	return true
}

// joinPoint holds a continuation until every parallel flow and join it was
// created for has arrived, or until the first failure. It fires once.
type joinPoint struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	cont      *jobNode
}

func newJoinPoint(cont *jobNode, pending int) *joinPoint {
	return &joinPoint{cont: cont, remaining: pending}
}

func (jp *joinPoint) arrive(err error, set *asset.ActivateSet) {
	jp.mu.Lock()
	if jp.fired {
		jp.mu.Unlock()
		return
	}
	jp.remaining--
	if err == nil && jp.remaining > 0 {
		jp.mu.Unlock()
		return
	}
	jp.fired = true
	jp.mu.Unlock()

	if err != nil {
		set.AddFailure(jp.cont, err)
	} else {
		set.Add(jp.cont)
	}
}

// joinWaiter is registered on another thread's joiner monitor.
type joinWaiter struct {
	point   *joinPoint
	token   any
	timeout time.Duration
}

func (w joinWaiter) Activate() {
	var set asset.ActivateSet
	w.point.arrive(nil, &set)
	set.Activate()
}

func (w joinWaiter) Fail(err error) {
	var set asset.ActivateSet
	w.point.arrive(&JoinTimeoutError{Token: w.token, Timeout: w.timeout, Err: err}, &set)
	set.Activate()
}
