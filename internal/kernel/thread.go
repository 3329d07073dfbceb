package kernel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/officegrid/internal/asset"
)

// ThreadState is one logical thread of a process. Everything below mu is
// guarded by it; a job holds mu for its whole run, so at most one job per
// thread runs at a time.
type ThreadState struct {
	id      uint64
	process *processState
	office  *Office
	policy  GovernancePolicy
	logger  *slog.Logger

	// complete flips once, under mu, and is read without it.
	complete atomic.Bool
	// joiners is released permanently on completion. Its own mutex is the
	// join lock taken by other threads.
	joiners *asset.Monitor

	mu                 sync.Mutex
	flows              flowArena
	governance         []*governanceContainer
	admins             []*administratorContainer
	objects            map[int]*moContainer
	escalating         bool
	completionDeferred bool
	cleanupOutstanding int
	failure            error
	callback           *spawnCallback
}

// spawnCallback delivers a spawned thread's outcome to its parent on a flow
// the parent reserved at spawn time.
type spawnCallback struct {
	parent *ThreadState
	flow   *jobSequence
	fn     SpawnCallback
}

// ID returns the thread's id, unique within its process.
func (t *ThreadState) ID() uint64 { return t.id }

// IsComplete reports whether the thread has finished. Once true it stays true.
func (t *ThreadState) IsComplete() bool { return t.complete.Load() }

// createJobSequence adds a new active flow.
func (t *ThreadState) createJobSequence() *jobSequence {
	f := &jobSequence{thread: t}
	t.flows.add(f)
	return f
}

// jobSequenceComplete ends a flow. While an escalation is being searched the
// removal is only recorded; the boundary work runs in escalationComplete.
func (t *ThreadState) jobSequenceComplete(f *jobSequence, set *asset.ActivateSet) {
	if !t.flows.remove(f) {
		return
	}
	if f.barrier != nil {
		f.barrier.arrive(nil, set)
	}
	if t.escalating {
		t.completionDeferred = true
		return
	}
	t.deactivateGovernance(set)
	t.checkCompletion(set)
}

// activateGovernance makes the indexed governance active on the thread.
func (t *ThreadState) activateGovernance(index int) *governanceContainer {
	for len(t.governance) <= index {
		t.governance = append(t.governance, nil)
	}
	g := t.governance[index]
	if g == nil {
		g = newGovernanceContainer(index, t.office.meta.Governance[index])
		t.governance[index] = g
		t.logger.Debug("Governance activated.", "governance", g.meta.Name)
	}
	return g
}

// administrator returns the indexed administrator container, creating it.
func (t *ThreadState) administrator(index int) *administratorContainer {
	for len(t.admins) <= index {
		t.admins = append(t.admins, nil)
	}
	a := t.admins[index]
	if a == nil {
		a = &administratorContainer{index: index, meta: t.office.meta.Administrators[index]}
		t.admins[index] = a
	}
	return a
}

// deactivateGovernance hands every active governance container, whichever
// flow activated it, to a cleanup job that enforces or disregards it by the
// thread's policy. Completion waits for that job.
func (t *ThreadState) deactivateGovernance(set *asset.ActivateSet) {
	var active []*governanceContainer
	for i, g := range t.governance {
		if g != nil {
			active = append(active, g)
			t.governance[i] = nil
		}
	}
	if len(active) == 0 {
		return
	}
	policy := t.policy
	t.cleanupOutstanding++
	t.logger.Debug("Deactivating governance.", "policy", policy, "count", len(active))
	set.Add(t.newActivityJob(func(ctx context.Context) error {
		for _, g := range active {
			if err := g.deactivate(ctx, policy); err != nil {
				return err
			}
		}
		return nil
	}))
}

// cleanupComplete records the end of a governance cleanup job.
func (t *ThreadState) cleanupComplete(set *asset.ActivateSet) {
	t.cleanupOutstanding--
	if t.escalating {
		t.completionDeferred = true
		return
	}
	t.checkCompletion(set)
}

// checkCompletion completes the thread when no flow is active and no cleanup
// is outstanding.
func (t *ThreadState) checkCompletion(set *asset.ActivateSet) {
	if t.flows.active > 0 || t.cleanupOutstanding > 0 || t.escalating || t.complete.Load() {
		return
	}
	t.complete.Store(true)
	t.logger.Debug("Thread complete.", "failed", t.failure != nil)

	unloadAll(t.process.ctx, t.logger, t.objects)
	t.joiners.ActivateAll(set, true)

	if cb := t.callback; cb != nil {
		failure := t.failure
		set.Add(cb.parent.newActivityJobOn(cb.flow, func(ctx context.Context) error {
			return cb.fn(ctx, failure)
		}))
	}
	set.Defer(func() { t.process.threadComplete(t) })
}

// setFailure records err unless a failure is already recorded.
func (t *ThreadState) setFailure(err error) {
	if t.failure != nil {
		t.logger.Debug("Later failure not recorded over the first.", "error", err)
		return
	}
	t.failure = err
}

// escalationStart holds back flow-boundary work until escalationComplete.
func (t *ThreadState) escalationStart() {
	t.escalating = true
}

// escalationComplete clears the guard and runs any flow-boundary work that was
// suppressed during the search.
func (t *ThreadState) escalationComplete(set *asset.ActivateSet) {
	t.escalating = false
	if !t.completionDeferred {
		return
	}
	t.completionDeferred = false
	t.deactivateGovernance(set)
	t.checkCompletion(set)
}

// waitOnFlow registers w to be activated when t completes. It returns false
// when there is nothing to wait for: a thread never waits on itself, and a
// completed thread releases immediately. A timed-out wait fails w through the
// asset checker. Only the joiner monitor's lock is taken on t.
func (t *ThreadState) waitOnFlow(from *ThreadState, w asset.Waiter, timeout time.Duration) bool {
	if from == t {
		return false
	}
	return t.joiners.Wait(w, timeout)
}

// threadObject returns the thread-scoped container for a managed object.
func (t *ThreadState) threadObject(index int) *moContainer {
	if t.objects == nil {
		t.objects = make(map[int]*moContainer)
	}
	c, ok := t.objects[index]
	if !ok {
		c = newMOContainer(t.office, t.office.meta.ManagedObjects[index], t.process)
		t.objects[index] = c
	}
	return c
}

// ThreadFuture refers to a spawned thread.
type ThreadFuture struct {
	thread *ThreadState
}

// IsComplete reports whether the spawned thread has finished.
func (f *ThreadFuture) IsComplete() bool { return f.thread.IsComplete() }
