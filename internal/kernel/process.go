package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/officegrid/internal/asset"
	"github.com/specialistvlad/officegrid/internal/ctxlog"
)

// processState is one invocation. It completes when its last thread does.
// mu is a leaf below the thread locks.
type processState struct {
	id       uuid.UUID
	office   *Office
	ctx      context.Context
	logger   *slog.Logger
	input    any
	callback FlowCallback
	done     chan struct{}

	mu         sync.Mutex
	nextThread uint64
	threads    int
	objects    map[int]*moContainer
	failure    error
}

func (o *Office) newProcess(input any, callback FlowCallback) *processState {
	id := uuid.New()
	ctx, logger := ctxlog.With(o.ctx, "process", id.String())
	return &processState{
		id:       id,
		office:   o,
		ctx:      ctx,
		logger:   logger,
		input:    input,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// newThread adds a thread whose policy comes from its first function.
func (p *processState) newThread(first *Function) *ThreadState {
	p.mu.Lock()
	p.nextThread++
	id := p.nextThread
	p.threads++
	p.mu.Unlock()

	policy := first.ThreadPolicy
	if policy == GovernanceInherit {
		policy = p.office.policy
	}
	return &ThreadState{
		id:      id,
		process: p,
		office:  p.office,
		policy:  policy,
		logger:  p.logger.With("thread", id),
		joiners: asset.NewMonitor(fmt.Sprintf("thread:%s/%d", p.id, id), p.office.checker),
	}
}

// processObject returns the process-scoped container for a managed object.
func (p *processState) processObject(index int) *moContainer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.objects == nil {
		p.objects = make(map[int]*moContainer)
	}
	c, ok := p.objects[index]
	if !ok {
		c = newMOContainer(p.office, p.office.meta.ManagedObjects[index], p)
		p.objects[index] = c
	}
	return c
}

// recordFailure keeps the first failure handed to the process.
func (p *processState) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failure == nil {
		p.failure = err
	}
}

// threadComplete runs with no locks held. The last thread unloads the process
// objects and reports the outcome.
func (p *processState) threadComplete(t *ThreadState) {
	p.mu.Lock()
	p.threads--
	last := p.threads == 0
	objects := p.objects
	failure := p.failure
	p.mu.Unlock()
	if !last {
		return
	}

	unloadAll(p.ctx, p.logger, objects)
	if p.callback != nil {
		if err := runFlowCallback(p.callback, failure); err != nil {
			p.office.floorEscalation(p.ctx, err)
		}
	}
	p.logger.Debug("Process complete.", "failed", failure != nil)
	p.office.processComplete(p, failure)
	close(p.done)
}

func runFlowCallback(cb FlowCallback, failure error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion callback panicked: %v", r)
		}
	}()
	return cb(failure)
}

// ProcessHandle lets the invoker observe a process.
type ProcessHandle struct {
	process *processState
}

// ID returns the process id.
func (h *ProcessHandle) ID() string { return h.process.id.String() }

// Done is closed once the process has completed and its callback has run.
func (h *ProcessHandle) Done() <-chan struct{} { return h.process.done }

// Err returns the unhandled failure of a completed process, or nil.
func (h *ProcessHandle) Err() error {
	select {
	case <-h.process.done:
	default:
		return nil
	}
	h.process.mu.Lock()
	defer h.process.mu.Unlock()
	return h.process.failure
}
