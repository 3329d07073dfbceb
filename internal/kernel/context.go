package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/specialistvlad/officegrid/internal/asset"
	"github.com/specialistvlad/officegrid/internal/ctxlog"
)

type flowRequest struct {
	fn        *Function
	parameter any
}

type joinRequest struct {
	target  *ThreadState
	timeout time.Duration
	token   any
}

// FunctionContext is handed to a function body. It is only valid during the
// body's call and must not be retained.
type FunctionContext struct {
	ctx context.Context
	job *jobNode
	set *asset.ActivateSet

	sequential []flowRequest
	parallel   []flowRequest
	joins      []joinRequest
}

func newFunctionContext(ctx context.Context, j *jobNode, set *asset.ActivateSet) *FunctionContext {
	ctx, _ = ctxlog.With(ctx, "thread", j.thread.id, "function", j.fn.Name)
	return &FunctionContext{ctx: ctx, job: j, set: set}
}

// Context returns the process context, carrying the logger and job span.
func (fc *FunctionContext) Context() context.Context { return fc.ctx }

// Logger returns the logger scoped to this job.
func (fc *FunctionContext) Logger() *slog.Logger { return ctxlog.FromContext(fc.ctx) }

// Parameter returns the value the function was invoked with.
func (fc *FunctionContext) Parameter() any { return fc.job.parameter }

// ProcessID returns the id of the owning process.
func (fc *FunctionContext) ProcessID() string { return fc.job.thread.process.id.String() }

// Object returns the managed object at position i of the function's
// ManagedObjects.
func (fc *FunctionContext) Object(i int) any {
	if i < 0 || i >= len(fc.job.objects) {
		return nil
	}
	return fc.job.objects[i].get()
}

// ObjectByName returns the function's managed object with the given name.
func (fc *FunctionContext) ObjectByName(name string) (any, bool) {
	for _, c := range fc.job.objects {
		if c.meta.Name == name {
			return c.get(), true
		}
	}
	return nil, false
}

func (fc *FunctionContext) lookup(name string) (*Function, error) {
	fn, ok := fc.job.thread.office.functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownFunction, name)
	}
	return fn, nil
}

// DoFlow runs function after this body returns, in the same flow and before
// Next. Calls run in the order made.
func (fc *FunctionContext) DoFlow(function string, parameter any) error {
	fn, err := fc.lookup(function)
	if err != nil {
		return err
	}
	fc.sequential = append(fc.sequential, flowRequest{fn: fn, parameter: parameter})
	return nil
}

// Parallel runs function on a new flow of the same thread. The rest of this
// flow waits until that flow ends.
func (fc *FunctionContext) Parallel(function string, parameter any) error {
	fn, err := fc.lookup(function)
	if err != nil {
		return err
	}
	fc.parallel = append(fc.parallel, flowRequest{fn: fn, parameter: parameter})
	return nil
}

// Spawn starts function on a new thread of the same process. The callback, if
// any, runs on this thread once the new thread completes, receiving its
// unhandled failure.
func (fc *FunctionContext) Spawn(function string, parameter any, callback SpawnCallback) (*ThreadFuture, error) {
	fn, err := fc.lookup(function)
	if err != nil {
		return nil, err
	}
	parent := fc.job.thread
	child := parent.process.newThread(fn)
	if callback != nil {
		child.callback = &spawnCallback{parent: parent, flow: parent.createJobSequence(), fn: callback}
	}
	child.mu.Lock()
	first := child.newJob(child.createJobSequence(), fn, parameter)
	child.mu.Unlock()
	fc.set.Add(first)
	parent.logger.Debug("Thread spawned.", "child", child.id, "function", fn.Name)
	return &ThreadFuture{thread: child}, nil
}

// Join holds the rest of this flow until the future's thread completes. When
// timeout passes first, the flow fails with a *JoinTimeoutError carrying token.
func (fc *FunctionContext) Join(future *ThreadFuture, timeout time.Duration, token any) {
	if future == nil {
		return
	}
	fc.joins = append(fc.joins, joinRequest{target: future.thread, timeout: timeout, token: token})
}
