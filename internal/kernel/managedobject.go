package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/officegrid/internal/asset"
)

type moState int

const (
	moUnloaded moState = iota
	moSourcing
	moLoaded
	moFailed
)

func (s moState) String() string {
	return [...]string{"unloaded", "sourcing", "loaded", "failed"}[s]
}

// moContainer holds the single instance of one managed object for one scope
// binding. Its mutex is a leaf.
type moContainer struct {
	office  *Office
	meta    *ManagedObject
	process *processState

	mu      sync.Mutex
	state   moState
	object  any
	err     error
	discard bool
	monitor *asset.Monitor
}

func newMOContainer(o *Office, meta *ManagedObject, p *processState) *moContainer {
	return &moContainer{
		office:  o,
		meta:    meta,
		process: p,
		monitor: asset.NewMonitor("managed_object:"+meta.Name, o.checker),
	}
}

// get returns the loaded object, or nil.
func (c *moContainer) get() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != moLoaded {
		return nil
	}
	return c.object
}

// load makes the object available to j. It returns ready=false when j has been
// registered to wait and will be reactivated once sourcing ends. A non-nil
// error means sourcing failed and j must not run.
func (c *moContainer) load(j *jobNode, set *asset.ActivateSet) (bool, error) {
	c.mu.Lock()
	switch c.state {
	case moLoaded:
		c.mu.Unlock()
		return true, nil
	case moFailed:
		err := c.err
		c.mu.Unlock()
		return true, err
	case moSourcing:
		c.monitor.Wait(moWaiter{job: j, container: c}, c.meta.Timeout)
		c.mu.Unlock()
		return false, nil
	}
	c.state = moSourcing
	c.discard = false
	c.mu.Unlock()

	ctx := c.process.ctx
	switch src := c.meta.Source.(type) {
	case SyncSource:
		obj, err := c.sourceSync(ctx, src)
		if obj == nil && err == nil {
			err = &SourceError{ManagedObject: c.meta.Name, Source: src}
		} else if err != nil {
			err = &SourceError{ManagedObject: c.meta.Name, Source: src, Err: err}
		}
		c.complete(obj, err, set)
		return true, err
	case AsyncSource:
		c.mu.Lock()
		c.monitor.Wait(moWaiter{job: j, container: c}, c.meta.Timeout)
		c.mu.Unlock()
		user := &asyncUser{container: c, source: src, set: set}
		c.sourceAsync(ctx, src, user)
		user.detach()
		return false, nil
	default:
		obj := c.process.input
		var err error
		if obj == nil {
			err = &SourceError{ManagedObject: c.meta.Name, Source: src}
		}
		c.complete(obj, err, set)
		return true, err
	}
}

func (c *moContainer) sourceSync(ctx context.Context, src SyncSource) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return src.Source(ctx)
}

func (c *moContainer) sourceAsync(ctx context.Context, src AsyncSource, user *asyncUser) {
	defer func() {
		if r := recover(); r != nil {
			user.SetFailure(fmt.Errorf("source panicked: %v", r))
		}
	}()
	src.SourceAsync(ctx, user)
}

// complete records the sourcing outcome and queues every waiter.
func (c *moContainer) complete(obj any, err error, set *asset.ActivateSet) {
	c.mu.Lock()
	if c.state != moSourcing {
		c.mu.Unlock()
		return
	}
	if c.discard {
		c.state = moUnloaded
		c.discard = false
		c.mu.Unlock()
		if err == nil {
			c.recycle(c.process.ctx, obj)
		}
		return
	}
	if err != nil {
		c.state = moFailed
		c.err = err
		c.monitor.FailAll(set, err)
	} else {
		c.state = moLoaded
		c.object = obj
		c.monitor.ActivateAll(set, false)
	}
	c.mu.Unlock()
	c.office.metrics.ManagedObjectSourced(c.meta.Name, err)
}

// unload returns a loaded object to its source. Recycle failures are logged
// and never returned.
func (c *moContainer) unload(ctx context.Context, logger *slog.Logger) {
	c.mu.Lock()
	switch c.state {
	case moSourcing:
		c.discard = true
		c.mu.Unlock()
		return
	case moLoaded:
	default:
		c.mu.Unlock()
		return
	}
	obj := c.object
	c.object = nil
	c.state = moUnloaded
	c.mu.Unlock()

	if err := c.recycle(ctx, obj); err != nil {
		logger.Error("Failed to unload managed object.", "managed_object", c.meta.Name, "error", err)
	}
}

func (c *moContainer) recycle(ctx context.Context, obj any) (err error) {
	r, ok := c.meta.Source.(Recycler)
	if !ok {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("recycle panicked: %v", rec)
		}
	}()
	return r.Recycle(ctx, obj)
}

// unloadAll unloads every container, carrying on past failures.
func unloadAll(ctx context.Context, logger *slog.Logger, containers map[int]*moContainer) {
	for _, c := range containers {
		c.unload(ctx, logger)
	}
}

// moWaiter resumes a job parked on a sourcing container.
type moWaiter struct {
	job       *jobNode
	container *moContainer
}

func (w moWaiter) Activate() {
	w.job.Activate()
}

func (w moWaiter) Fail(err error) {
	var timeout *asset.TimeoutError
	if errors.As(err, &timeout) {
		err = &SourceTimeoutError{ManagedObject: w.container.meta.Name, Timeout: w.container.meta.Timeout, Err: err}
	}
	w.job.Fail(err)
}

// asyncUser delivers an asynchronous outcome. While the source's SourceAsync
// call is still on the stack, activations go into the caller's set so the
// waiting job is not resumed under its own thread lock.
type asyncUser struct {
	container *moContainer
	source    AsyncSource

	mu   sync.Mutex
	set  *asset.ActivateSet
	done bool
}

func (u *asyncUser) SetManagedObject(obj any) {
	var err error
	if obj == nil {
		err = &SourceError{ManagedObject: u.container.meta.Name, Source: u.source}
	}
	u.finish(obj, err)
}

func (u *asyncUser) SetFailure(err error) {
	if err == nil {
		err = errors.New("source reported failure without a cause")
	}
	u.finish(nil, &SourceError{ManagedObject: u.container.meta.Name, Source: u.source, Err: err})
}

func (u *asyncUser) finish(obj any, err error) {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return
	}
	u.done = true
	if u.set != nil {
		u.container.complete(obj, err, u.set)
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()

	var set asset.ActivateSet
	u.container.complete(obj, err, &set)
	set.Activate()
}

func (u *asyncUser) detach() {
	u.mu.Lock()
	u.set = nil
	u.mu.Unlock()
}
