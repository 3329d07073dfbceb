package kernel

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/specialistvlad/officegrid/internal/asset"
	"github.com/specialistvlad/officegrid/internal/tracing"
)

// jobNode is one activation: a function bound to a parameter and the flow it
// runs in. A job without a function is either an activity (governance cleanup,
// spawn callback delivery) or a continuation placeholder that only passes
// control on to next.
type jobNode struct {
	thread    *ThreadState
	flow      *jobSequence
	fn        *Function
	parameter any
	level     EscalationLevel
	next      *jobNode
	// escalations is the job-local procedure. For placeholders it is inherited
	// from the job that created them.
	escalations EscalationProcedure
	activity    func(ctx context.Context) error
	cleanup     bool

	// failure is set by Fail before the job is reactivated.
	failure error
	// objects are the resolved containers for fn.ManagedObjects.
	objects []*moContainer
	// local holds function-scoped containers created for this job.
	local []*moContainer
}

func (t *ThreadState) newJob(flow *jobSequence, fn *Function, parameter any) *jobNode {
	return &jobNode{thread: t, flow: flow, fn: fn, parameter: parameter, escalations: fn.Escalations}
}

// follow creates a job that carries on j's work at j's escalation level. A
// handler's own follow-up jobs thereby resume any search above the procedure
// that chose the handler.
func (j *jobNode) follow(flow *jobSequence, fn *Function, parameter any) *jobNode {
	n := j.thread.newJob(flow, fn, parameter)
	n.level = j.level
	return n
}

// newActivityJob creates a governance cleanup job outside any flow.
func (t *ThreadState) newActivityJob(activity func(ctx context.Context) error) *jobNode {
	return &jobNode{thread: t, activity: activity, cleanup: true}
}

// newActivityJobOn creates an activity job that ends flow when done.
func (t *ThreadState) newActivityJobOn(flow *jobSequence, activity func(ctx context.Context) error) *jobNode {
	return &jobNode{thread: t, flow: flow, activity: activity}
}

func (j *jobNode) name() string {
	switch {
	case j.fn != nil:
		return j.fn.Name
	case j.activity != nil:
		return "<activity>"
	}
	return "<continuation>"
}

func (j *jobNode) teamName() string {
	if j.fn != nil && j.fn.Team != "" {
		return j.fn.Team
	}
	return j.thread.office.defaultTeamName
}

// Activate implements asset.Waiter.
func (j *jobNode) Activate() {
	j.thread.office.activate(j)
}

// Fail implements asset.Waiter. The failure is escalated when the job runs.
func (j *jobNode) Fail(err error) {
	j.failure = err
	j.thread.office.activate(j)
}

// Run implements team.Job.
func (j *jobNode) Run() {
	j.thread.office.run(j)
}

// end finishes the job's flow or cleanup obligation.
func (j *jobNode) end(set *asset.ActivateSet) {
	t := j.thread
	if j.cleanup {
		t.cleanupComplete(set)
		return
	}
	if j.flow != nil {
		t.jobSequenceComplete(j.flow, set)
	}
}

// execute runs the job under the thread lock. Jobs to activate are added to
// set. A returned job should run next on the same goroutine.
func (j *jobNode) execute(set *asset.ActivateSet) *jobNode {
	t := j.thread
	ctx := t.process.ctx

	if err := j.failure; err != nil {
		j.failure = nil
		j.unloadLocal(ctx)
		t.escalate(j, err, set)
		return nil
	}

	if j.activity != nil {
		if err := j.runActivity(ctx); err != nil {
			t.escalate(j, err, set)
			return nil
		}
		j.end(set)
		return nil
	}

	if j.fn == nil {
		return j.proceed(j.next, set)
	}

	for _, idx := range j.fn.Governance {
		t.activateGovernance(idx)
	}

	ready, err := j.loadObjects(set)
	if err != nil {
		j.unloadLocal(ctx)
		t.escalate(j, err, set)
		return nil
	}
	if !ready {
		return nil
	}

	if err := j.govern(ctx); err != nil {
		j.unloadLocal(ctx)
		t.escalate(j, err, set)
		return nil
	}
	if err := j.administer(ctx); err != nil {
		j.unloadLocal(ctx)
		t.escalate(j, err, set)
		return nil
	}

	fc := newFunctionContext(ctx, j, set)
	result, err := j.invoke(fc)
	j.unloadLocal(ctx)
	if err != nil {
		t.escalate(j, err, set)
		return nil
	}
	return j.continueWith(fc, result, set)
}

// loadObjects resolves and loads every managed object the function uses.
func (j *jobNode) loadObjects(set *asset.ActivateSet) (bool, error) {
	t := j.thread
	if j.objects == nil && len(j.fn.ManagedObjects) > 0 {
		j.objects = make([]*moContainer, len(j.fn.ManagedObjects))
		for i, idx := range j.fn.ManagedObjects {
			meta := t.office.meta.ManagedObjects[idx]
			switch meta.Scope {
			case ScopeThread:
				j.objects[i] = t.threadObject(idx)
			case ScopeProcess:
				j.objects[i] = t.process.processObject(idx)
			default:
				c := newMOContainer(t.office, meta, t.process)
				j.local = append(j.local, c)
				j.objects[i] = c
			}
		}
	}
	for _, c := range j.objects {
		ready, err := c.load(j, set)
		if err != nil {
			return false, err
		}
		if !ready {
			t.logger.Debug("Job waiting on managed object.", "function", j.fn.Name, "managed_object", c.meta.Name)
			return false, nil
		}
	}
	return true, nil
}

func (j *jobNode) unloadLocal(ctx context.Context) {
	for _, c := range j.local {
		c.unload(ctx, j.thread.logger)
	}
}

// govern registers the function's managed objects with each governance the
// function activates, where the object provides the governance's extension.
func (j *jobNode) govern(ctx context.Context) error {
	t := j.thread
	for _, idx := range j.fn.Governance {
		g := t.activateGovernance(idx)
		for _, c := range j.objects {
			ext, ok := extensionOf(c.meta.Source, c.get(), g.meta.Extension)
			if !ok {
				continue
			}
			if err := g.govern(ctx, c, ext); err != nil {
				return err
			}
		}
	}
	return nil
}

func (j *jobNode) administer(ctx context.Context) error {
	t := j.thread
	for _, idx := range j.fn.Administrators {
		a := t.administrator(idx)
		var extensions []any
		for _, c := range j.objects {
			if ext, ok := extensionOf(c.meta.Source, c.get(), a.meta.Extension); ok {
				extensions = append(extensions, ext)
			}
		}
		if err := a.administer(ctx, extensions); err != nil {
			return err
		}
	}
	return nil
}

// invoke runs the body, converting a panic into a *PanicError.
func (j *jobNode) invoke(fc *FunctionContext) (result any, err error) {
	o := j.thread.office
	ctx, span := tracing.StartJob(fc.ctx, o.tracer, j.fn.Name, j.teamName(), j.thread.process.id.String())
	fc.ctx = ctx
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Function: j.fn.Name, Value: r, Stack: debug.Stack()}
		}
		tracing.EndJob(span, err)
		o.metrics.JobExecuted(j.teamName(), err)
	}()
	if j.fn.Body == nil {
		return j.parameter, nil
	}
	return j.fn.Body(fc)
}

func (j *jobNode) runActivity(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activity panicked: %v", r)
		}
	}()
	return j.activity(ctx)
}

// continueWith builds the rest of the flow after a successful body: the
// sequential flows in request order, then Next with the body's result, then
// whatever followed this job. Parallel flows and joins hold the rest back
// until they all arrive.
func (j *jobNode) continueWith(fc *FunctionContext, result any, set *asset.ActivateSet) *jobNode {
	t := j.thread
	o := t.office

	var head, tail *jobNode
	link := func(n *jobNode) {
		if head == nil {
			head = n
		} else {
			tail.next = n
		}
		tail = n
	}
	for _, req := range fc.sequential {
		link(j.follow(j.flow, req.fn, req.parameter))
	}
	if j.fn.Next != "" {
		link(j.follow(j.flow, o.functions[j.fn.Next], result))
	}
	if tail != nil {
		tail.next = j.next
	} else {
		head = j.next
	}

	pending := len(fc.parallel) + len(fc.joins)
	if pending == 0 {
		return j.proceed(head, set)
	}

	cont := &jobNode{thread: t, flow: j.flow, next: head, level: j.level, escalations: j.escalations}
	jp := newJoinPoint(cont, pending)
	for _, req := range fc.parallel {
		flow := t.createJobSequence()
		flow.barrier = jp
		set.Add(j.follow(flow, req.fn, req.parameter))
	}
	for _, req := range fc.joins {
		w := joinWaiter{point: jp, token: req.token, timeout: req.timeout}
		if !req.target.waitOnFlow(t, w, req.timeout) {
			jp.arrive(nil, set)
		}
	}
	return nil
}

// proceed hands control to next within the same flow, or ends the flow.
func (j *jobNode) proceed(next *jobNode, set *asset.ActivateSet) *jobNode {
	if next == nil {
		j.thread.jobSequenceComplete(j.flow, set)
		return nil
	}
	if next.teamName() == j.teamName() {
		return next
	}
	set.Add(next)
	return nil
}
