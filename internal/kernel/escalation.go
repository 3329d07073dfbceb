package kernel

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/specialistvlad/officegrid/internal/asset"
)

// EscalationLevel records how far up a failure has been searched. A handler
// job carries the level of the procedure that chose it; if the handler fails,
// the search resumes above that level.
type EscalationLevel int

const (
	EscalationFlow EscalationLevel = iota
	EscalationThread
	EscalationOffice
	EscalationOfficeFloor
)

func (l EscalationLevel) String() string {
	switch l {
	case EscalationFlow:
		return "flow"
	case EscalationThread:
		return "thread"
	case EscalationOffice:
		return "office"
	case EscalationOfficeFloor:
		return "office_floor"
	}
	return "unknown"
}

// Metric labels for failures handed to a caller's callback.
const (
	escalatedToSpawnCallback   = "spawn_callback"
	escalatedToProcessCallback = "process_callback"
)

// Escalation maps failures accepted by Match to the function named Handler.
type Escalation struct {
	Match   Matcher
	Handler string
}

// EscalationProcedure is searched in order; the first match wins.
type EscalationProcedure []Escalation

// Find returns the first entry matching err.
func (p EscalationProcedure) Find(err error) (Escalation, bool) {
	for _, e := range p {
		if e.Match != nil && e.Match(err) {
			return e, true
		}
	}
	return Escalation{}, false
}

// escalate searches for a handler of err raised by j, then ends j. Called with
// the thread lock held. The search never blocks: a found handler is queued as
// a new job on a new flow carrying the failure as its parameter.
func (t *ThreadState) escalate(j *jobNode, err error, set *asset.ActivateSet) {
	o := t.office
	t.escalationStart()
	defer t.escalationComplete(set)

	if j.level > EscalationFlow {
		err = &EscalationError{Level: j.level, Err: err}
	}
	t.logger.Debug("Escalating failure.", "function", j.name(), "from", j.level, "error", err)

	if j.level < EscalationThread {
		if esc, ok := j.escalations.Find(err); ok {
			t.handleWith(esc, EscalationThread, err, set)
			j.end(set)
			return
		}
	}
	if j.level < EscalationOffice {
		if esc, ok := o.meta.Escalations.Find(err); ok {
			t.handleWith(esc, EscalationOffice, err, set)
			j.end(set)
			return
		}
	}

	t.setFailure(err)
	switch {
	case t.callback != nil:
		// delivered to the spawning thread on completion
		o.metrics.Escalation(escalatedToSpawnCallback)
	case t.process.callback != nil:
		o.metrics.Escalation(escalatedToProcessCallback)
		t.process.recordFailure(err)
	default:
		o.metrics.Escalation(EscalationOfficeFloor.String())
		t.process.recordFailure(err)
		ctx := t.process.ctx
		set.Defer(func() { o.floorEscalation(ctx, err) })
	}
	j.end(set)
}

// handleWith queues the handler job for err on a fresh flow.
func (t *ThreadState) handleWith(esc Escalation, level EscalationLevel, err error, set *asset.ActivateSet) {
	fn := t.office.functions[esc.Handler]
	t.office.metrics.Escalation(level.String())
	t.logger.Debug("Escalation handled.", "handler", fn.Name, "level", level)
	h := t.newJob(t.createJobSequence(), fn, err)
	h.level = level
	set.Add(h)
}

// floorEscalation is the last stop for a failure. A failing or missing floor
// handler ends in the log.
func (o *Office) floorEscalation(ctx context.Context, cause error) {
	handler := o.meta.FloorHandler
	if handler == nil {
		o.logger.Error("Unhandled escalation.", "error", cause)
		return
	}
	if err := runFloorHandler(ctx, handler, cause); err != nil {
		o.logger.Error("Office floor escalation handler failed.", "escalation", cause.Error(), "error", err)
	}
}

func runFloorHandler(ctx context.Context, handler EscalationHandler, cause error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("floor handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return handler(ctx, cause)
}
