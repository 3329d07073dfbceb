package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/officegrid/internal/asset"
	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"github.com/specialistvlad/officegrid/internal/metrics"
	"github.com/specialistvlad/officegrid/internal/team"
	"github.com/specialistvlad/officegrid/internal/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const implicitTeam = "passive"

// Office runs processes over a fixed set of functions, managed objects and
// teams.
type Office struct {
	meta            *OfficeMetaData
	functions       map[string]*Function
	teams           map[string]team.Team
	defaultTeamName string
	policy          GovernancePolicy
	checker         *asset.Checker
	inputs          []InputSource

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu        sync.Mutex
	ctx       context.Context
	running   bool
	processes map[uuid.UUID]*processState
}

// Option configures an Office.
type Option func(*Office)

// WithLogger sets the office logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Office) { o.logger = logger }
}

// WithMetrics records runtime metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Office) { o.metrics = m }
}

// WithTracer records a span per function run.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Office) { o.tracer = tracer }
}

// NewOffice validates meta and builds an office over teams. The office takes
// ownership of the teams' lifecycle.
func NewOffice(meta *OfficeMetaData, teams map[string]team.Team, opts ...Option) (*Office, error) {
	o := &Office{
		meta:      meta,
		functions: make(map[string]*Function, len(meta.Functions)),
		teams:     make(map[string]team.Team, len(teams)+1),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracing.InstrumentationName),
		processes: make(map[uuid.UUID]*processState),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("office", meta.Name)
	o.ctx = ctxlog.WithLogger(context.Background(), o.logger)

	for name, tm := range teams {
		o.teams[name] = tm
	}
	o.defaultTeamName = meta.DefaultTeam
	if o.defaultTeamName == "" {
		o.defaultTeamName = implicitTeam
		if _, ok := o.teams[implicitTeam]; !ok {
			o.teams[implicitTeam] = team.NewPassive(implicitTeam, o.logger)
		}
	}
	if _, ok := o.teams[o.defaultTeamName]; !ok {
		return nil, fmt.Errorf("default team: %w: '%s'", ErrUnknownTeam, o.defaultTeamName)
	}

	o.policy = meta.GovernancePolicy
	if o.policy == GovernanceInherit {
		o.policy = GovernanceEnforce
	}

	if err := o.index(); err != nil {
		return nil, err
	}

	o.checker = asset.NewChecker(meta.Clock, meta.CheckInterval)
	o.checker.OnExpire(func(monitor string) {
		kind, _, _ := strings.Cut(monitor, ":")
		o.metrics.AssetTimeout(kind)
	})
	return o, nil
}

// index checks every cross reference in the meta-data.
func (o *Office) index() error {
	meta := o.meta
	var errs []error
	for _, fn := range meta.Functions {
		if fn == nil || fn.Name == "" {
			errs = append(errs, errors.New("function without a name"))
			continue
		}
		if _, dup := o.functions[fn.Name]; dup {
			errs = append(errs, fmt.Errorf("function '%s' declared more than once", fn.Name))
			continue
		}
		o.functions[fn.Name] = fn
	}

	for i, mo := range meta.ManagedObjects {
		if !validSource(mo.Source) {
			errs = append(errs, fmt.Errorf("managed object '%s': source %T implements no sourcing interface", mo.Name, mo.Source))
		}
		if in, ok := mo.Source.(InputSource); ok && !o.hasInput(in) {
			o.inputs = append(o.inputs, in)
		}
		for j := 0; j < i; j++ {
			if meta.ManagedObjects[j].Name == mo.Name {
				errs = append(errs, fmt.Errorf("managed object '%s' declared more than once", mo.Name))
			}
		}
	}
	for _, g := range meta.Governance {
		if g.Factory == nil {
			errs = append(errs, fmt.Errorf("governance '%s' has no factory", g.Name))
		}
	}
	for _, a := range meta.Administrators {
		if a.Duty == nil {
			errs = append(errs, fmt.Errorf("administrator '%s' has no duty", a.Name))
		}
	}

	errs = append(errs, o.checkProcedure("office", meta.Escalations)...)
	for _, fn := range o.functions {
		if fn.Team != "" {
			if _, ok := o.teams[fn.Team]; !ok {
				errs = append(errs, fmt.Errorf("function '%s': %w: '%s'", fn.Name, ErrUnknownTeam, fn.Team))
			}
		}
		if fn.Next != "" {
			if _, ok := o.functions[fn.Next]; !ok {
				errs = append(errs, fmt.Errorf("function '%s' next: %w: '%s'", fn.Name, ErrUnknownFunction, fn.Next))
			}
		}
		errs = append(errs, checkIndexes(fn.Name, "managed object", fn.ManagedObjects, len(meta.ManagedObjects))...)
		errs = append(errs, checkIndexes(fn.Name, "governance", fn.Governance, len(meta.Governance))...)
		errs = append(errs, checkIndexes(fn.Name, "administrator", fn.Administrators, len(meta.Administrators))...)
		errs = append(errs, o.checkProcedure("function '"+fn.Name+"'", fn.Escalations)...)
	}
	return errors.Join(errs...)
}

func (o *Office) hasInput(in InputSource) bool {
	for _, existing := range o.inputs {
		if existing == in {
			return true
		}
	}
	return false
}

func (o *Office) checkProcedure(owner string, p EscalationProcedure) []error {
	var errs []error
	for _, esc := range p {
		if esc.Match == nil {
			errs = append(errs, fmt.Errorf("%s escalation to '%s' has no matcher", owner, esc.Handler))
		}
		if _, ok := o.functions[esc.Handler]; !ok {
			errs = append(errs, fmt.Errorf("%s escalation handler: %w: '%s'", owner, ErrUnknownFunction, esc.Handler))
		}
	}
	return errs
}

func checkIndexes(fn, kind string, indexes []int, n int) []error {
	var errs []error
	for _, idx := range indexes {
		if idx < 0 || idx >= n {
			errs = append(errs, fmt.Errorf("function '%s': %s index %d out of range", fn, kind, idx))
		}
	}
	return errs
}

// Name returns the office name.
func (o *Office) Name() string { return o.meta.Name }

// Team returns the named team.
func (o *Office) Team(name string) (team.Team, bool) {
	tm, ok := o.teams[name]
	return tm, ok
}

// Checker returns the asset checker, for hosts driving time by hand.
func (o *Office) Checker() *asset.Checker { return o.checker }

// Start starts the teams, the asset checker and the input sources.
func (o *Office) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.ctx = ctxlog.WithLogger(ctx, o.logger)
	o.running = true
	runCtx := o.ctx
	o.mu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)
	for name, tm := range o.teams {
		g.Go(func() error {
			if err := tm.StartWorking(gctx); err != nil {
				return fmt.Errorf("team '%s' failed to start: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.setStopped()
		return err
	}
	o.checker.Start(runCtx)

	g, gctx = errgroup.WithContext(runCtx)
	for _, in := range o.inputs {
		g.Go(func() error {
			if err := in.Start(gctx, o); err != nil {
				return fmt.Errorf("input source %T failed to start: %w", in, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.Stop(runCtx)
		return err
	}
	o.logger.Info("Office started.", "teams", len(o.teams), "functions", len(o.functions))
	return nil
}

func (o *Office) setStopped() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

// Stop stops accepting processes, waits for running ones until ctx ends and
// then stops the input sources, teams and checker.
func (o *Office) Stop(ctx context.Context) error {
	o.mu.Lock()
	o.running = false
	pending := make([]*processState, 0, len(o.processes))
	for _, p := range o.processes {
		pending = append(pending, p)
	}
	o.mu.Unlock()

	var errs []error
	for _, in := range o.inputs {
		if err := in.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("input source %T failed to stop: %w", in, err))
		}
	}

	for _, p := range pending {
		select {
		case <-p.done:
		case <-ctx.Done():
			o.logger.Warn("Office stopping with processes still running.", "process", p.id.String())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, tm := range o.teams {
		g.Go(func() error {
			if err := tm.StopWorking(gctx); err != nil {
				return fmt.Errorf("team '%s' failed to stop: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	o.checker.Stop()
	o.logger.Info("Office stopped.")
	return errors.Join(errs...)
}

// InvokeProcess starts a process at function. managedObject fills the input
// slots of the process. With delay > 0 the first job is activated after the
// delay. callback, if not nil, receives the process outcome.
func (o *Office) InvokeProcess(ctx context.Context, function string, parameter, managedObject any, delay time.Duration, callback FlowCallback) (*ProcessHandle, error) {
	fn, ok := o.functions[function]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownFunction, function)
	}

	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil, ErrOfficeStopped
	}
	p := o.newProcess(managedObject, callback)
	o.processes[p.id] = p
	o.mu.Unlock()
	o.metrics.ProcessStarted()

	t := p.newThread(fn)
	t.mu.Lock()
	first := t.newJob(t.createJobSequence(), fn, parameter)
	t.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Process invoked.", "process", p.id.String(), "function", function, "delay", delay)
	if delay > 0 {
		time.AfterFunc(delay, func() { o.activate(first) })
	} else {
		o.activate(first)
	}
	return &ProcessHandle{process: p}, nil
}

func (o *Office) processComplete(p *processState, failure error) {
	o.mu.Lock()
	delete(o.processes, p.id)
	o.mu.Unlock()
	o.metrics.ProcessCompleted(failure)
}

// activate hands j to its team. A team that refuses the job has it run inline.
func (o *Office) activate(j *jobNode) {
	name := j.teamName()
	if err := o.teams[name].AssignJob(j); err != nil {
		o.logger.Warn("Team refused job, running inline.", "team", name, "function", j.name(), "error", err)
		o.run(j)
	}
}

// run executes j and any same-team continuation under their thread locks.
// Activations collected during a job happen after its lock is released.
func (o *Office) run(j *jobNode) {
	for j != nil {
		var set asset.ActivateSet
		j = o.runLocked(j, &set)
		set.Activate()
	}
}

func (o *Office) runLocked(j *jobNode, set *asset.ActivateSet) *jobNode {
	t := j.thread
	t.mu.Lock()
	defer t.mu.Unlock()
	return j.execute(set)
}
