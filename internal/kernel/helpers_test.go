package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/officegrid/internal/team"
	"github.com/specialistvlad/officegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// startOffice builds and starts an office, stopping it on cleanup.
func startOffice(t *testing.T, meta *OfficeMetaData, teams map[string]team.Team) (*Office, *testutil.SafeBuffer) {
	t.Helper()
	logger, logs := testutil.NewLogger(t)
	o, err := NewOffice(meta, teams, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Stop(ctx)
	})
	return o, logs
}

// outcome collects the result delivered to a process callback.
type outcome struct {
	ch chan error
}

func newOutcome() *outcome { return &outcome{ch: make(chan error, 1)} }

func (c *outcome) callback(err error) error {
	c.ch <- err
	return nil
}

func (c *outcome) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("process did not complete")
		return nil
	}
}

// invoke runs function to completion and returns what the callback received.
func invoke(t *testing.T, o *Office, function string, parameter any) error {
	t.Helper()
	out := newOutcome()
	_, err := o.InvokeProcess(context.Background(), function, parameter, nil, 0, out.callback)
	require.NoError(t, err)
	return out.wait(t)
}

// trail records names in the order things happened.
type trail struct {
	mu    sync.Mutex
	steps []string
}

func (tr *trail) add(step string) {
	tr.mu.Lock()
	tr.steps = append(tr.steps, step)
	tr.mu.Unlock()
}

func (tr *trail) get() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.steps...)
}

// record is a body that appends its function name and returns its parameter.
func (tr *trail) record(name string) FunctionBody {
	return func(fc *FunctionContext) (any, error) {
		tr.add(name)
		return fc.Parameter(), nil
	}
}

// syncSource counts sourcing and recycling calls.
type syncSource struct {
	mu         sync.Mutex
	calls      int
	obj        any
	err        error
	recycled   []any
	recycleErr error
	extensions []string
}

func (s *syncSource) Source(context.Context) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.obj, s.err
}

func (s *syncSource) Recycle(_ context.Context, obj any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recycled = append(s.recycled, obj)
	return s.recycleErr
}

func (s *syncSource) Extensions() []string { return s.extensions }

func (s *syncSource) sourced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// nilSource returns no object and no error.
type nilSource struct{}

func (nilSource) Source(context.Context) (any, error) { return nil, nil }

// asyncSource keeps every user so the test decides when sourcing ends. With
// immediate set it completes from within SourceAsync.
type asyncSource struct {
	mu        sync.Mutex
	users     []AsyncUser
	immediate any
}

func (s *asyncSource) SourceAsync(_ context.Context, user AsyncUser) {
	s.mu.Lock()
	s.users = append(s.users, user)
	immediate := s.immediate
	s.mu.Unlock()
	if immediate != nil {
		user.SetManagedObject(immediate)
	}
}

func (s *asyncSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *asyncSource) user(i int) AsyncUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[i]
}

// recordingGovernor counts each governance call.
type recordingGovernor struct {
	mu        sync.Mutex
	governed  []any
	enforced  int
	disregard int
}

func (g *recordingGovernor) Govern(_ context.Context, ext any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.governed = append(g.governed, ext)
	return nil
}

func (g *recordingGovernor) Enforce(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enforced++
	return nil
}

func (g *recordingGovernor) Disregard(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disregard++
	return nil
}

func (g *recordingGovernor) counts() (enforced, disregarded int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enforced, g.disregard
}
