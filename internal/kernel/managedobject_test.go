package kernel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/officegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestManagedObject_ProcessScopeSourcedOnce(t *testing.T) {
	// --- Arrange ---
	src := &syncSource{obj: "conn"}
	var seen []any
	body := func(fc *FunctionContext) (any, error) {
		seen = append(seen, fc.Object(0))
		return nil, nil
	}
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "db", Source: src, Scope: ScopeProcess}},
		Functions: []*Function{
			{Name: "main", ManagedObjects: []int{0}, Body: func(fc *FunctionContext) (any, error) {
				if _, err := fc.Spawn("other", nil, nil); err != nil {
					return nil, err
				}
				return body(fc)
			}, Next: "again"},
			{Name: "again", ManagedObjects: []int{0}, Body: body},
			{Name: "other", ManagedObjects: []int{0}, Body: body},
		},
	}
	o, _ := startOffice(t, meta, nil)

	// --- Act ---
	err := invoke(t, o, "main", nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []any{"conn", "conn", "conn"}, seen)
	require.Equal(t, 1, src.sourced())
	require.Equal(t, []any{"conn"}, src.recycled, "recycled once when the process unwinds")
}

func TestManagedObject_FunctionScopeSourcedPerJob(t *testing.T) {
	src := &syncSource{obj: "tmp"}
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "tmp", Source: src, Scope: ScopeFunction}},
		Functions: []*Function{
			{Name: "a", ManagedObjects: []int{0}, Next: "b"},
			{Name: "b", ManagedObjects: []int{0}},
		},
	}
	o, _ := startOffice(t, meta, nil)

	require.NoError(t, invoke(t, o, "a", nil))
	require.Equal(t, 2, src.sourced())
	require.Len(t, src.recycled, 2)
}

func TestManagedObject_NullObjectFailsWithoutRunningBody(t *testing.T) {
	// --- Arrange ---
	ran := false
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "db", Source: nilSource{}}},
		Functions: []*Function{{Name: "use", ManagedObjects: []int{0}, Body: func(*FunctionContext) (any, error) {
			ran = true
			return nil, nil
		}}},
	}
	o, _ := startOffice(t, meta, nil)

	// --- Act ---
	err := invoke(t, o, "use", nil)

	// --- Assert ---
	require.False(t, ran)
	require.EqualError(t, err, "Null ManagedObject provided for db from source kernel.nilSource")
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
}

func TestManagedObject_SourceErrorFailsJob(t *testing.T) {
	boom := errors.New("connection refused")
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "db", Source: &syncSource{err: boom}}},
		Functions:      []*Function{{Name: "use", ManagedObjects: []int{0}}},
	}
	o, _ := startOffice(t, meta, nil)

	err := invoke(t, o, "use", nil)

	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "failed to source managed object 'db'")
}

func TestManagedObject_AsyncDependentsShareOutcome(t *testing.T) {
	for _, tc := range []struct {
		name    string
		finish  func(AsyncUser)
		wantErr error
	}{
		{name: "loaded", finish: func(u AsyncUser) { u.SetManagedObject("shared") }},
		{name: "failed", finish: func(u AsyncUser) { u.SetFailure(errBoom) }, wantErr: errBoom},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			src := &asyncSource{}
			var mu sync.Mutex
			var seen []any
			var handled []error
			meta := &OfficeMetaData{
				ManagedObjects: []*ManagedObject{{Name: "conn", Source: src, Scope: ScopeProcess}},
				Functions: []*Function{
					{Name: "main", Body: func(fc *FunctionContext) (any, error) {
						for i := 0; i < 3; i++ {
							if _, err := fc.Spawn("use", nil, nil); err != nil {
								return nil, err
							}
						}
						return nil, nil
					}},
					{Name: "use", ManagedObjects: []int{0}, Body: func(fc *FunctionContext) (any, error) {
						mu.Lock()
						seen = append(seen, fc.Object(0))
						mu.Unlock()
						return nil, nil
					}},
					{Name: "record", Body: func(fc *FunctionContext) (any, error) {
						mu.Lock()
						handled = append(handled, fc.Parameter().(error))
						mu.Unlock()
						return nil, nil
					}},
				},
				Escalations: EscalationProcedure{{Match: MatchAs[*SourceError](), Handler: "record"}},
			}
			o, _ := startOffice(t, meta, nil)
			out := newOutcome()
			_, err := o.InvokeProcess(context.Background(), "main", nil, nil, 0, out.callback)
			require.NoError(t, err)
			require.Equal(t, 1, src.calls(), "only the first dependent starts sourcing")

			// --- Act ---
			tc.finish(src.user(0))

			// --- Assert ---
			require.NoError(t, out.wait(t))
			require.Equal(t, 1, src.calls())
			if tc.wantErr == nil {
				require.Equal(t, []any{"shared", "shared", "shared"}, seen)
				require.Empty(t, handled)
				return
			}
			require.Empty(t, seen)
			require.Len(t, handled, 3)
			for _, err := range handled {
				require.ErrorIs(t, err, tc.wantErr)
				require.Same(t, handled[0], err)
			}
		})
	}
}

var errBoom = errors.New("boom")

func TestManagedObject_AsyncCompletedInsideSource(t *testing.T) {
	src := &asyncSource{immediate: "ready"}
	var got any
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "conn", Source: src}},
		Functions: []*Function{{Name: "use", ManagedObjects: []int{0}, Body: func(fc *FunctionContext) (any, error) {
			got, _ = fc.ObjectByName("conn")
			return nil, nil
		}}},
	}
	o, _ := startOffice(t, meta, nil)

	require.NoError(t, invoke(t, o, "use", nil))
	require.Equal(t, "ready", got)
}

func TestManagedObject_AsyncTimeoutFailsWaiter(t *testing.T) {
	// --- Arrange ---
	clock := testutil.NewManualClock()
	src := &asyncSource{}
	meta := &OfficeMetaData{
		Clock:          clock,
		CheckInterval:  time.Hour,
		ManagedObjects: []*ManagedObject{{Name: "slow", Source: src, Timeout: 50 * time.Millisecond}},
		Functions:      []*Function{{Name: "use", ManagedObjects: []int{0}}},
	}
	o, _ := startOffice(t, meta, nil)
	out := newOutcome()
	_, err := o.InvokeProcess(context.Background(), "use", nil, nil, 0, out.callback)
	require.NoError(t, err)

	// --- Act ---
	clock.Advance(50 * time.Millisecond)
	require.Equal(t, 1, o.Checker().CheckNow())

	// --- Assert ---
	err = out.wait(t)
	var timeout *SourceTimeoutError
	require.ErrorAs(t, err, &timeout)
	require.Equal(t, "slow", timeout.ManagedObject)
	require.Equal(t, 50*time.Millisecond, timeout.Timeout)
}

func TestManagedObject_InputSlotUsesInvokedObject(t *testing.T) {
	var got any
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "request", Scope: ScopeProcess}},
		Functions: []*Function{{Name: "handle", ManagedObjects: []int{0}, Body: func(fc *FunctionContext) (any, error) {
			got = fc.Object(0)
			return nil, nil
		}}},
	}
	o, _ := startOffice(t, meta, nil)
	out := newOutcome()

	_, err := o.InvokeProcess(context.Background(), "handle", nil, "payload", 0, out.callback)

	require.NoError(t, err)
	require.NoError(t, out.wait(t))
	require.Equal(t, "payload", got)
}

func TestManagedObject_RecycleFailureIsOnlyLogged(t *testing.T) {
	src := &syncSource{obj: "conn", recycleErr: errors.New("pool closed")}
	meta := &OfficeMetaData{
		ManagedObjects: []*ManagedObject{{Name: "db", Source: src, Scope: ScopeThread}},
		Functions:      []*Function{{Name: "use", ManagedObjects: []int{0}}},
	}
	o, logs := startOffice(t, meta, nil)

	require.NoError(t, invoke(t, o, "use", nil))
	require.Contains(t, logs.String(), "Failed to unload managed object.")
	require.Contains(t, logs.String(), "pool closed")
}
