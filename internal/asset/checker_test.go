package asset

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChecker_StartPollsMonitors(t *testing.T) {
	// --- Arrange ---
	checker := NewChecker(SystemClock{}, 5*time.Millisecond)
	var expired atomic.Int32
	checker.OnExpire(func(string) { expired.Add(1) })
	m := NewMonitor("slow", checker)

	failed := make(chan error, 1)
	m.Wait(WaiterFunc(func(err error) { failed <- err }), 10*time.Millisecond)

	// --- Act ---
	checker.Start(context.Background())
	defer checker.Stop()

	// --- Assert ---
	select {
	case err := <-failed:
		var timeout *TimeoutError
		require.ErrorAs(t, err, &timeout)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was never timed out")
	}
	require.Eventually(t, func() bool { return expired.Load() == 1 }, time.Second, time.Millisecond)
}

func TestChecker_StopIsIdempotent(t *testing.T) {
	checker := NewChecker(nil, 0)
	require.Equal(t, DefaultCheckInterval, checker.Interval())
	checker.Stop()
	checker.Start(context.Background())
	checker.Stop()
	checker.Stop()
}
