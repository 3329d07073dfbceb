package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireOverlap fails unless runs a and b were both recorded and overlapped.
func RequireOverlap(t testing.TB, r *Recorder, a, b string) {
	t.Helper()
	ra, okA := r.Get(a)
	rb, okB := r.Get(b)
	require.True(t, okA, "run '%s' was not recorded", a)
	require.True(t, okB, "run '%s' was not recorded", b)
	require.True(t, ra.Overlaps(rb), "runs '%s' and '%s' did not overlap", a, b)
}

// RequireSequential fails unless run a ended before run b started.
func RequireSequential(t testing.TB, r *Recorder, a, b string) {
	t.Helper()
	ra, okA := r.Get(a)
	rb, okB := r.Get(b)
	require.True(t, okA, "run '%s' was not recorded", a)
	require.True(t, okB, "run '%s' was not recorded", b)
	require.False(t, ra.End.After(rb.Start), "run '%s' ended after '%s' started", a, b)
}

// WaitFor receives n names from done, failing after timeout.
func WaitFor(t testing.TB, done <-chan string, n int, timeout time.Duration) []string {
	t.Helper()
	var names []string
	deadline := time.After(timeout)
	for len(names) < n {
		select {
		case name := <-done:
			names = append(names, name)
		case <-deadline:
			t.Fatalf("timed out after %s waiting for %d runs, got %v", timeout, n, names)
		}
	}
	return names
}
