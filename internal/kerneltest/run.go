// Package kerneltest runs single functions through a real office for tests of
// code built on the kernel.
package kerneltest

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

const captureName = "kerneltest.capture"

// Result is the outcome of Run.
type Result struct {
	// Value is the return value of the invoked function, or of the last
	// function in its Next chain.
	Value any
	// Err is the process failure delivered to the invocation callback.
	Err  error
	Logs *testutil.SafeBuffer
}

// Run starts an office for meta, invokes function once and waits for the
// process to complete. The office is stopped on cleanup.
func Run(t testing.TB, meta *kernel.OfficeMetaData, function string, parameter, managedObject any) Result {
	t.Helper()
	values := make(chan any, 1)
	last := function
	for {
		var next string
		for _, fn := range meta.Functions {
			if fn.Name == last {
				next = fn.Next
			}
		}
		if next == "" {
			break
		}
		last = next
	}
	for _, fn := range meta.Functions {
		if fn.Name == last {
			fn.Next = captureName
		}
	}
	meta.Functions = append(meta.Functions, &kernel.Function{
		Name: captureName,
		Body: func(fc *kernel.FunctionContext) (any, error) {
			values <- fc.Parameter()
			return nil, nil
		},
	})

	logger, logs := testutil.NewLogger(t)
	office, err := kernel.NewOffice(meta, nil, kernel.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, office.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = office.Stop(ctx)
	})

	done := make(chan error, 1)
	_, err = office.InvokeProcess(context.Background(), function, parameter, managedObject, 0, func(err error) error {
		done <- err
		return nil
	})
	require.NoError(t, err)

	res := Result{Logs: logs}
	select {
	case res.Err = <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("process for '%s' did not complete", function)
	}
	select {
	case res.Value = <-values:
	default:
	}
	return res
}
