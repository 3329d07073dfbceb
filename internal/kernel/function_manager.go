package kernel

import (
	"context"
	"fmt"
	"time"
)

// DefaultInvokeTimeout bounds FunctionManager.Invoke unless overridden.
const DefaultInvokeTimeout = 30 * time.Second

// FunctionManager invokes one function as a process and waits for it.
type FunctionManager struct {
	office   *Office
	function string
	timeout  time.Duration
}

// FunctionManager returns a manager for the named function.
func (o *Office) FunctionManager(function string) (*FunctionManager, error) {
	if _, ok := o.functions[function]; !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownFunction, function)
	}
	return &FunctionManager{office: o, function: function, timeout: DefaultInvokeTimeout}, nil
}

// WithTimeout returns a copy of the manager using timeout. Zero or less waits
// until ctx ends.
func (m *FunctionManager) WithTimeout(timeout time.Duration) *FunctionManager {
	c := *m
	c.timeout = timeout
	return &c
}

// Name returns the managed function's name.
func (m *FunctionManager) Name() string { return m.function }

// Invoke runs the function as a new process and blocks until it completes. It
// returns the process's unhandled failure, ErrInvokeTimeout or ctx's error.
func (m *FunctionManager) Invoke(ctx context.Context, parameter, managedObject any) error {
	return m.InvokeAfter(ctx, 0, parameter, managedObject)
}

// InvokeAfter is Invoke with the process starting after delay. The timeout
// counts from the start of the process.
func (m *FunctionManager) InvokeAfter(ctx context.Context, delay time.Duration, parameter, managedObject any) error {
	outcome := make(chan error, 1)
	_, err := m.office.InvokeProcess(ctx, m.function, parameter, managedObject, delay, func(err error) error {
		outcome <- err
		return nil
	})
	if err != nil {
		return err
	}

	var expired <-chan time.Time
	if m.timeout > 0 {
		timer := time.NewTimer(delay + m.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case err := <-outcome:
		return err
	case <-expired:
		return fmt.Errorf("%w: function '%s' after %s", ErrInvokeTimeout, m.function, m.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
