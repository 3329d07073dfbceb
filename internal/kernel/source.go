package kernel

import (
	"context"
	"slices"
	"time"
)

// Source is a managed-object source. It implements exactly one of SyncSource,
// AsyncSource or InputSource, and optionally Recycler and ExtensionSource.
type Source any

// SyncSource returns the object directly. A nil object is a failure.
type SyncSource interface {
	Source(ctx context.Context) (any, error)
}

// AsyncSource completes sourcing later through the AsyncUser. The user may be
// called from any goroutine, including from within Source.
type AsyncSource interface {
	SourceAsync(ctx context.Context, user AsyncUser)
}

// AsyncUser receives the outcome of asynchronous sourcing. Only the first call
// counts.
type AsyncUser interface {
	SetManagedObject(obj any)
	SetFailure(err error)
}

// InputSource invokes processes from outside normal scheduling, for example on
// network events. Functions depending on it receive the managed object passed
// to InvokeProcess.
type InputSource interface {
	Start(ctx context.Context, ec ExecuteContext) error
	Stop(ctx context.Context) error
}

// ExecuteContext is what an input source uses to start processes.
type ExecuteContext interface {
	InvokeProcess(ctx context.Context, function string, parameter, managedObject any, delay time.Duration, callback FlowCallback) (*ProcessHandle, error)
}

// Recycler takes back an object when its scope unwinds.
type Recycler interface {
	Recycle(ctx context.Context, obj any) error
}

// ExtensionSource lists the extensions its objects provide. Objects of such a
// source are their own extension.
type ExtensionSource interface {
	Extensions() []string
}

// Extender is implemented by objects that hand out a distinct value per
// extension. A nil result means the extension is not provided.
type Extender interface {
	Extension(name string) any
}

func validSource(src Source) bool {
	switch src.(type) {
	case nil, SyncSource, AsyncSource, InputSource:
		return true
	}
	return false
}

// extensionOf returns obj's value for the named extension.
func extensionOf(src Source, obj any, name string) (any, bool) {
	if obj == nil {
		return nil, false
	}
	if e, ok := obj.(Extender); ok {
		if v := e.Extension(name); v != nil {
			return v, true
		}
		return nil, false
	}
	if es, ok := src.(ExtensionSource); ok && slices.Contains(es.Extensions(), name) {
		return obj, true
	}
	return nil, false
}
