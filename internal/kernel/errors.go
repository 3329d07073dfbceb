package kernel

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownFunction is returned when a function name does not resolve.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrUnknownTeam is returned when a function names a team the office lacks.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrOfficeStopped is returned by InvokeProcess on an office that is not running.
	ErrOfficeStopped = errors.New("office is not running")
	// ErrInvokeTimeout is returned by FunctionManager.Invoke when the process
	// does not complete in time.
	ErrInvokeTimeout = errors.New("timed out waiting for process to complete")
)

// SourceError is a failure to obtain a managed object. A nil Err means the
// source produced no object.
type SourceError struct {
	ManagedObject string
	Source        any
	Err           error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Null ManagedObject provided for %s from source %T", e.ManagedObject, e.Source)
	}
	return fmt.Sprintf("failed to source managed object '%s': %v", e.ManagedObject, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SourceTimeoutError fails a job that waited too long on asynchronous sourcing.
type SourceTimeoutError struct {
	ManagedObject string
	Timeout       time.Duration
	Err           error
}

func (e *SourceTimeoutError) Error() string {
	return fmt.Sprintf("managed object '%s' was not sourced within %s", e.ManagedObject, e.Timeout)
}

func (e *SourceTimeoutError) Unwrap() error { return e.Err }

// JoinTimeoutError fails a job whose join on another thread expired. Token is
// the value given to Join.
type JoinTimeoutError struct {
	Token   any
	Timeout time.Duration
	Err     error
}

func (e *JoinTimeoutError) Error() string {
	return fmt.Sprintf("join %v timed out after %s", e.Token, e.Timeout)
}

func (e *JoinTimeoutError) Unwrap() error { return e.Err }

// PanicError is a recovered panic from a function body.
type PanicError struct {
	Function string
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("function '%s' panicked: %v", e.Function, e.Value)
}

// EscalationError is a handler failure, tagged with the level of the handler
// that produced it.
type EscalationError struct {
	Level EscalationLevel
	Err   error
}

func (e *EscalationError) Error() string {
	return fmt.Sprintf("%s escalation handler failed: %v", e.Level, e.Err)
}

func (e *EscalationError) Unwrap() error { return e.Err }

// Matcher decides whether an escalation entry handles err.
type Matcher func(err error) bool

// MatchAny matches every failure.
func MatchAny(error) bool { return true }

// MatchIs matches failures for which errors.Is(err, target) holds.
func MatchIs(target error) Matcher {
	return func(err error) bool { return errors.Is(err, target) }
}

// MatchAs matches failures whose chain holds an error of type T.
func MatchAs[T error]() Matcher {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}
