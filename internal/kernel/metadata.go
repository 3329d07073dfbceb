package kernel

import (
	"context"
	"time"

	"github.com/specialistvlad/officegrid/internal/asset"
)

// FunctionBody is the Go code behind a function.
type FunctionBody func(fc *FunctionContext) (any, error)

// Function is the static description of one schedulable unit of work.
type Function struct {
	Name string
	Body FunctionBody
	// Team runs the function. Empty means the office default team.
	Team string
	// ManagedObjects are indexes into OfficeMetaData.ManagedObjects. The body
	// reads them by position with FunctionContext.Object.
	ManagedObjects []int
	// Governance are indexes into OfficeMetaData.Governance activated before
	// the body runs.
	Governance []int
	// Administrators are indexes into OfficeMetaData.Administrators whose
	// duties run before the body.
	Administrators []int
	// Escalations is the job-local escalation procedure.
	Escalations EscalationProcedure
	// Next is run after the body with the body's result as parameter.
	Next string
	// ThreadPolicy overrides the office governance policy for threads that
	// start with this function.
	ThreadPolicy GovernancePolicy
}

// Scope binds a managed object to the lifetime of a function, thread or process.
type Scope int

const (
	ScopeFunction Scope = iota
	ScopeThread
	ScopeProcess
)

func (s Scope) String() string {
	switch s {
	case ScopeFunction:
		return "function"
	case ScopeThread:
		return "thread"
	case ScopeProcess:
		return "process"
	}
	return "unknown"
}

// ManagedObject describes a dependency slot.
type ManagedObject struct {
	Name string
	// Source produces the object. A nil Source or an InputSource makes this an
	// input slot filled from the managed object passed to InvokeProcess.
	Source Source
	Scope  Scope
	// Timeout bounds how long a job waits on asynchronous sourcing. Zero waits
	// indefinitely.
	Timeout time.Duration
}

// Governor is one active governance instance.
type Governor interface {
	Govern(ctx context.Context, extension any) error
	Enforce(ctx context.Context) error
	Disregard(ctx context.Context) error
}

// Governance describes a cross-cutting enforcement over managed objects that
// provide Extension.
type Governance struct {
	Name      string
	Extension string
	Factory   func() Governor
}

// Administrator describes a duty run before a function over the Extension of
// the function's managed objects.
type Administrator struct {
	Name      string
	Extension string
	Duty      func(ctx context.Context, extensions []any) error
}

// GovernancePolicy selects what happens to active governance at a flow boundary.
type GovernancePolicy int

const (
	GovernanceInherit GovernancePolicy = iota
	GovernanceEnforce
	GovernanceDisregard
)

func (p GovernancePolicy) String() string {
	switch p {
	case GovernanceEnforce:
		return "enforce"
	case GovernanceDisregard:
		return "disregard"
	}
	return "inherit"
}

// EscalationHandler is the office floor's catch-all for unhandled failures.
type EscalationHandler func(ctx context.Context, err error) error

// FlowCallback receives the outcome of an invoked process. A returned error is
// passed on to the office floor handler.
type FlowCallback func(err error) error

// SpawnCallback receives the outcome of a spawned thread. It runs as a job of
// the spawning thread; a returned error escalates there.
type SpawnCallback func(ctx context.Context, err error) error

// OfficeMetaData is everything an office needs to run.
type OfficeMetaData struct {
	Name           string
	Functions      []*Function
	ManagedObjects []*ManagedObject
	Governance     []*Governance
	Administrators []*Administrator
	// Escalations is the office-level procedure searched after the job-local one.
	Escalations EscalationProcedure
	// GovernancePolicy is the default thread policy. Inherit means enforce.
	GovernancePolicy GovernancePolicy
	FloorHandler     EscalationHandler
	// DefaultTeam runs functions without a team. Empty uses a passive team.
	DefaultTeam   string
	CheckInterval time.Duration
	Clock         asset.Clock
}
