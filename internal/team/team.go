package team

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
)

// ErrNotWorking is returned by AssignJob on a team that is not started or
// already stopped.
var ErrNotWorking = errors.New("team is not working")

// Job is a unit of work handed to a team.
type Job interface {
	Run()
}

// JobFunc adapts a function to a Job.
type JobFunc func()

// Run implements Job.
func (f JobFunc) Run() { f() }

// Team is a pluggable execution strategy.
type Team interface {
	StartWorking(ctx context.Context) error
	AssignJob(job Job) error
	StopWorking(ctx context.Context) error
}

// Observer is told about queue movement. It is optional on every team.
type Observer interface {
	JobQueued(team string)
	JobDequeued(team string)
}

type nopObserver struct{}

func (nopObserver) JobQueued(string)   {}
func (nopObserver) JobDequeued(string) {}

// runJob runs j and keeps a panic from reaching the calling goroutine.
func runJob(logger *slog.Logger, j Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked outside the kernel.", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	j.Run()
}
