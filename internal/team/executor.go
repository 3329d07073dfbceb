package team

import (
	"context"
	"log/slog"
	"sync"
)

// Executor queues jobs until its owner runs them. It accepts jobs whether or
// not it is working; StopWorking discards anything still queued.
type Executor struct {
	name     string
	logger   *slog.Logger
	observer Observer

	mu    sync.Mutex
	queue []Job
}

// NewExecutor creates an externally driven team.
func NewExecutor(name string, logger *slog.Logger, observer Observer) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Executor{name: name, logger: logger.With("team", name), observer: observer}
}

func (e *Executor) StartWorking(context.Context) error { return nil }

func (e *Executor) AssignJob(job Job) error {
	e.mu.Lock()
	e.queue = append(e.queue, job)
	e.mu.Unlock()
	e.observer.JobQueued(e.name)
	return nil
}

func (e *Executor) StopWorking(context.Context) error {
	e.mu.Lock()
	dropped := len(e.queue)
	e.queue = nil
	e.mu.Unlock()
	if dropped > 0 {
		e.logger.Warn("Executor stopped with queued jobs.", "dropped", dropped)
	}
	return nil
}

// Pending returns the number of queued jobs.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// RunPending runs the jobs queued at the time of the call, in order, and
// returns how many ran. Jobs they assign wait for the next call.
func (e *Executor) RunPending() int {
	e.mu.Lock()
	jobs := e.queue
	e.queue = nil
	e.mu.Unlock()
	for _, j := range jobs {
		e.observer.JobDequeued(e.name)
		runJob(e.logger, j)
	}
	return len(jobs)
}

// RunUntilIdle runs jobs until the queue is empty and returns the total run.
func (e *Executor) RunUntilIdle() int {
	total := 0
	for {
		n := e.RunPending()
		if n == 0 {
			return total
		}
		total += n
	}
}
