package team

import (
	"context"
	"log/slog"
	"sync"
)

// Pool runs jobs on a fixed number of worker goroutines fed from an unbounded
// FIFO queue. AssignJob never blocks.
type Pool struct {
	name     string
	size     int
	logger   *slog.Logger
	observer Observer

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	working bool
	wg      sync.WaitGroup
}

// NewPool creates a pool of size workers. A size below one is treated as one.
func NewPool(name string, size int, logger *slog.Logger, observer Observer) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	p := &Pool{name: name, size: size, logger: logger.With("team", name), observer: observer}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// NewDedicated creates a pool with a single worker.
func NewDedicated(name string, logger *slog.Logger, observer Observer) *Pool {
	return NewPool(name, 1, logger, observer)
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// StartWorking launches the workers. Calling it on a working pool is a no-op.
func (p *Pool) StartWorking(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.working {
		return nil
	}
	p.working = true
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("Team started working.", "workers", p.size)
	return nil
}

// AssignJob queues job for the next free worker.
func (p *Pool) AssignJob(job Job) error {
	p.mu.Lock()
	if !p.working {
		p.mu.Unlock()
		return ErrNotWorking
	}
	p.queue = append(p.queue, job)
	p.cond.Signal()
	p.mu.Unlock()
	p.observer.JobQueued(p.name)
	return nil
}

// StopWorking stops accepting jobs, lets the workers drain the queue and waits
// for them to exit or for ctx to end.
func (p *Pool) StopWorking(ctx context.Context) error {
	p.mu.Lock()
	if !p.working {
		p.mu.Unlock()
		return nil
	}
	p.working = false
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Debug("Team stopped working.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker is the processing loop for a single worker goroutine.
func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	logger := p.logger.With("workerID", workerID)
	logger.Debug("Worker started.")

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && p.working {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			logger.Debug("Worker finished.")
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.observer.JobDequeued(p.name)
		runJob(logger, job)
	}
}
