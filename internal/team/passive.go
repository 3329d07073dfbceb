package team

import (
	"context"
	"log/slog"
)

// Passive runs every job on the goroutine that assigns it.
type Passive struct {
	name   string
	logger *slog.Logger
}

// NewPassive creates a passive team.
func NewPassive(name string, logger *slog.Logger) *Passive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Passive{name: name, logger: logger.With("team", name)}
}

func (p *Passive) StartWorking(context.Context) error { return nil }

func (p *Passive) AssignJob(job Job) error {
	runJob(p.logger, job)
	return nil
}

func (p *Passive) StopWorking(context.Context) error { return nil }
