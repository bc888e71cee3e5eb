// Package janitor removes jobs whose retention window has passed.
package janitor

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper deletes expired job records and returns their ids.
type Sweeper interface {
	Sweep(now time.Time) []string
}

// Remover deletes the files of one job.
type Remover interface {
	Remove(id string) error
}

// Pruner forgets idle state, such as rate limiter keys, and returns how many
// entries it dropped.
type Pruner interface {
	Prune() int
}

// Janitor periodically sweeps expired jobs and their files.
type Janitor struct {
	jobs      Sweeper
	files     Remover
	pruners   []Pruner
	interval  time.Duration
	log       *slog.Logger
	onRemoved func(n int)
	now       func() time.Time
}

// New returns a Janitor running every interval. onRemoved, if not nil, is
// called with the number of jobs removed by each sweep that removed any.
func New(jobs Sweeper, files Remover, interval time.Duration, log *slog.Logger, onRemoved func(n int)) *Janitor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Janitor{
		jobs:      jobs,
		files:     files,
		interval:  interval,
		log:       log,
		onRemoved: onRemoved,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithPruners adds pruners run after each sweep.
func (j *Janitor) WithPruners(p ...Pruner) *Janitor {
	j.pruners = append(j.pruners, p...)
	return j
}

// RunOnce sweeps once and returns the number of jobs removed. A job whose
// files cannot be deleted is still counted; its record is already gone.
func (j *Janitor) RunOnce() int {
	ids := j.jobs.Sweep(j.now())
	for _, id := range ids {
		if err := j.files.Remove(id); err != nil {
			j.log.Warn("remove job files failed", slog.String("job_id", id), slog.String("error", err.Error()))
		}
	}
	if len(ids) > 0 {
		j.log.Info("expired jobs removed", slog.Int("count", len(ids)))
		if j.onRemoved != nil {
			j.onRemoved(len(ids))
		}
	}
	for _, p := range j.pruners {
		if n := p.Prune(); n > 0 {
			j.log.Debug("idle entries pruned", slog.Int("count", n))
		}
	}
	return len(ids)
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}
