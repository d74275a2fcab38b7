package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"golang.org/x/sync/errgroup"
)

const defaultInterval = 5 * time.Minute

// Workers runs a set of workers side by side.
type Workers struct {
	workers []Worker
}

func NewWorkers(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Run starts every worker and waits for all of them. The first failure
// cancels the others and is returned.
func (w *Workers) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, worker := range w.workers {
		g.Go(func() error {
			return worker.Run(ctx)
		})
	}
	return g.Wait()
}

// Periodic calls a [Job] once on start and then every interval. Job errors
// are logged and do not stop the worker.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	logger   *logger.Logger
}

// NewPeriodic returns a worker running job every interval, five minutes when
// interval is not positive.
func NewPeriodic(name string, interval time.Duration, job Job, logger *logger.Logger) *Periodic {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Periodic{name: name, interval: interval, job: job, logger: logger}
}

func (p *Periodic) Run(ctx context.Context) error {
	if p.job == nil {
		return fmt.Errorf("worker %s: no job", p.name)
	}

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		p.runOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	if err := p.job(ctx); err != nil {
		p.logger.Err(err).Str("func", "Periodic.Run").Str("worker", p.name).Msg("job failed")
		return
	}
	p.logger.Debug().Str("worker", p.name).Dur("took", time.Since(started)).Msg("job done")
}
