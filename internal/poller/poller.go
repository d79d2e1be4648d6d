// Package poller runs the background reconciliation loop. It periodically
// scans non-terminal job records and refreshes each from provider-reported
// state, sharing the same idempotent reconcile path as inbound webhooks.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/rgallego/genstudio-api/internal/job"
)

// Service is the orchestrator surface the poller consumes.
type Service interface {
	// ActiveJobs returns the ids of all non-terminal records.
	ActiveJobs(ctx context.Context) ([]string, error)

	// Reconcile refreshes one job from provider-reported state.
	Reconcile(ctx context.Context, id string) (*job.Record, error)
}

// Poller periodically reconciles all non-terminal jobs.
type Poller struct {
	svc      Service
	interval time.Duration
	logger   *slog.Logger
}

// New creates a poller. A non-positive interval falls back to 5 seconds.
func New(svc Service, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{svc: svc, interval: interval, logger: logger}
}

// Run executes the reconciliation loop until the context is cancelled.
// One job's failure never blocks reconciliation of the others.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("reconciliation poller started",
		slog.Duration("interval", p.interval),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reconciliation poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick reconciles every active job once.
func (p *Poller) tick(ctx context.Context) {
	ids, err := p.svc.ActiveJobs(ctx)
	if err != nil {
		p.logger.Error("listing active jobs failed",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		p.reconcileOne(ctx, id)
	}
}

// reconcileOne reconciles a single job, containing panics so a misbehaving
// adapter cannot take down the loop.
func (p *Poller) reconcileOne(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during reconciliation",
				slog.String("job_id", id),
				slog.Any("panic", r),
			)
		}
	}()

	if _, err := p.svc.Reconcile(ctx, id); err != nil {
		p.logger.Warn("reconciliation failed",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
	}
}
