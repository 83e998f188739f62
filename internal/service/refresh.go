package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// specParser accepts five- or six-field specs and descriptors like
// "@every 10m".
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Refresher rebuilds the snapshot on a cron schedule.
type Refresher struct {
	cron    *cron.Cron
	svc     *AnalyticsService
	timeout time.Duration
	logger  *slog.Logger
}

// NewRefresher validates spec and schedules svc.Reload on it. Each run is
// bounded by timeout.
func NewRefresher(svc *AnalyticsService, spec string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	if _, err := specParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parsing refresh schedule %q: %w", spec, err)
	}

	r := &Refresher{
		cron:    cron.New(cron.WithParser(specParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		svc:     svc,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("scheduling refresh: %w", err)
	}
	return r, nil
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	snap, err := r.svc.Reload(ctx)
	if err != nil {
		r.logger.Error("scheduled refresh failed", slog.String("error", err.Error()))
		return
	}
	r.logger.Info("scheduled refresh done", slog.String("snapshot", snap.ID))
}

// Start runs the scheduler in its own goroutine.
func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the scheduler and waits for a running refresh to finish or ctx
// to expire.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
