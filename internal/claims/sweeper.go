package claims

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires stale pending claims, repairs missing credits
// of recent approvals and refreshes the pending gauge.
type Sweeper struct {
	service         *Service
	interval        time.Duration
	reconcileWindow time.Duration
	logger          *slog.Logger
}

// NewSweeper builds a sweeper. interval <= 0 selects one hour.
func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		service:         service,
		interval:        interval,
		reconcileWindow: 24 * time.Hour,
		logger:          logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.Sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep performs a single pass. Failures are logged and retried on the next pass.
func (w *Sweeper) Sweep(ctx context.Context) {
	if _, err := w.service.ExpireStale(ctx); err != nil {
		w.logger.Warn("claim expiry failed", slog.String("error", err.Error()))
	}
	if _, err := w.service.Reconcile(ctx, w.reconcileWindow); err != nil {
		w.logger.Warn("claim reconcile failed", slog.String("error", err.Error()))
	}
	pending, err := w.service.ListPending(ctx)
	if err != nil {
		w.logger.Warn("pending claim count failed", slog.String("error", err.Error()))
		return
	}
	w.service.metrics.SetPendingClaims(len(pending))
}
