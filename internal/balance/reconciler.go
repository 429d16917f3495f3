package balance

import (
	"context"
	"time"

	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/metrics"
)

// Reconciler periodically repairs balance rows that disagree with the ledger.
type Reconciler struct {
	repo      Repository
	batchSize int
}

func NewReconciler(repo Repository) *Reconciler {
	return &Reconciler{repo: repo, batchSize: 100}
}

// RunOnce repairs up to one batch of drifted accounts and returns how many
// rows were rewritten.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	drift, err := r.repo.ListDrift(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, d := range drift {
		logger.Warn("Balance drift detected",
			"account_id", d.AccountID,
			"cached_points", d.CachedPoints,
			"ledger_points", d.LedgerPoints,
		)
		metrics.RecordBalanceDrift()

		points, err := r.repo.Rebuild(ctx, d.AccountID)
		if err != nil {
			logger.Error("Failed to rebuild balance", "account_id", d.AccountID, "error", err)
			continue
		}
		logger.Info("Balance rebuilt", "account_id", d.AccountID, "points", points)
		repaired++
	}
	return repaired, nil
}

// Run calls RunOnce every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger.Info("Balance reconciler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Balance reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Balance reconciliation failed", "error", err)
			}
		}
	}
}
