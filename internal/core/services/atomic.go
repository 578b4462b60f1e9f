package services

import (
	"context"
	"time"

	"github.com/vncsmyrnk/pollvote/internal/core/ports"
	"github.com/vncsmyrnk/pollvote/internal/metrics"
)

// runAtomic wraps Transactor.RunAtomic and records how long the unit took.
func runAtomic(ctx context.Context, tx ports.Transactor, operation string, fn func(ctx context.Context, polls ports.PollRepository) error) error {
	start := time.Now()
	err := tx.RunAtomic(ctx, fn)

	outcome := "commit"
	if err != nil {
		outcome = "rollback"
	}
	metrics.TransactionDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	return err
}
