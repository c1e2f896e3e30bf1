package background

import (
	"context"
	"time"
)

const ReconcileTaskName = "progress-reconcile"

// ProgressReconciler recomputes stored course aggregates from lesson records
// and reports how many were rewritten.
type ProgressReconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// NewReconcileTask runs reconciler every interval. A single run may take up to
// one interval.
func NewReconcileTask(reconciler ProgressReconciler, interval time.Duration) Task {
	return Task{
		Name:     ReconcileTaskName,
		Interval: interval,
		Timeout:  interval,
		RetryPolicy: RetryPolicy{
			MaxRetries: 2,
			Backoff:    30 * time.Second,
		},
		Run: reconciler.ReconcileAll,
	}
}
