package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/ratings"
)

// RatingReconciler verifies every stored aggregate against its reviews.
type RatingReconciler interface {
	Reconcile(ctx context.Context) (ratings.ReconcileResult, error)
}

// ReconcileReporter receives the outcome of a reconcile run.
type ReconcileReporter interface {
	LogReconcile(result *ratings.ReconcileResult, err error)
}

// ReconcileRatingsTask runs a full rating reconcile over the catalog.
type ReconcileRatingsTask struct{}

// Config returns the queue configuration for reconcile tasks.
func (t ReconcileRatingsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_ratings",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileRatingsProcessor creates a processor function for ReconcileRatingsTask.
// reporter may be nil.
func ReconcileRatingsProcessor(reconciler RatingReconciler, reporter ReconcileReporter) backlite.QueueProcessor[ReconcileRatingsTask] {
	return func(ctx context.Context, task ReconcileRatingsTask) error {
		if reconciler == nil {
			return fmt.Errorf("rating reconciler not configured")
		}

		result, err := reconciler.Reconcile(ctx)
		if reporter != nil {
			reporter.LogReconcile(&result, err)
		}
		if err != nil {
			return fmt.Errorf("reconcile ratings: %w", err)
		}

		log.Printf("[TASK] Rating reconcile complete: %d checked, %d repaired, %d failed",
			result.Checked, result.Changed, result.Failed)
		return nil
	}
}

// NewReconcileRatingsQueue creates a backlite queue for reconcile tasks.
func NewReconcileRatingsQueue(reconciler RatingReconciler, reporter ReconcileReporter) backlite.Queue {
	return backlite.NewQueue(ReconcileRatingsProcessor(reconciler, reporter))
}
