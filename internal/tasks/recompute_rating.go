package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/ratings"
)

// RatingRecomputer recomputes the stored aggregate of one book.
type RatingRecomputer interface {
	Recompute(ctx context.Context, bookID uint) (ratings.Aggregate, error)
}

// RecomputeRatingTask refreshes a single book's stored rating aggregate.
// Ledger writes already recompute inline; this task covers bulk changes
// such as account deletion.
type RecomputeRatingTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for rating recompute tasks.
func (t RecomputeRatingTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "recompute_rating",
		MaxAttempts: 5,
		Backoff:     10 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

// RecomputeRatingProcessor creates a processor function for RecomputeRatingTask.
func RecomputeRatingProcessor(aggregator RatingRecomputer) backlite.QueueProcessor[RecomputeRatingTask] {
	return func(ctx context.Context, task RecomputeRatingTask) error {
		if aggregator == nil {
			return fmt.Errorf("rating aggregator not configured")
		}

		agg, err := aggregator.Recompute(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("recompute rating for book %d: %w", task.BookID, err)
		}

		log.Printf("[TASK] Book %d rating recomputed: %.2f over %d reviews", task.BookID, agg.Average, agg.Count)
		return nil
	}
}

// NewRecomputeRatingQueue creates a backlite queue for rating recompute tasks.
func NewRecomputeRatingQueue(aggregator RatingRecomputer) backlite.Queue {
	return backlite.NewQueue(RecomputeRatingProcessor(aggregator))
}
