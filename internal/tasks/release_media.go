package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// MediaReleaser deletes a stored media file by handle. Releasing a missing
// file must succeed.
type MediaReleaser interface {
	Release(handle string) error
}

// ReleaseMediaTask retries the release of a replaced media file
// whose inline release failed.
type ReleaseMediaTask struct {
	Handle string `json:"handle"`
}

// Config returns the queue configuration for media release tasks.
func (t ReleaseMediaTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "release_media",
		MaxAttempts: 5,
		Backoff:     time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

// ReleaseMediaProcessor creates a processor function for ReleaseMediaTask.
func ReleaseMediaProcessor(releaser MediaReleaser) backlite.QueueProcessor[ReleaseMediaTask] {
	return func(ctx context.Context, task ReleaseMediaTask) error {
		if releaser == nil {
			return fmt.Errorf("media store not configured")
		}
		if task.Handle == "" {
			return nil
		}

		if err := releaser.Release(task.Handle); err != nil {
			return fmt.Errorf("release %s: %w", task.Handle, err)
		}

		log.Printf("[TASK] Released media %s", task.Handle)
		return nil
	}
}

// NewReleaseMediaQueue creates a backlite queue for media release tasks.
func NewReleaseMediaQueue(releaser MediaReleaser) backlite.Queue {
	return backlite.NewQueue(ReleaseMediaProcessor(releaser))
}
