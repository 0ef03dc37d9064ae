package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/metadata"
)

// BookEnricher looks up metadata for one book and stores what is missing.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// CoverCacher downloads a book's remote cover into the media store.
type CoverCacher interface {
	CacheCover(ctx context.Context, bookID uint) (*entities.Book, error)
}

// EnrichBookTask enriches a single book's metadata from external sources.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for book enrichment tasks.
func (t EnrichBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnrichBookProcessor creates a processor function for EnrichBookTask. When
// covers is set, a newly found cover URL is downloaded into the media store;
// a failed download does not fail the task.
func EnrichBookProcessor(enricher BookEnricher, covers CoverCacher) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		}

		if len(result.FieldsUpdated) == 0 {
			log.Printf("[TASK] Book %d (%s): no metadata updates needed",
				task.BookID, result.Book.Title)
			return nil
		}

		log.Printf("[TASK] Enriched book %d (%s): updated %v via %s",
			task.BookID, result.Book.Title, result.FieldsUpdated, result.SearchMethod)

		if covers != nil && result.CoverChanged() {
			if _, err := covers.CacheCover(ctx, task.BookID); err != nil {
				log.Printf("[TASK] Book %d: cover download failed: %v", task.BookID, err)
			}
		}

		return nil
	}
}

// NewEnrichBookQueue creates a backlite queue for book enrichment tasks.
func NewEnrichBookQueue(enricher BookEnricher, covers CoverCacher) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher, covers))
}
