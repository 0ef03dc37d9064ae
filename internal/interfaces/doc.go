// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - CatalogReader, ReviewLedger, ProgressTracker, BookmarkSet: what HTTP
//     controllers need from the repositories (internal/http/stores.go)
//   - CatalogStore, ProfileStore, ProgressReader, BookmarkReader, ReviewReader:
//     what services need (internal/services/interfaces.go)
//   - BookUpdater: catalog writes made by metadata enrichment (internal/metadata/enricher.go)
//
// ## Background Work Interfaces
//
//   - TaskQueue, ReleaseQueue: enqueue tasks (internal/http/stores.go, internal/services/interfaces.go)
//   - RatingRecomputer, RatingReconciler, MediaReleaser, BookEnricher, CoverCacher:
//     what task processors call (internal/tasks/)
//
// ## External Service Interfaces
//
//   - MetadataProvider: Book metadata from external APIs (internal/metadata/enricher.go)
//
// # Rating Consistency
//
// A book's AverageRating and ReviewCount are derived from its reviews and are
// only ever written by ratings.Aggregator. Every review write goes through
// reviews.Repository, which recomputes the aggregate in the same transaction.
// Anything that removes reviews in bulk must do the same:
//
//	err := db.Transaction(func(tx *gorm.DB) error {
//	    if err := tx.Where("book_id = ?", id).Delete(&entities.Review{}).Error; err != nil {
//	        return err
//	    }
//	    _, err := aggregator.RecomputeTx(tx, id)
//	    return err
//	})
//
// The nightly reconcile (tasks.ReconcileRatingsTask) repairs anything that
// slipped through.
//
// # Adding a New Metadata Provider
//
// To add a new source of book metadata (e.g., Google Books):
//
//  1. Implement MetadataProvider in internal/metadata/
//
//     type GoogleBooksClient struct {
//         apiKey     string
//         httpClient *http.Client
//     }
//
//     func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
//     func (c *GoogleBooksClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
//
//     var _ MetadataProvider = (*GoogleBooksClient)(nil)
//
//  2. Pass it to metadata.NewEnricher in entrypoint.go
//
// # Adding a New Background Task
//
//  1. Define the task type and its Config in internal/tasks/
//  2. Write a processor over a narrow interface and a NewXQueue constructor
//  3. Register the queue in entrypoint.startTasks
//  4. Optionally expose it through AdminController.RunTask
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
