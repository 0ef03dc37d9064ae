package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/database/bookmarks"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/database/reviews"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/media"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/ratings"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/services"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.CatalogReader = (*books.Repository)(nil)
var _ http.ReviewLedger = (*reviews.Repository)(nil)
var _ http.ProgressTracker = (*progress.Repository)(nil)
var _ http.BookmarkSet = (*bookmarks.Repository)(nil)
var _ http.RatingBreakdown = (*ratings.Aggregator)(nil)

var _ services.CatalogStore = (*books.Repository)(nil)
var _ services.ProfileStore = (*users.Repository)(nil)
var _ metadata.BookUpdater = (*books.Repository)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.CatalogWriter = (*services.CatalogService)(nil)
var _ http.LibraryViews = (*services.LibraryService)(nil)
var _ http.ProfileManager = (*services.ProfileService)(nil)
var _ http.MediaOpener = (*media.Store)(nil)
var _ services.MediaStore = (*media.Store)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ services.ReleaseQueue = (*tasks.Client)(nil)
var _ tasks.RatingRecomputer = (*ratings.Aggregator)(nil)
var _ tasks.RatingReconciler = (*ratings.Aggregator)(nil)
var _ tasks.MediaReleaser = (*media.Store)(nil)
var _ tasks.BookEnricher = (*metadata.Enricher)(nil)
var _ tasks.BulkEnricher = (*metadata.Enricher)(nil)
var _ tasks.CoverCacher = (*services.CatalogService)(nil)
var _ scheduler.Reconciler = (*ratings.Aggregator)(nil)

// =============================================================================
// Audit
// =============================================================================

var _ http.ActivityAuditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)
var _ tasks.ReconcileReporter = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ scheduler.RunReporter = (*audit.Service)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ metadata.MetadataProvider = (*metadata.OpenLibraryClient)(nil)
