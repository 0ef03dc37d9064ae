package http

import (
	"context"
	"io"
	"os"

	"github.com/mikestefanello/backlite"

	dbaudit "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/database/bookmarks"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/reviews"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/ratings"
	"github.com/mrlokans/bookshelf/internal/services"
)

// This file consolidates the interfaces HTTP controllers depend on. Each
// controller takes only the slice it uses.

// --- Catalog ---

// CatalogReader resolves books and reference data.
type CatalogReader interface {
	GetBookBySlug(ctx context.Context, slug string) (*entities.Book, error)
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
	ListGenres(ctx context.Context) ([]entities.Genre, error)
	ListAuthors(ctx context.Context) ([]entities.Author, error)
	GetAuthorBySlug(ctx context.Context, slug string) (*entities.Author, error)
	SetPageCount(ctx context.Context, id uint, pages int) error
}

// CatalogWriter creates books and manages their cover, content and author
// photo files.
type CatalogWriter interface {
	CreateBook(ctx context.Context, in services.NewBookInput) (*entities.Book, error)
	ReplaceCover(ctx context.Context, bookID uint, filename string, r io.Reader) (*entities.Book, error)
	ReplaceFile(ctx context.Context, bookID uint, filename string, r io.Reader) (*entities.Book, error)
	ReplaceAuthorPhoto(ctx context.Context, authorID uint, filename string, r io.Reader) (string, error)
}

// LibraryViews assembles per-user read models.
type LibraryViews interface {
	Browse(ctx context.Context, userID uint, f books.BookFilter) ([]services.AnnotatedBook, int64, error)
	BookDetail(ctx context.Context, userID uint, slug string) (*services.BookDetailData, error)
	Dashboard(ctx context.Context, userID uint) (*services.DashboardData, error)
	MyLibrary(ctx context.Context, userID uint) (*services.LibraryData, error)
}

// --- Consistency core ---

// ReviewLedger writes reviews and keeps book aggregates in step.
type ReviewLedger interface {
	Upsert(ctx context.Context, in reviews.ReviewInput) (*entities.Review, bool, error)
	Create(ctx context.Context, in reviews.ReviewInput) (*entities.Review, error)
	Delete(ctx context.Context, reviewID, userID uint) (*entities.Review, error)
	ListForBook(ctx context.Context, bookID uint, publicOnly bool, limit, offset int) ([]entities.Review, int64, error)
}

// RatingBreakdown reads per-star rating counts.
type RatingBreakdown interface {
	Breakdown(ctx context.Context, bookID uint) (ratings.Distribution, error)
}

// ProgressTracker records reading positions.
type ProgressTracker interface {
	Advance(ctx context.Context, userID, bookID uint, page int) (*entities.ReadingProgress, error)
	SetCompleted(ctx context.Context, userID, bookID uint, completed bool) (*entities.ReadingProgress, error)
	Get(ctx context.Context, userID, bookID uint) (*entities.ReadingProgress, error)
}

// BookmarkSet toggles and reads bookmarks.
type BookmarkSet interface {
	Toggle(ctx context.Context, userID, bookID uint) (bookmarks.ToggleResult, error)
	IsBookmarked(ctx context.Context, userID, bookID uint) (bool, error)
}

// --- Users ---

// ProfileManager edits profiles and avatars.
type ProfileManager interface {
	GetProfile(ctx context.Context, userID uint) (*services.ProfileData, error)
	UpdateProfile(ctx context.Context, userID uint, u services.ProfileUpdate) (*services.ProfileData, error)
	ReplaceAvatar(ctx context.Context, userID uint, filename string, r io.Reader) (*entities.UserProfile, error)
	RemoveAvatar(ctx context.Context, userID uint) error
}

// MediaOpener resolves media handles to files on disk.
type MediaOpener interface {
	Path(handle string) (string, error)
	Open(handle string) (*os.File, error)
}

// --- Background work and audit ---

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// AuditReader lists audit events.
type AuditReader interface {
	GetEvents(filter dbaudit.EventFilter) ([]entities.AuditEvent, int64, error)
}

// ActivityAuditor records user activity. Implementations must not block.
type ActivityAuditor interface {
	LogReview(userID uint, action string, reviewID, bookID uint, rating int, err error)
	LogBookmark(userID, bookID uint, outcome string)
	LogCompletion(userID, bookID uint, page int)
	LogProfile(userID uint, action string, err error)
	LogCatalog(userID uint, action string, bookID uint, description string, err error)
}

type noopAuditor struct{}

func (noopAuditor) LogReview(uint, string, uint, uint, int, error) {}
func (noopAuditor) LogBookmark(uint, uint, string)                 {}
func (noopAuditor) LogCompletion(uint, uint, int)                  {}
func (noopAuditor) LogProfile(uint, string, error)                 {}
func (noopAuditor) LogCatalog(uint, string, uint, string, error)   {}

func auditorOrNoop(a ActivityAuditor) ActivityAuditor {
	if a == nil {
		return noopAuditor{}
	}
	return a
}
