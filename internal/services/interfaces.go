package services

import (
	"context"
	"io"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/media"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

// ProfileStore provides access to accounts and profiles.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	GetProfile(ctx context.Context, userID uint) (*entities.UserProfile, error)
	UpdateAccount(ctx context.Context, userID uint, firstName, lastName, email string) error
	UpdateBio(ctx context.Context, userID uint, bio string) (*entities.UserProfile, error)
	SwapAvatar(ctx context.Context, userID uint, handle string) (string, error)
	ClearAvatar(ctx context.Context, userID uint) (string, error)
}

// MediaStore saves and releases files behind opaque handles.
type MediaStore interface {
	Save(kind media.Kind, ownerID uint, filename string, r io.Reader) (string, error)
	Fetch(ctx context.Context, kind media.Kind, ownerID uint, url string) (string, error)
	Release(handle string) error
}

// ReleaseQueue retries media releases that failed inline.
type ReleaseQueue interface {
	EnqueueRelease(ctx context.Context, handle string) error
}

// CatalogStore provides the catalog operations the services need.
type CatalogStore interface {
	CreateBook(ctx context.Context, book *entities.Book) error
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
	GetBookBySlug(ctx context.Context, slug string) (*entities.Book, error)
	SetCover(ctx context.Context, id uint, handle string) (string, error)
	SetFile(ctx context.Context, id uint, handle string, format entities.BookFormat) (string, error)
	SetAuthorPhoto(ctx context.Context, authorID uint, handle string) (string, error)
	FindOrCreateAuthor(ctx context.Context, name string) (*entities.Author, error)
	GetGenreBySlug(ctx context.Context, slug string) (*entities.Genre, error)
	ListBooks(ctx context.Context, f books.BookFilter) ([]entities.Book, int64, error)
}

// ProgressReader reads reading progress.
type ProgressReader interface {
	Get(ctx context.Context, userID, bookID uint) (*entities.ReadingProgress, error)
	ListCurrentlyReading(ctx context.Context, userID uint) ([]entities.ReadingProgress, error)
	ListCompleted(ctx context.Context, userID uint) ([]entities.ReadingProgress, error)
	ListRecent(ctx context.Context, userID uint, limit int) ([]entities.ReadingProgress, error)
	Stats(ctx context.Context, userID uint) (progress.ReadingStats, error)
}

// BookmarkReader reads bookmarks.
type BookmarkReader interface {
	IsBookmarked(ctx context.Context, userID, bookID uint) (bool, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]entities.Bookmark, error)
	BookmarkedIDs(ctx context.Context, userID uint, bookIDs []uint) (map[uint]bool, error)
	Count(ctx context.Context, userID uint) (int64, error)
}

// ReviewReader reads reviews.
type ReviewReader interface {
	GetForUserAndBook(ctx context.Context, userID, bookID uint) (*entities.Review, error)
	ListForBook(ctx context.Context, bookID uint, publicOnly bool, limit, offset int) ([]entities.Review, int64, error)
	ListForUser(ctx context.Context, userID uint) ([]entities.Review, error)
}

// RatingBreakdown reads per-star rating counts.
type RatingBreakdown interface {
	Breakdown(ctx context.Context, bookID uint) (ratings.Distribution, error)
}
