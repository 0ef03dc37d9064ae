package services

import (
	"context"
	"errors"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

const (
	dashboardRecentLimit = 5
	detailReviewLimit    = 20
)

// DashboardStats extends reading totals with bookmark and review counts.
type DashboardStats struct {
	progress.ReadingStats
	Bookmarks int64 `json:"bookmarks"`
	Reviews   int   `json:"reviews"`
}

// DashboardData is the summary shown on a user's home page.
type DashboardData struct {
	Stats           DashboardStats             `json:"stats"`
	RecentProgress  []entities.ReadingProgress `json:"recent_progress"`
	RecentBookmarks []entities.Bookmark        `json:"recent_bookmarks"`
}

// LibraryData groups a user's books by reading state.
type LibraryData struct {
	CurrentlyReading []entities.ReadingProgress `json:"currently_reading"`
	Completed        []entities.ReadingProgress `json:"completed"`
	Bookmarked       []entities.Bookmark        `json:"bookmarked"`
}

// BookDetailData is a book with the viewing user's state and its reviews.
type BookDetailData struct {
	Book            *entities.Book            `json:"book"`
	Progress        *entities.ReadingProgress `json:"progress,omitempty"`
	ProgressPercent int                       `json:"progress_percent"`
	IsBookmarked    bool                      `json:"is_bookmarked"`
	UserReview      *entities.Review          `json:"user_review,omitempty"`
	Reviews         []entities.Review         `json:"reviews"`
	ReviewTotal     int64                     `json:"review_total"`
	Breakdown       ratings.Distribution      `json:"breakdown"`
}

// LibraryService assembles the read-only views of a user's library.
type LibraryService struct {
	catalog   CatalogStore
	progress  ProgressReader
	bookmarks BookmarkReader
	reviews   ReviewReader
	ratings   RatingBreakdown
}

// NewLibraryService creates a library view service.
func NewLibraryService(catalog CatalogStore, progressReader ProgressReader, bookmarkReader BookmarkReader, reviewReader ReviewReader, breakdown RatingBreakdown) *LibraryService {
	return &LibraryService{
		catalog:   catalog,
		progress:  progressReader,
		bookmarks: bookmarkReader,
		reviews:   reviewReader,
		ratings:   breakdown,
	}
}

// Dashboard returns reading totals and recent activity.
func (s *LibraryService) Dashboard(ctx context.Context, userID uint) (*DashboardData, error) {
	stats, err := s.progress.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	bookmarkCount, err := s.bookmarks.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.progress.ListRecent(ctx, userID, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}
	marks, err := s.bookmarks.ListForUser(ctx, userID, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		Stats: DashboardStats{
			ReadingStats: stats,
			Bookmarks:    bookmarkCount,
			Reviews:      len(reviews),
		},
		RecentProgress:  recent,
		RecentBookmarks: marks,
	}, nil
}

// MyLibrary returns the user's currently reading, completed and bookmarked books.
func (s *LibraryService) MyLibrary(ctx context.Context, userID uint) (*LibraryData, error) {
	reading, err := s.progress.ListCurrentlyReading(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.progress.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	marks, err := s.bookmarks.ListForUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	return &LibraryData{
		CurrentlyReading: reading,
		Completed:        completed,
		Bookmarked:       marks,
	}, nil
}

// BookDetail returns a book by slug with the user's progress, bookmark and
// review, the latest public reviews and the rating breakdown.
func (s *LibraryService) BookDetail(ctx context.Context, userID uint, slug string) (*BookDetailData, error) {
	book, err := s.catalog.GetBookBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	data := &BookDetailData{Book: book}

	p, err := s.progress.Get(ctx, userID, book.ID)
	switch {
	case err == nil:
		data.Progress = p
		data.ProgressPercent = progress.Percentage(p, book)
	case !errors.Is(err, library.ErrNotFound):
		return nil, err
	}

	if data.IsBookmarked, err = s.bookmarks.IsBookmarked(ctx, userID, book.ID); err != nil {
		return nil, err
	}
	if data.UserReview, err = s.reviews.GetForUserAndBook(ctx, userID, book.ID); err != nil {
		return nil, err
	}
	if data.Reviews, data.ReviewTotal, err = s.reviews.ListForBook(ctx, book.ID, true, detailReviewLimit, 0); err != nil {
		return nil, err
	}
	if data.Breakdown, err = s.ratings.Breakdown(ctx, book.ID); err != nil {
		return nil, err
	}

	return data, nil
}

// AnnotatedBook is a catalog entry with the viewing user's bookmark state.
type AnnotatedBook struct {
	entities.Book
	IsBookmarked bool `json:"is_bookmarked"`
}

// Browse lists catalog books and marks the ones the user has bookmarked.
func (s *LibraryService) Browse(ctx context.Context, userID uint, f books.BookFilter) ([]AnnotatedBook, int64, error) {
	list, total, err := s.catalog.ListBooks(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint, len(list))
	for i, b := range list {
		ids[i] = b.ID
	}
	marked, err := s.bookmarks.BookmarkedIDs(ctx, userID, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]AnnotatedBook, len(list))
	for i, b := range list {
		out[i] = AnnotatedBook{Book: b, IsBookmarked: marked[b.ID]}
	}
	return out, total, nil
}
