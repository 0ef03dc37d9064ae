// Package progress tracks how far each user has read in each book.
//
// Progress is a single row per (user, book). Advance records the latest
// reported page and marks the book completed once the page reaches
// library.CompletionPercent of the book's page count. Completion is sticky:
// a later report of a lower page moves current_page back but leaves the book
// completed.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Repository handles reading progress persistence.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new reading progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Advance records that the user is on page of the book.
func (r *Repository) Advance(ctx context.Context, userID, bookID uint, page int) (*entities.ReadingProgress, error) {
	if page < 0 {
		return nil, library.Invalid("page", "must not be negative")
	}

	var progress entities.ReadingProgress
	err := database.RetryOnConflict(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			book, err := loadBook(tx, bookID)
			if err != nil {
				return err
			}
			if err := library.ValidatePage(page, book.PageCount); err != nil {
				return err
			}

			progress, err = findOrNew(tx, userID, bookID)
			if err != nil {
				return err
			}

			now := r.now()
			progress.CurrentPage = page
			progress.LastRead = now
			if !progress.IsCompleted && library.IsCompletePage(page, book.PageCount) {
				progress.IsCompleted = true
				progress.CompletedAt = &now
				progress.JustCompleted = true
			}

			return save(tx, &progress)
		})
	})
	if err != nil {
		return nil, classify(err, userID)
	}

	if progress.JustCompleted {
		log.Printf("Reading progress: user %d completed book %d at page %d", userID, bookID, page)
	}
	return &progress, nil
}

// SetCompleted explicitly marks a book as finished or not finished. It is the
// only way to clear completion.
func (r *Repository) SetCompleted(ctx context.Context, userID, bookID uint, completed bool) (*entities.ReadingProgress, error) {
	var progress entities.ReadingProgress
	err := database.RetryOnConflict(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := loadBook(tx, bookID); err != nil {
				return err
			}

			var err error
			progress, err = findOrNew(tx, userID, bookID)
			if err != nil {
				return err
			}

			now := r.now()
			progress.LastRead = now
			switch {
			case completed && !progress.IsCompleted:
				progress.IsCompleted = true
				progress.CompletedAt = &now
				progress.JustCompleted = true
			case !completed:
				progress.IsCompleted = false
				progress.CompletedAt = nil
			}

			return save(tx, &progress)
		})
	})
	if err != nil {
		return nil, classify(err, userID)
	}
	return &progress, nil
}

// Get returns the user's progress in a book.
func (r *Repository) Get(ctx context.Context, userID, bookID uint) (*entities.ReadingProgress, error) {
	var progress entities.ReadingProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("reading progress", bookID)
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListCurrentlyReading returns unfinished books, most recently read first.
func (r *Repository) ListCurrentlyReading(ctx context.Context, userID uint) ([]entities.ReadingProgress, error) {
	return r.list(ctx, userID, "is_completed = ?", false, 0)
}

// ListCompleted returns finished books, most recently read first.
func (r *Repository) ListCompleted(ctx context.Context, userID uint) ([]entities.ReadingProgress, error) {
	return r.list(ctx, userID, "is_completed = ?", true, 0)
}

// ListRecent returns the user's most recently read books.
func (r *Repository) ListRecent(ctx context.Context, userID uint, limit int) ([]entities.ReadingProgress, error) {
	return r.list(ctx, userID, "", nil, limit)
}

func (r *Repository) list(ctx context.Context, userID uint, cond string, arg any, limit int) ([]entities.ReadingProgress, error) {
	query := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID)
	if cond != "" {
		query = query.Where(cond, arg)
	}
	query = query.Order("last_read DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []entities.ReadingProgress
	err := query.Find(&items).Error
	return items, err
}

// ReadingStats summarises a user's reading.
type ReadingStats struct {
	TotalBooks int64 `json:"total_books"`
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"in_progress"`
	TotalPages int64 `json:"total_pages"`
}

// Stats returns reading totals for a user. TotalPages sums the page counts
// of every tracked book.
func (r *Repository) Stats(ctx context.Context, userID uint) (ReadingStats, error) {
	var row struct {
		Total     int64
		Completed int64
		Pages     int64
	}
	err := r.db.WithContext(ctx).Model(&entities.ReadingProgress{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN reading_progress.is_completed THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(SUM(books.page_count), 0) AS pages").
		Joins("JOIN books ON books.id = reading_progress.book_id").
		Where("reading_progress.user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return ReadingStats{}, fmt.Errorf("reading stats for user %d: %w", userID, err)
	}

	return ReadingStats{
		TotalBooks: row.Total,
		Completed:  row.Completed,
		InProgress: row.Total - row.Completed,
		TotalPages: row.Pages,
	}, nil
}

// Percentage returns how far through the book the progress is, 0..100.
func Percentage(p *entities.ReadingProgress, book *entities.Book) int {
	if p == nil || book == nil {
		return 0
	}
	if p.IsCompleted && !book.HasPageCount() {
		return 100
	}
	return library.ProgressPercentage(p.CurrentPage, book.PageCount)
}

func loadBook(tx *gorm.DB, bookID uint) (*entities.Book, error) {
	var book entities.Book
	err := tx.Select("id", "page_count").First(&book, bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("book", bookID)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func findOrNew(tx *gorm.DB, userID, bookID uint) (entities.ReadingProgress, error) {
	var progress entities.ReadingProgress
	err := tx.Where("user_id = ? AND book_id = ?", userID, bookID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ReadingProgress{UserID: userID, BookID: bookID}, nil
	}
	return progress, err
}

func save(tx *gorm.DB, progress *entities.ReadingProgress) error {
	if progress.ID == 0 {
		return tx.Create(progress).Error
	}
	return tx.Save(progress).Error
}

func classify(err error, userID uint) error {
	if database.IsForeignKeyViolation(err) {
		return library.NotFound("user", userID)
	}
	return err
}
