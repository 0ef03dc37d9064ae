// Package reviews is the review ledger: it owns Review rows and keeps each
// book's rating aggregate in step with them.
//
// Every successful create, update or delete recomputes the book's aggregate
// inside the same transaction, so readers never observe a review set and an
// aggregate that disagree.
//
// # Usage
//
//	ledger := reviews.NewRepository(db, ratings.NewAggregator(db))
//	review, created, err := ledger.Upsert(ctx, reviews.ReviewInput{UserID: 1, BookID: 7, Rating: 4})
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

// ReviewInput carries the caller-supplied fields of a review.
type ReviewInput struct {
	UserID   uint
	BookID   uint
	Rating   int
	Title    string
	Content  string
	IsPublic bool
}

func (in *ReviewInput) normalize() error {
	if err := library.ValidateRating(in.Rating); err != nil {
		return err
	}
	in.Title = strings.TrimSpace(in.Title)
	if utf8.RuneCountInString(in.Title) > library.MaxReviewTitleLength {
		return library.Invalid("title", fmt.Sprintf("must be at most %d characters", library.MaxReviewTitleLength))
	}
	in.Content = strings.TrimSpace(in.Content)
	return nil
}

// Repository handles review persistence.
type Repository struct {
	db         *gorm.DB
	aggregator *ratings.Aggregator
}

// NewRepository creates a new review ledger.
func NewRepository(db *gorm.DB, aggregator *ratings.Aggregator) *Repository {
	return &Repository{db: db, aggregator: aggregator}
}

// Upsert creates the user's review of a book, or updates it if one exists.
// It reports whether a new review was created. An insert that loses a race
// against a concurrent create is retried once and lands on the update path.
func (r *Repository) Upsert(ctx context.Context, in ReviewInput) (*entities.Review, bool, error) {
	if err := in.normalize(); err != nil {
		return nil, false, err
	}

	var review entities.Review
	var created bool

	err := database.RetryOnConflict(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := requireBook(tx, in.BookID); err != nil {
				return err
			}

			review = entities.Review{}
			err := tx.Where("user_id = ? AND book_id = ?", in.UserID, in.BookID).First(&review).Error
			switch {
			case err == nil:
				created = false
				applyInput(&review, in)
				if err := tx.Save(&review).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				created = true
				review = entities.Review{UserID: in.UserID, BookID: in.BookID}
				applyInput(&review, in)
				if err := tx.Create(&review).Error; err != nil {
					return err
				}
			default:
				return err
			}

			_, err = r.aggregator.RecomputeTx(tx, in.BookID)
			return err
		})
	})
	if err != nil {
		return nil, false, classify(err, in)
	}

	return &review, created, nil
}

// Create adds a new review. It fails with DuplicateReviewError if the user
// already reviewed the book.
func (r *Repository) Create(ctx context.Context, in ReviewInput) (*entities.Review, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var review entities.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBook(tx, in.BookID); err != nil {
			return err
		}

		var existing entities.Review
		err := tx.Select("id").Where("user_id = ? AND book_id = ?", in.UserID, in.BookID).First(&existing).Error
		if err == nil {
			return &library.DuplicateReviewError{UserID: in.UserID, BookID: in.BookID, ExistingID: existing.ID}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		review = entities.Review{UserID: in.UserID, BookID: in.BookID}
		applyInput(&review, in)
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		_, err = r.aggregator.RecomputeTx(tx, in.BookID)
		return err
	})
	if err != nil {
		return nil, classify(err, in)
	}

	return &review, nil
}

// Update changes a review owned by userID. Reviews owned by someone else are
// reported as not found.
func (r *Repository) Update(ctx context.Context, reviewID, userID uint, in ReviewInput) (*entities.Review, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var review entities.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", reviewID, userID).First(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return library.NotFound("review", reviewID)
			}
			return err
		}

		applyInput(&review, in)
		if err := tx.Save(&review).Error; err != nil {
			return err
		}

		_, err := r.aggregator.RecomputeTx(tx, review.BookID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update review %d: %w", reviewID, err)
	}

	return &review, nil
}

// Delete removes a review owned by userID and returns it.
func (r *Repository) Delete(ctx context.Context, reviewID, userID uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", reviewID, userID).First(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return library.NotFound("review", reviewID)
			}
			return err
		}

		result := tx.Delete(&entities.Review{}, review.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return library.NotFound("review", reviewID)
		}

		_, err := r.aggregator.RecomputeTx(tx, review.BookID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete review %d: %w", reviewID, err)
	}

	log.Printf("Review ledger: user %d deleted review %d of book %d", userID, reviewID, review.BookID)
	return &review, nil
}

// GetByID returns a review with its author loaded.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.WithContext(ctx).Preload("User").First(&review, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("review", id)
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetForUserAndBook returns the user's review of a book, or nil if there is none.
func (r *Repository) GetForUserAndBook(ctx context.Context, userID, bookID uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListForBook returns a page of a book's reviews, newest first, and the total
// matching count.
func (r *Repository) ListForBook(ctx context.Context, bookID uint, publicOnly bool, limit, offset int) ([]entities.Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.Review{}).Where("book_id = ?", bookID)
	if publicOnly {
		query = query.Where("is_public = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []entities.Review
	query = query.Preload("User").Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// ListForUser returns every review written by a user, most recently edited first.
func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]entities.Review, error) {
	var reviews []entities.Review
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func applyInput(review *entities.Review, in ReviewInput) {
	review.Rating = in.Rating
	review.Title = in.Title
	review.Content = in.Content
	review.IsPublic = in.IsPublic
}

func requireBook(tx *gorm.DB, bookID uint) error {
	var count int64
	if err := tx.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return library.NotFound("book", bookID)
	}
	return nil
}

// classify maps storage-level failures of a write to domain errors.
func classify(err error, in ReviewInput) error {
	switch {
	case database.IsUniqueViolation(err):
		return &library.DuplicateReviewError{UserID: in.UserID, BookID: in.BookID}
	case database.IsForeignKeyViolation(err):
		return library.NotFound("user", in.UserID)
	default:
		return err
	}
}
