// Package bookmarks stores the set of books each user has saved.
//
// # Usage
//
//	repo := bookmarks.NewRepository(db)
//	result, err := repo.Toggle(ctx, userID, bookID) // result.Action is "added" or "removed"
package bookmarks

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Action is the state change performed by Toggle.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// ToggleResult reports what Toggle did. Bookmark is set when Action is added.
type ToggleResult struct {
	Action   Action             `json:"action"`
	Bookmark *entities.Bookmark `json:"bookmark,omitempty"`
}

// Repository handles bookmark persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bookmarks repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Toggle removes the bookmark if present and adds it otherwise.
func (r *Repository) Toggle(ctx context.Context, userID, bookID uint) (ToggleResult, error) {
	var result ToggleResult
	err := database.RetryOnConflict(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return library.NotFound("book", bookID)
			}

			deleted := tx.Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&entities.Bookmark{})
			if deleted.Error != nil {
				return deleted.Error
			}
			if deleted.RowsAffected > 0 {
				result = ToggleResult{Action: ActionRemoved}
				return nil
			}

			bookmark := entities.Bookmark{UserID: userID, BookID: bookID}
			if err := tx.Create(&bookmark).Error; err != nil {
				return err
			}
			result = ToggleResult{Action: ActionAdded, Bookmark: &bookmark}
			return nil
		})
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ToggleResult{}, library.NotFound("user", userID)
		}
		return ToggleResult{}, err
	}
	return result, nil
}

// IsBookmarked reports whether the user has bookmarked the book.
func (r *Repository) IsBookmarked(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Bookmark{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns the user's bookmarks with books loaded, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uint, limit int) ([]entities.Bookmark, error) {
	query := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []entities.Bookmark
	err := query.Find(&items).Error
	return items, err
}

// BookmarkedIDs returns which of bookIDs the user has bookmarked.
func (r *Repository) BookmarkedIDs(ctx context.Context, userID uint, bookIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if len(bookIDs) == 0 {
		return set, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&entities.Bookmark{}).
		Where("user_id = ? AND book_id IN ?", userID, bookIDs).
		Pluck("book_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Count returns how many books the user has bookmarked.
func (r *Repository) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Bookmark{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
