// Package users provides database operations for user accounts and profiles.
//
// # Usage
//
//	repo := users.NewRepository(db, ratings.NewAggregator(db))
//	profile, err := repo.GetProfile(ctx, userID)
package users

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

// Repository handles all user and profile database operations.
type Repository struct {
	db         *gorm.DB
	aggregator *ratings.Aggregator
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB, aggregator *ratings.Aggregator) *Repository {
	return &Repository{db: db, aggregator: aggregator}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("user", username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).Order("username").Find(&users).Error
	return users, err
}

// GetProfile returns the user's profile, creating an empty one on first access.
func (r *Repository) GetProfile(ctx context.Context, userID uint) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	err := database.RetryOnConflict(func() error {
		profile = entities.UserProfile{}
		err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		profile = entities.UserProfile{UserID: userID}
		return r.db.WithContext(ctx).Create(&profile).Error
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, library.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get profile for user %d: %w", userID, err)
	}
	return &profile, nil
}

// UpdateAccount changes the user's name and email.
func (r *Repository) UpdateAccount(ctx context.Context, userID uint, firstName, lastName, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return library.Invalid("email", "must not be empty")
	}

	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"first_name": strings.TrimSpace(firstName),
		"last_name":  strings.TrimSpace(lastName),
		"email":      email,
	})
	if result.Error != nil {
		if database.IsUniqueViolation(result.Error) {
			return library.Invalid("email", "is already in use")
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return library.NotFound("user", userID)
	}
	return nil
}

// UpdateBio sets the profile bio.
func (r *Repository) UpdateBio(ctx context.Context, userID uint, bio string) (*entities.UserProfile, error) {
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > library.MaxBioLength {
		return nil, library.Invalid("bio", fmt.Sprintf("must be at most %d characters", library.MaxBioLength))
	}

	profile, err := r.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Bio = bio
	if err := r.db.WithContext(ctx).Model(profile).Update("bio", bio).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// SwapAvatar stores a new avatar handle and returns the handle it replaced,
// which the caller must release.
func (r *Repository) SwapAvatar(ctx context.Context, userID uint, handle string) (string, error) {
	if _, err := r.GetProfile(ctx, userID); err != nil {
		return "", err
	}

	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile entities.UserProfile
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return err
		}
		previous = profile.AvatarPath
		return tx.Model(&profile).Update("avatar_path", handle).Error
	})
	if err != nil {
		return "", fmt.Errorf("swap avatar for user %d: %w", userID, err)
	}
	return previous, nil
}

// ClearAvatar removes the avatar handle and returns it.
func (r *Repository) ClearAvatar(ctx context.Context, userID uint) (string, error) {
	return r.SwapAvatar(ctx, userID, "")
}

// DeleteUser removes a user. Reviews, progress, bookmarks and the profile go
// with it, and the ratings of every book the user had reviewed are recomputed
// in the same transaction. It returns the avatar handle to release.
func (r *Repository) DeleteUser(ctx context.Context, userID uint) (string, error) {
	var avatar string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bookIDs []uint
		if err := tx.Model(&entities.Review{}).Where("user_id = ?", userID).Distinct().Pluck("book_id", &bookIDs).Error; err != nil {
			return err
		}

		var profile entities.UserProfile
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		avatar = profile.AvatarPath

		result := tx.Delete(&entities.User{}, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return library.NotFound("user", userID)
		}

		for _, bookID := range bookIDs {
			if _, err := r.aggregator.RecomputeTx(tx, bookID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("delete user %d: %w", userID, err)
	}

	log.Printf("Users: deleted user %d", userID)
	return avatar, nil
}
