package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/media"
)

// ProfileData is a user's account together with their profile.
type ProfileData struct {
	User    *entities.User        `json:"user"`
	Profile *entities.UserProfile `json:"profile"`
}

// ProfileUpdate carries editable account and profile fields. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Bio       *string
}

// ProfileService manages profiles and their avatar files.
type ProfileService struct {
	store ProfileStore
	media MediaStore
	queue ReleaseQueue
}

// NewProfileService creates a profile service.
func NewProfileService(store ProfileStore, mediaStore MediaStore) *ProfileService {
	return &ProfileService{store: store, media: mediaStore}
}

// SetReleaseQueue sets where failed media releases are retried (optional).
func (s *ProfileService) SetReleaseQueue(queue ReleaseQueue) {
	s.queue = queue
}

// GetProfile returns the user's account and profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*ProfileData, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileData{User: user, Profile: profile}, nil
}

// UpdateProfile applies the non-nil fields of u.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint, u ProfileUpdate) (*ProfileData, error) {
	if u.FirstName != nil || u.LastName != nil || u.Email != nil {
		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		first, last, email := user.FirstName, user.LastName, user.Email
		if u.FirstName != nil {
			first = *u.FirstName
		}
		if u.LastName != nil {
			last = *u.LastName
		}
		if u.Email != nil {
			email = *u.Email
		}
		if err := s.store.UpdateAccount(ctx, userID, first, last, email); err != nil {
			return nil, err
		}
	}

	if u.Bio != nil {
		if _, err := s.store.UpdateBio(ctx, userID, *u.Bio); err != nil {
			return nil, err
		}
	}

	return s.GetProfile(ctx, userID)
}

// ReplaceAvatar stores a new avatar image and releases the one it replaces.
// If the profile cannot be updated the new file is released instead, so at
// most one avatar file per user is ever retained.
func (s *ProfileService) ReplaceAvatar(ctx context.Context, userID uint, filename string, r io.Reader) (*entities.UserProfile, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	handle, err := s.media.Save(media.KindAvatar, userID, filename, r)
	if err != nil {
		return nil, err
	}

	previous, err := s.store.SwapAvatar(ctx, userID, handle)
	if err != nil {
		s.release(ctx, handle)
		return nil, fmt.Errorf("replace avatar: %w", err)
	}
	s.release(ctx, previous)

	log.Printf("Profile: user %d replaced avatar", userID)
	return s.store.GetProfile(ctx, userID)
}

// RemoveAvatar clears the avatar and releases its file.
func (s *ProfileService) RemoveAvatar(ctx context.Context, userID uint) error {
	previous, err := s.store.ClearAvatar(ctx, userID)
	if err != nil {
		return err
	}
	s.release(ctx, previous)
	return nil
}

func (s *ProfileService) release(ctx context.Context, handle string) {
	releaseOrQueue(ctx, s.media, s.queue, handle)
}

// releaseOrQueue releases a media handle, handing it to the queue if the
// release fails.
func releaseOrQueue(ctx context.Context, store MediaStore, queue ReleaseQueue, handle string) {
	if handle == "" {
		return
	}
	err := store.Release(handle)
	if err == nil {
		return
	}

	log.Printf("Media: failed to release %s: %v", handle, err)
	if queue == nil {
		return
	}
	if err := queue.EnqueueRelease(ctx, handle); err != nil {
		log.Printf("Media: failed to queue release of %s: %v", handle, err)
	}
}
