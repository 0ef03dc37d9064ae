package library

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateReview = errors.New("review already exists for this book")
	ErrForbidden       = errors.New("not allowed to modify this resource")
)

// NotFoundError reports a missing book, user, review or profile.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound is shorthand for &NotFoundError{Resource: resource, ID: id}.
func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports an input that violates a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid is shorthand for &ValidationError{Field: field, Message: message}.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// DuplicateReviewError is returned when creating a second review for a
// (user, book) pair. ExistingID points at the review to update instead.
type DuplicateReviewError struct {
	UserID     uint
	BookID     uint
	ExistingID uint
}

func (e *DuplicateReviewError) Error() string {
	return fmt.Sprintf("user %d already reviewed book %d", e.UserID, e.BookID)
}

func (e *DuplicateReviewError) Is(target error) bool {
	return target == ErrDuplicateReview
}
