package library

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestValidateRating(t *testing.T) {
	tests := []struct {
		rating  int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{3, false},
		{5, false},
		{6, true},
		{-1, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.rating), func(t *testing.T) {
			err := ValidateRating(tt.rating)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePage(t *testing.T) {
	assert.NoError(t, ValidatePage(0, nil))
	assert.NoError(t, ValidatePage(500, nil))
	assert.NoError(t, ValidatePage(200, intPtr(200)))
	assert.ErrorIs(t, ValidatePage(-1, nil), ErrValidation)
	assert.ErrorIs(t, ValidatePage(201, intPtr(200)), ErrValidation)
}

func TestIsCompletePage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		pageCount *int
		want      bool
	}{
		{"exact threshold", 190, intPtr(200), true},
		{"just below threshold", 189, intPtr(200), false},
		{"last page", 200, intPtr(200), true},
		{"unknown page count", 1000, nil, false},
		{"zero page count", 10, intPtr(0), false},
		{"fractional threshold rounds up", 95, intPtr(99), true},
		{"fractional threshold below", 94, intPtr(99), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompletePage(tt.page, tt.pageCount))
		})
	}
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0, ProgressPercentage(50, nil))
	assert.Equal(t, 25, ProgressPercentage(50, intPtr(200)))
	assert.Equal(t, 33, ProgressPercentage(1, intPtr(3)))
	assert.Equal(t, 100, ProgressPercentage(250, intPtr(200)))
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = fmt.Errorf("load book: %w", NotFound("book", 7))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "load book: book 7 not found", err.Error())

	dup := fmt.Errorf("create: %w", &DuplicateReviewError{UserID: 1, BookID: 2, ExistingID: 9})
	var dupErr *DuplicateReviewError
	assert.True(t, errors.Is(dup, ErrDuplicateReview))
	assert.True(t, errors.As(dup, &dupErr))
	assert.Equal(t, uint(9), dupErr.ExistingID)

	var vErr *ValidationError
	assert.True(t, errors.As(Invalid("rating", "bad"), &vErr))
	assert.Equal(t, "rating", vErr.Field)
}
