package library

import "fmt"

const (
	MinRating = 1
	MaxRating = 5

	// CompletionPercent is the share of a book's pages that counts as finished.
	CompletionPercent = 95

	MaxBioLength         = 500
	MaxReviewTitleLength = 200
)

// ValidateRating checks that a rating is an integer star value in [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return Invalid("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

// ValidatePage checks a reported page against the book's page count, if known.
func ValidatePage(page int, pageCount *int) error {
	if page < 0 {
		return Invalid("page", "must not be negative")
	}
	if pageCount != nil && *pageCount > 0 && page > *pageCount {
		return Invalid("page", fmt.Sprintf("must not exceed page count %d", *pageCount))
	}
	return nil
}

// IsCompletePage reports whether page reaches the completion threshold.
// Books without a known page count never complete automatically.
func IsCompletePage(page int, pageCount *int) bool {
	if pageCount == nil || *pageCount <= 0 {
		return false
	}
	return page*100 >= CompletionPercent*(*pageCount)
}

// ProgressPercentage returns how far through the book a page is, capped at 100.
func ProgressPercentage(page int, pageCount *int) int {
	if pageCount == nil || *pageCount <= 0 {
		return 0
	}
	pct := page * 100 / *pageCount
	if pct > 100 {
		return 100
	}
	return pct
}
