// Package library defines the error taxonomy and rules shared by the
// reading-tracker core: review ledger, rating aggregation, reading progress
// and bookmarks.
//
// # Errors
//
// Callers classify failures with errors.Is against the sentinels:
//
//	if errors.Is(err, library.ErrDuplicateReview) { ... } // convert create to update
//	if errors.Is(err, library.ErrNotFound) { ... }        // 404
//	if errors.Is(err, library.ErrValidation) { ... }      // 400
//
// The typed errors (NotFoundError, ValidationError, DuplicateReviewError)
// carry details and are reachable with errors.As.
package library
