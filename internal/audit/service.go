package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until all pending asynchronous writes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogReview records a review ledger write. action is one of review_create,
// review_update or review_delete.
func (s *Service) LogReview(userID uint, action string, reviewID, bookID uint, rating int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventReview,
		Action:      action,
		Description: fmt.Sprintf("Review %d on book %d", reviewID, bookID),
		EntityType:  "review",
		Status:      entities.AuditStatusSuccess,
	}
	if reviewID != 0 {
		event.EntityID = &reviewID
	}
	event.Metadata = encodeMetadata(map[string]any{"book_id": bookID, "rating": rating})
	markFailed(event, err)

	s.LogAsync(event)
}

// LogBookmark records a bookmark toggle with its outcome ("added" or "removed").
func (s *Service) LogBookmark(userID, bookID uint, outcome string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBookmark,
		Action:      "bookmark_" + outcome,
		Description: fmt.Sprintf("Bookmark %s for book %d", outcome, bookID),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogCompletion records a book reaching the completed state.
func (s *Service) LogCompletion(userID, bookID uint, page int) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventProgress,
		Action:      "progress_completed",
		Description: fmt.Sprintf("Completed book %d at page %d", bookID, page),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogProfile records a profile change such as avatar_replace.
func (s *Service) LogProfile(userID uint, action string, err error) {
	event := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventProfile,
		Action:     action,
		EntityType: "user",
		EntityID:   &userID,
		Status:     entities.AuditStatusSuccess,
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogCatalog records a catalog change made by an editor or a background task.
func (s *Service) LogCatalog(userID uint, action string, bookID uint, description string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCatalog,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "book",
		Status:      entities.AuditStatusSuccess,
	}
	if bookID != 0 {
		event.EntityID = &bookID
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogReconcile records the outcome of a rating reconcile run.
func (s *Service) LogReconcile(result *ratings.ReconcileResult, err error) {
	event := &entities.AuditEvent{
		EventType: entities.AuditEventReconcile,
		Action:    "ratings_reconcile",
		Status:    entities.AuditStatusSuccess,
	}
	if result != nil {
		event.Description = fmt.Sprintf("Checked %d books, repaired %d, failed %d",
			result.Checked, result.Changed, result.Failed)
		event.Metadata = encodeMetadata(map[string]any{"drifted": result.Drifted})
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// GetEvents retrieves filtered, paginated audit events.
func (s *Service) GetEvents(filter audit.EventFilter) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func markFailed(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

func encodeMetadata(metadata map[string]any) string {
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
