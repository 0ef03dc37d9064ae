package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// ProgressController exposes the reading progress tracker.
type ProgressController struct {
	catalog CatalogReader
	tracker ProgressTracker
	auditor ActivityAuditor
}

func NewProgressController(catalog CatalogReader, tracker ProgressTracker, auditor ActivityAuditor) *ProgressController {
	return &ProgressController{
		catalog: catalog,
		tracker: tracker,
		auditor: auditorOrNoop(auditor),
	}
}

// ProgressResponse is a progress row with its percentage of the book.
type ProgressResponse struct {
	*entities.ReadingProgress
	Percentage int  `json:"percentage"`
	PageCount  *int `json:"page_count,omitempty"`
}

func newProgressResponse(p *entities.ReadingProgress, book *entities.Book) ProgressResponse {
	return ProgressResponse{
		ReadingProgress: p,
		Percentage:      progress.Percentage(p, book),
		PageCount:       book.PageCount,
	}
}

type advanceRequest struct {
	CurrentPage *int `json:"current_page" binding:"required"`
}

// Advance handles PUT /api/books/:slug/progress
// The last reported page wins, even when it is lower than before. Reaching
// the completion threshold completes the book for good.
func (pc *ProgressController) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "current_page is required")
		return
	}
	book, ok := lookupBook(c, pc.catalog)
	if !ok {
		return
	}
	userID := GetUserID(c)

	p, err := pc.tracker.Advance(c.Request.Context(), userID, book.ID, *req.CurrentPage)
	if err != nil {
		respondDomainError(c, err, "advance progress")
		return
	}
	if p.JustCompleted {
		pc.auditor.LogCompletion(userID, book.ID, p.CurrentPage)
	}

	c.JSON(http.StatusOK, newProgressResponse(p, book))
}

type completeRequest struct {
	Completed *bool `json:"completed"`
}

// SetCompleted handles POST /api/books/:slug/progress/complete
// An absent body marks the book completed; {"completed": false} clears it.
func (pc *ProgressController) SetCompleted(c *gin.Context) {
	var req completeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "invalid body")
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	book, ok := lookupBook(c, pc.catalog)
	if !ok {
		return
	}
	userID := GetUserID(c)

	p, err := pc.tracker.SetCompleted(c.Request.Context(), userID, book.ID, completed)
	if err != nil {
		respondDomainError(c, err, "set completion")
		return
	}
	if p.JustCompleted {
		pc.auditor.LogCompletion(userID, book.ID, p.CurrentPage)
	}

	c.JSON(http.StatusOK, newProgressResponse(p, book))
}

// Get handles GET /api/books/:slug/progress
func (pc *ProgressController) Get(c *gin.Context) {
	book, ok := lookupBook(c, pc.catalog)
	if !ok {
		return
	}

	p, err := pc.tracker.Get(c.Request.Context(), GetUserID(c), book.ID)
	if err != nil {
		respondDomainError(c, err, "get progress")
		return
	}
	c.JSON(http.StatusOK, newProgressResponse(p, book))
}
