package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/reviews"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// ReviewsController exposes the review ledger.
type ReviewsController struct {
	catalog   CatalogReader
	ledger    ReviewLedger
	breakdown RatingBreakdown
	auditor   ActivityAuditor
}

func NewReviewsController(catalog CatalogReader, ledger ReviewLedger, breakdown RatingBreakdown, auditor ActivityAuditor) *ReviewsController {
	return &ReviewsController{
		catalog:   catalog,
		ledger:    ledger,
		breakdown: breakdown,
		auditor:   auditorOrNoop(auditor),
	}
}

type reviewRequest struct {
	Rating   int    `json:"rating"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic *bool  `json:"is_public"`
}

func (r reviewRequest) input(userID, bookID uint) reviews.ReviewInput {
	isPublic := true
	if r.IsPublic != nil {
		isPublic = *r.IsPublic
	}
	return reviews.ReviewInput{
		UserID:   userID,
		BookID:   bookID,
		Rating:   r.Rating,
		Title:    r.Title,
		Content:  r.Content,
		IsPublic: isPublic,
	}
}

// BookRating is the stored aggregate of a book after a ledger write.
type BookRating struct {
	BookID        uint    `json:"book_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

// ReviewResponse is returned by ledger writes.
type ReviewResponse struct {
	Review  *entities.Review `json:"review,omitempty"`
	Created bool             `json:"created"`
	Rating  BookRating       `json:"rating"`
}

func (rc *ReviewsController) bookRating(c *gin.Context, bookID uint) (BookRating, bool) {
	book, err := rc.catalog.GetBookByID(c.Request.Context(), bookID)
	if err != nil {
		respondDomainError(c, err, "reload book rating")
		return BookRating{}, false
	}
	return BookRating{
		BookID:        book.ID,
		AverageRating: book.AverageRating,
		ReviewCount:   book.ReviewCount,
	}, true
}

// List handles GET /api/books/:slug/reviews
// Only public reviews are listed; the breakdown covers all of them.
func (rc *ReviewsController) List(c *gin.Context) {
	book, ok := lookupBook(c, rc.catalog)
	if !ok {
		return
	}
	limit, offset := parsePagination(c)
	ctx := c.Request.Context()

	list, total, err := rc.ledger.ListForBook(ctx, book.ID, true, limit, offset)
	if err != nil {
		respondDomainError(c, err, "list reviews")
		return
	}
	breakdown, err := rc.breakdown.Breakdown(ctx, book.ID)
	if err != nil {
		respondDomainError(c, err, "rating breakdown")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":   newPaginatedResponse(list, total, limit, offset),
		"breakdown": breakdown,
		"rating": BookRating{
			BookID:        book.ID,
			AverageRating: book.AverageRating,
			ReviewCount:   book.ReviewCount,
		},
	})
}

// Upsert handles PUT /api/books/:slug/review
func (rc *ReviewsController) Upsert(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid review body")
		return
	}
	book, ok := lookupBook(c, rc.catalog)
	if !ok {
		return
	}
	userID := GetUserID(c)

	review, created, err := rc.ledger.Upsert(c.Request.Context(), req.input(userID, book.ID))
	if err != nil {
		rc.auditor.LogReview(userID, "review_upsert", 0, book.ID, req.Rating, err)
		respondDomainError(c, err, "upsert review")
		return
	}
	action := "review_update"
	if created {
		action = "review_create"
	}
	rc.auditor.LogReview(userID, action, review.ID, book.ID, review.Rating, nil)

	rating, ok := rc.bookRating(c, book.ID)
	if !ok {
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, ReviewResponse{Review: review, Created: created, Rating: rating})
}

// Create handles POST /api/books/:slug/reviews
// A second review for the same book is a 409 pointing at the existing one.
func (rc *ReviewsController) Create(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid review body")
		return
	}
	book, ok := lookupBook(c, rc.catalog)
	if !ok {
		return
	}
	userID := GetUserID(c)

	review, err := rc.ledger.Create(c.Request.Context(), req.input(userID, book.ID))
	if err != nil {
		rc.auditor.LogReview(userID, "review_create", 0, book.ID, req.Rating, err)
		respondDomainError(c, err, "create review")
		return
	}
	rc.auditor.LogReview(userID, "review_create", review.ID, book.ID, review.Rating, nil)

	rating, ok := rc.bookRating(c, book.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, ReviewResponse{Review: review, Created: true, Rating: rating})
}

// Delete handles DELETE /api/reviews/:id
// Reviews owned by someone else are reported as not found.
func (rc *ReviewsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	review, err := rc.ledger.Delete(c.Request.Context(), id, userID)
	if err != nil {
		rc.auditor.LogReview(userID, "review_delete", id, 0, 0, err)
		respondDomainError(c, err, "delete review")
		return
	}
	rc.auditor.LogReview(userID, "review_delete", review.ID, review.BookID, review.Rating, nil)

	rating, ok := rc.bookRating(c, review.BookID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ReviewResponse{Rating: rating})
}
