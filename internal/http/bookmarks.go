package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BookmarksController toggles bookmarks.
type BookmarksController struct {
	catalog   CatalogReader
	bookmarks BookmarkSet
	auditor   ActivityAuditor
}

func NewBookmarksController(catalog CatalogReader, bookmarks BookmarkSet, auditor ActivityAuditor) *BookmarksController {
	return &BookmarksController{
		catalog:   catalog,
		bookmarks: bookmarks,
		auditor:   auditorOrNoop(auditor),
	}
}

// Toggle handles POST /api/books/:slug/bookmark
// Responds with {"action": "added"|"removed"}.
func (bc *BookmarksController) Toggle(c *gin.Context) {
	book, ok := lookupBook(c, bc.catalog)
	if !ok {
		return
	}
	userID := GetUserID(c)

	result, err := bc.bookmarks.Toggle(c.Request.Context(), userID, book.ID)
	if err != nil {
		respondDomainError(c, err, "toggle bookmark")
		return
	}
	bc.auditor.LogBookmark(userID, book.ID, string(result.Action))

	c.JSON(http.StatusOK, result)
}

// Status handles GET /api/books/:slug/bookmark
func (bc *BookmarksController) Status(c *gin.Context) {
	book, ok := lookupBook(c, bc.catalog)
	if !ok {
		return
	}

	marked, err := bc.bookmarks.IsBookmarked(c.Request.Context(), GetUserID(c), book.ID)
	if err != nil {
		respondDomainError(c, err, "bookmark status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": book.ID, "is_bookmarked": marked})
}
