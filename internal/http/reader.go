package http

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/library"
)

// Headers carrying the reader's state alongside streamed book content.
const (
	HeaderCurrentPage  = "X-Current-Page"
	HeaderIsCompleted  = "X-Is-Completed"
	HeaderIsBookmarked = "X-Is-Bookmarked"
)

// ReaderController streams uploaded book files to signed-in readers.
type ReaderController struct {
	catalog   CatalogReader
	tracker   ProgressTracker
	bookmarks BookmarkSet
	media     MediaOpener
}

func NewReaderController(catalog CatalogReader, tracker ProgressTracker, bookmarks BookmarkSet, media MediaOpener) *ReaderController {
	return &ReaderController{
		catalog:   catalog,
		tracker:   tracker,
		bookmarks: bookmarks,
		media:     media,
	}
}

// Read handles GET /api/books/:slug/read
// Opening a book does not start tracking it; readers without progress get page 0.
func (rc *ReaderController) Read(c *gin.Context) {
	book, ok := lookupBook(c, rc.catalog)
	if !ok {
		return
	}
	if !book.HasFile() || rc.media == nil {
		respondDomainError(c, library.NotFound("book file", book.Slug), "read book")
		return
	}

	ctx := c.Request.Context()
	userID := GetUserID(c)

	page, completed := 0, false
	p, err := rc.tracker.Get(ctx, userID, book.ID)
	switch {
	case err == nil:
		page, completed = p.CurrentPage, p.IsCompleted
	case !errors.Is(err, library.ErrNotFound):
		respondInternalError(c, err, "read progress")
		return
	}

	bookmarked, err := rc.bookmarks.IsBookmarked(ctx, userID, book.ID)
	if err != nil {
		respondInternalError(c, err, "read bookmark")
		return
	}

	file, err := rc.media.Open(book.FilePath)
	if err != nil {
		respondDomainError(c, err, "open book file")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		respondInternalError(c, err, "stat book file")
		return
	}

	c.Header(HeaderCurrentPage, strconv.Itoa(page))
	c.Header(HeaderIsCompleted, strconv.FormatBool(completed))
	c.Header(HeaderIsBookmarked, strconv.FormatBool(bookmarked))
	c.Header("Content-Type", book.Format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", book.Slug+path.Ext(book.FilePath)))
	c.Header("Cache-Control", "private, no-store")

	http.ServeContent(c.Writer, c.Request, book.Slug, info.ModTime(), file)
}
