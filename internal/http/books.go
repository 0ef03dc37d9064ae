package http

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/services"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// BooksController serves the catalog.
type BooksController struct {
	catalog CatalogReader
	writer  CatalogWriter
	library LibraryViews
	queue   TaskQueue
	auditor ActivityAuditor
}

// NewBooksController creates a books controller. queue may be nil, in which
// case enrichment requests are refused.
func NewBooksController(catalog CatalogReader, writer CatalogWriter, library LibraryViews, queue TaskQueue, auditor ActivityAuditor) *BooksController {
	return &BooksController{
		catalog: catalog,
		writer:  writer,
		library: library,
		queue:   queue,
		auditor: auditorOrNoop(auditor),
	}
}

// lookupBook resolves the :slug parameter, responding on failure.
func lookupBook(c *gin.Context, catalog CatalogReader) (*entities.Book, bool) {
	book, err := catalog.GetBookBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondDomainError(c, err, "get book")
		return nil, false
	}
	return book, true
}

// List handles GET /api/books
func (bc *BooksController) List(c *gin.Context) {
	featured, ok := parseOptionalBool(c, "featured")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	filter := books.BookFilter{
		Query:      c.Query("q"),
		GenreSlug:  c.Query("genre"),
		AuthorSlug: c.Query("author"),
		Featured:   featured,
		Sort:       c.DefaultQuery("sort", books.SortTitle),
		Limit:      limit,
		Offset:     offset,
	}

	list, total, err := bc.library.Browse(c.Request.Context(), GetUserID(c), filter)
	if err != nil {
		respondDomainError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// Detail handles GET /api/books/:slug
func (bc *BooksController) Detail(c *gin.Context) {
	detail, err := bc.library.BookDetail(c.Request.Context(), GetUserID(c), c.Param("slug"))
	if err != nil {
		respondDomainError(c, err, "book detail")
		return
	}
	c.JSON(http.StatusOK, detail)
}

type createBookRequest struct {
	Title           string                `json:"title" binding:"required"`
	Description     string                `json:"description"`
	ISBN            string                `json:"isbn"`
	Language        entities.BookLanguage `json:"language"`
	Format          entities.BookFormat   `json:"format"`
	Publisher       string                `json:"publisher"`
	PublicationYear int                   `json:"publication_year"`
	PageCount       *int                  `json:"page_count"`
	CoverURL        string                `json:"cover_url"`
	IsFeatured      bool                  `json:"is_featured"`
	Authors         []string              `json:"authors"`
	Genres          []string              `json:"genres"`
}

// Create handles POST /api/books
func (bc *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title is required")
		return
	}

	book, err := bc.writer.CreateBook(c.Request.Context(), services.NewBookInput{
		Title:           req.Title,
		Description:     req.Description,
		ISBN:            req.ISBN,
		Language:        req.Language,
		Format:          req.Format,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		PageCount:       req.PageCount,
		CoverURL:        req.CoverURL,
		IsFeatured:      req.IsFeatured,
		Authors:         req.Authors,
		Genres:          req.Genres,
	})
	if err != nil {
		bc.auditor.LogCatalog(GetUserID(c), "book_create", 0, req.Title, err)
		respondDomainError(c, err, "create book")
		return
	}
	bc.auditor.LogCatalog(GetUserID(c), "book_create", book.ID, book.Title, nil)

	respondCreated(c, book)
}

type pageCountRequest struct {
	PageCount *int `json:"page_count" binding:"required"`
}

// SetPageCount handles PATCH /api/books/:slug/page-count
func (bc *BooksController) SetPageCount(c *gin.Context) {
	var req pageCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "page_count is required")
		return
	}

	book, ok := lookupBook(c, bc.catalog)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := bc.catalog.SetPageCount(ctx, book.ID, *req.PageCount); err != nil {
		respondDomainError(c, err, "set page count")
		return
	}
	bc.auditor.LogCatalog(GetUserID(c), "page_count_set", book.ID, book.Title, nil)

	updated, err := bc.catalog.GetBookByID(ctx, book.ID)
	if err != nil {
		respondDomainError(c, err, "reload book")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// openUpload opens the multipart file in field, responding on failure.
func openUpload(c *gin.Context, field string) (multipart.File, string, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		respondBadRequest(c, field+" file is required")
		return nil, "", false
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "cannot read uploaded file")
		return nil, "", false
	}
	return file, fileHeader.Filename, true
}

// UploadCover handles POST /api/books/:slug/cover with a multipart "cover" file.
func (bc *BooksController) UploadCover(c *gin.Context) {
	book, ok := lookupBook(c, bc.catalog)
	if !ok {
		return
	}
	file, filename, ok := openUpload(c, "cover")
	if !ok {
		return
	}
	defer file.Close()

	updated, err := bc.writer.ReplaceCover(c.Request.Context(), book.ID, filename, file)
	bc.auditor.LogCatalog(GetUserID(c), "cover_replace", book.ID, book.Title, err)
	if err != nil {
		respondDomainError(c, err, "replace cover")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UploadFile handles POST /api/books/:slug/file with a multipart "file" field.
// The stored format follows the uploaded content, not the filename.
func (bc *BooksController) UploadFile(c *gin.Context) {
	book, ok := lookupBook(c, bc.catalog)
	if !ok {
		return
	}
	file, filename, ok := openUpload(c, "file")
	if !ok {
		return
	}
	defer file.Close()

	updated, err := bc.writer.ReplaceFile(c.Request.Context(), book.ID, filename, file)
	bc.auditor.LogCatalog(GetUserID(c), "file_replace", book.ID, book.Title, err)
	if err != nil {
		respondDomainError(c, err, "replace book file")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Enrich handles POST /api/books/:slug/enrich
func (bc *BooksController) Enrich(c *gin.Context) {
	if bc.queue == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is not running", Code: CodeUnavailable})
		return
	}

	book, ok := lookupBook(c, bc.catalog)
	if !ok {
		return
	}

	taskID, err := bc.queue.Enqueue(c.Request.Context(), tasks.EnrichBookTask{BookID: book.ID})
	if err != nil {
		respondInternalError(c, err, "enqueue enrichment")
		return
	}
	respondAccepted(c, "enrichment queued", gin.H{"task_id": taskID, "book_id": book.ID})
}

// Genres handles GET /api/genres
func (bc *BooksController) Genres(c *gin.Context) {
	genres, err := bc.catalog.ListGenres(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list genres")
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// Authors handles GET /api/authors
func (bc *BooksController) Authors(c *gin.Context) {
	authors, err := bc.catalog.ListAuthors(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

// UploadAuthorPhoto handles POST /api/authors/:slug/photo with a multipart "photo" file.
func (bc *BooksController) UploadAuthorPhoto(c *gin.Context) {
	ctx := c.Request.Context()
	author, err := bc.catalog.GetAuthorBySlug(ctx, c.Param("slug"))
	if err != nil {
		respondDomainError(c, err, "get author")
		return
	}
	file, filename, ok := openUpload(c, "photo")
	if !ok {
		return
	}
	defer file.Close()

	handle, err := bc.writer.ReplaceAuthorPhoto(ctx, author.ID, filename, file)
	bc.auditor.LogCatalog(GetUserID(c), "author_photo_replace", 0, author.Name, err)
	if err != nil {
		respondDomainError(c, err, "replace author photo")
		return
	}
	author.PhotoPath = handle
	c.JSON(http.StatusOK, author)
}
