package metadata

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// MetadataProvider defines the interface for fetching book metadata.
type MetadataProvider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// BookUpdater is the slice of the catalog store the enricher writes through.
type BookUpdater interface {
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
	UpdateBookDetails(ctx context.Context, id uint, fields books.BookUpdateFields) error
	SetPageCount(ctx context.Context, id uint, pages int) error
	GetBooksMissingPageCount(ctx context.Context) ([]entities.Book, error)
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
	Source        string         `json:"source"`
	SearchMethod  string         `json:"search_method"` // "isbn" or "title"
}

// CoverChanged reports whether the enrichment set a new cover URL.
func (r *EnrichmentResult) CoverChanged() bool {
	return contains(r.FieldsUpdated, "cover_url")
}

// Enricher fills descriptive catalog fields from an external source. It never
// writes rating fields.
type Enricher struct {
	provider MetadataProvider
	db       BookUpdater
}

// NewEnricher creates a new Enricher with the given metadata provider and store.
func NewEnricher(provider MetadataProvider, db BookUpdater) *Enricher {
	return &Enricher{
		provider: provider,
		db:       db,
	}
}

// EnrichBook fetches metadata for a book and updates it in the database.
// It tries ISBN first (if available), then falls back to title+author search.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.db.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	var metadata *BookMetadata
	var searchMethod string

	if book.ISBN != nil && *book.ISBN != "" {
		metadata, err = e.provider.SearchByISBN(ctx, *book.ISBN)
		if err == nil && metadata != nil {
			searchMethod = "isbn"
		} else {
			metadata = nil
		}
	}

	if metadata == nil {
		metadata, err = e.provider.SearchByTitle(ctx, book.Title, primaryAuthor(book))
		if err != nil {
			return nil, fmt.Errorf("metadata search failed: %w", err)
		}
		searchMethod = "title"
	}

	updates, pageCount, fieldsUpdated := e.buildUpdates(book, metadata)

	if len(fieldsUpdated) > 0 {
		if err := e.db.UpdateBookDetails(ctx, bookID, updates); err != nil {
			return nil, fmt.Errorf("update book metadata: %w", err)
		}
		if pageCount > 0 {
			if err := e.db.SetPageCount(ctx, bookID, pageCount); err != nil {
				return nil, fmt.Errorf("update page count: %w", err)
			}
		}

		book, err = e.db.GetBookByID(ctx, bookID)
		if err != nil {
			return nil, fmt.Errorf("refresh book: %w", err)
		}
		log.Printf("Metadata: book %d enriched via %s (%v)", bookID, searchMethod, fieldsUpdated)
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fieldsUpdated,
		Source:        "openlibrary",
		SearchMethod:  searchMethod,
	}, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func primaryAuthor(book *entities.Book) string {
	if len(book.Authors) == 0 {
		return ""
	}
	return book.Authors[0].Name
}

// BulkEnrichmentResult contains the summary of a bulk enrichment operation.
type BulkEnrichmentResult struct {
	TotalBooks int      `json:"total_books"`
	Enriched   int      `json:"enriched"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// EnrichAllMissing enriches every book that has no page count yet.
func (e *Enricher) EnrichAllMissing(ctx context.Context) (*BulkEnrichmentResult, error) {
	missing, err := e.db.GetBooksMissingPageCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("get books missing page count: %w", err)
	}

	result := &BulkEnrichmentResult{
		TotalBooks: len(missing),
	}

	for _, book := range missing {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, "operation cancelled")
			return result, err
		}

		enrichResult, err := e.EnrichBook(ctx, book.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
			continue
		}

		if len(enrichResult.FieldsUpdated) > 0 {
			result.Enriched++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

// buildUpdates returns only the fields the book is missing. The page count is
// returned separately because it goes through its own validated setter.
func (e *Enricher) buildUpdates(book *entities.Book, metadata *BookMetadata) (books.BookUpdateFields, int, []string) {
	var updates books.BookUpdateFields
	var fieldsUpdated []string
	pageCount := 0

	if (book.ISBN == nil || *book.ISBN == "") && books.NormalizeISBN(metadata.ISBN) != "" {
		updates.ISBN = &metadata.ISBN
		fieldsUpdated = append(fieldsUpdated, "isbn")
	}

	if book.CoverURL == "" && metadata.CoverURL != "" {
		updates.CoverURL = &metadata.CoverURL
		fieldsUpdated = append(fieldsUpdated, "cover_url")
	}

	if book.Publisher == "" && metadata.Publisher != "" {
		updates.Publisher = &metadata.Publisher
		fieldsUpdated = append(fieldsUpdated, "publisher")
	}

	if book.PublicationYear == 0 && metadata.PublicationYear > 0 {
		updates.PublicationYear = &metadata.PublicationYear
		fieldsUpdated = append(fieldsUpdated, "publication_year")
	}

	if book.Description == "" && metadata.Description != "" {
		updates.Description = &metadata.Description
		fieldsUpdated = append(fieldsUpdated, "description")
	}

	if !book.HasPageCount() && metadata.PageCount > 0 {
		pageCount = metadata.PageCount
		fieldsUpdated = append(fieldsUpdated, "page_count")
	}

	return updates, pageCount, fieldsUpdated
}
