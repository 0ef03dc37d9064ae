// Package books provides database operations for the book catalog: books,
// authors and genres.
//
// Book.AverageRating and Book.ReviewCount are derived fields. Nothing in this
// package writes them; see internal/ratings.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookBySlug(ctx, "dune")
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Sort orders for ListBooks.
const (
	SortTitle  = "title"
	SortRating = "rating"
	SortNewest = "newest"
)

// BookFilter narrows ListBooks.
type BookFilter struct {
	Query      string
	GenreSlug  string
	AuthorSlug string
	Featured   *bool
	Sort       string
	Limit      int
	Offset     int
}

// BookUpdateFields lists the editable descriptive fields of a book. Nil
// pointers are left unchanged.
type BookUpdateFields struct {
	Title           *string
	Description     *string
	Publisher       *string
	PublicationYear *int
	ISBN            *string
	CoverURL        *string
	IsFeatured      *bool
	IsPopular       *bool
}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBook validates and inserts a book. An empty slug is derived from the
// title and made unique with a numeric suffix.
func (r *Repository) CreateBook(ctx context.Context, book *entities.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	if book.Title == "" {
		return library.Invalid("title", "must not be empty")
	}
	if book.PageCount != nil && *book.PageCount <= 0 {
		return library.Invalid("page_count", "must be positive")
	}
	if book.Language != "" && !book.Language.Valid() {
		return library.Invalid("language", fmt.Sprintf("unsupported language %q", book.Language))
	}
	if book.Format != "" && !book.Format.Valid() {
		return library.Invalid("format", fmt.Sprintf("unsupported format %q", book.Format))
	}
	if book.ISBN != nil {
		isbn := NormalizeISBN(*book.ISBN)
		if isbn == "" {
			book.ISBN = nil
		} else {
			book.ISBN = &isbn
		}
	}
	// Derived fields start empty regardless of what the caller passed.
	book.AverageRating = 0
	book.ReviewCount = 0

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := book.Slug
		if base == "" {
			base = Slugify(book.Title)
		}
		if base == "" {
			return library.Invalid("slug", "title produces an empty slug")
		}
		slug, err := uniqueSlug(tx, &entities.Book{}, base)
		if err != nil {
			return err
		}
		book.Slug = slug

		if err := tx.Create(book).Error; err != nil {
			return fmt.Errorf("create book %q: %w", book.Title, err)
		}
		return nil
	})
}

// GetBookByID retrieves a book with its authors and genres.
func (r *Repository) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Preload("Authors").Preload("Genres").First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("book", id)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookBySlug retrieves a book with its authors and genres.
func (r *Repository) GetBookBySlug(ctx context.Context, slug string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Preload("Authors").Preload("Genres").
		Where("slug = ?", slug).
		First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("book", slug)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListBooks returns one page of books matching the filter and the total count.
func (r *Repository) ListBooks(ctx context.Context, f BookFilter) ([]entities.Book, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, f).Preload("Authors").Preload("Genres")
	switch f.Sort {
	case SortRating:
		query = query.Order("average_rating DESC, review_count DESC, books.id ASC")
	case SortNewest:
		query = query.Order("created_at DESC, books.id DESC")
	default:
		query = query.Order("title ASC, books.id ASC")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var books []entities.Book
	if err := query.Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *Repository) filtered(ctx context.Context, f BookFilter) *gorm.DB {
	db := r.db.WithContext(ctx)
	query := db.Model(&entities.Book{})

	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		byAuthor := db.Table("book_authors").
			Select("book_authors.book_id").
			Joins("JOIN authors ON authors.id = book_authors.author_id").
			Where("LOWER(authors.name) LIKE ?", like)
		query = query.Where("LOWER(books.title) LIKE ? OR books.id IN (?)", like, byAuthor)
	}
	if f.GenreSlug != "" {
		byGenre := db.Table("book_genres").
			Select("book_genres.book_id").
			Joins("JOIN genres ON genres.id = book_genres.genre_id").
			Where("genres.slug = ?", f.GenreSlug)
		query = query.Where("books.id IN (?)", byGenre)
	}
	if f.AuthorSlug != "" {
		byAuthor := db.Table("book_authors").
			Select("book_authors.book_id").
			Joins("JOIN authors ON authors.id = book_authors.author_id").
			Where("authors.slug = ?", f.AuthorSlug)
		query = query.Where("books.id IN (?)", byAuthor)
	}
	if f.Featured != nil {
		query = query.Where("is_featured = ?", *f.Featured)
	}
	return query
}

// UpdateBookDetails changes descriptive fields of a book.
func (r *Repository) UpdateBookDetails(ctx context.Context, id uint, u BookUpdateFields) error {
	fields := map[string]any{}
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return library.Invalid("title", "must not be empty")
		}
		fields["title"] = title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Publisher != nil {
		fields["publisher"] = *u.Publisher
	}
	if u.PublicationYear != nil {
		fields["publication_year"] = *u.PublicationYear
	}
	if u.ISBN != nil {
		if isbn := NormalizeISBN(*u.ISBN); isbn != "" {
			fields["isbn"] = isbn
		} else {
			fields["isbn"] = nil
		}
	}
	if u.CoverURL != nil {
		fields["cover_url"] = *u.CoverURL
	}
	if u.IsFeatured != nil {
		fields["is_featured"] = *u.IsFeatured
	}
	if u.IsPopular != nil {
		fields["is_popular"] = *u.IsPopular
	}
	if len(fields) == 0 {
		return nil
	}

	return r.update(ctx, id, fields)
}

// SetPageCount records the number of pages in a book.
func (r *Repository) SetPageCount(ctx context.Context, id uint, pages int) error {
	if pages <= 0 {
		return library.Invalid("page_count", "must be positive")
	}
	return r.update(ctx, id, map[string]any{"page_count": pages})
}

// SetCover stores a new cover media handle and returns the one it replaced.
func (r *Repository) SetCover(ctx context.Context, id uint, handle string) (string, error) {
	return r.swapHandle(ctx, &entities.Book{}, "book", id, "cover_path", handle, nil)
}

// SetFile stores the media handle of the book's readable content, records its
// format and returns the handle it replaced.
func (r *Repository) SetFile(ctx context.Context, id uint, handle string, format entities.BookFormat) (string, error) {
	if !format.Valid() {
		return "", library.Invalid("format", fmt.Sprintf("unsupported format %q", format))
	}
	return r.swapHandle(ctx, &entities.Book{}, "book", id, "file_path", handle, map[string]any{"format": format})
}

// swapHandle replaces a media handle column on one row and returns the old
// value. extra columns are written in the same update.
func (r *Repository) swapHandle(ctx context.Context, model any, resource string, id uint, column, handle string, extra map[string]any) (string, error) {
	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct{ Handle string }
		result := tx.Model(model).Select("COALESCE(" + column + ", '') AS handle").Where("id = ?", id).Limit(1).Scan(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return library.NotFound(resource, id)
		}
		previous = row.Handle

		fields := map[string]any{column: handle}
		for k, v := range extra {
			fields[k] = v
		}
		return tx.Model(model).Where("id = ?", id).Updates(fields).Error
	})
	return previous, err
}

func (r *Repository) update(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return library.NotFound("book", id)
	}
	return nil
}

// GetBooksMissingPageCount returns books that cannot yet auto-complete.
func (r *Repository) GetBooksMissingPageCount(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Where("page_count IS NULL OR page_count <= 0").
		Order("id").
		Find(&books).Error
	return books, err
}

// ListBookIDs returns every book ID in ascending order.
func (r *Repository) ListBookIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// CountBooks returns the catalog size.
func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// uniqueSlug returns base, or base-2, base-3... whichever is free in model's table.
func uniqueSlug(tx *gorm.DB, model any, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := tx.Model(model).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// NormalizeISBN strips separators from an ISBN and upper-cases a trailing X.
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}
