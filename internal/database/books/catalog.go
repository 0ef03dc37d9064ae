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

// CreateAuthor inserts an author, deriving a unique slug from the name.
func (r *Repository) CreateAuthor(ctx context.Context, author *entities.Author) error {
	author.Name = strings.TrimSpace(author.Name)
	if author.Name == "" {
		return library.Invalid("name", "must not be empty")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := author.Slug
		if base == "" {
			base = Slugify(author.Name)
		}
		slug, err := uniqueSlug(tx, &entities.Author{}, base)
		if err != nil {
			return err
		}
		author.Slug = slug
		if err := tx.Create(author).Error; err != nil {
			return fmt.Errorf("create author %q: %w", author.Name, err)
		}
		return nil
	})
}

// FindOrCreateAuthor returns the author with this name, creating it if needed.
func (r *Repository) FindOrCreateAuthor(ctx context.Context, name string) (*entities.Author, error) {
	var author entities.Author
	err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&author).Error
	if err == nil {
		return &author, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	author = entities.Author{Name: name}
	if err := r.CreateAuthor(ctx, &author); err != nil {
		return nil, err
	}
	return &author, nil
}

// CreateGenre inserts a genre. Genre names are unique.
func (r *Repository) CreateGenre(ctx context.Context, genre *entities.Genre) error {
	genre.Name = strings.TrimSpace(genre.Name)
	if genre.Name == "" {
		return library.Invalid("name", "must not be empty")
	}
	if genre.Slug == "" {
		genre.Slug = Slugify(genre.Name)
	}
	return r.db.WithContext(ctx).Create(genre).Error
}

// ListGenres returns all genres ordered by name.
func (r *Repository) ListGenres(ctx context.Context) ([]entities.Genre, error) {
	var genres []entities.Genre
	err := r.db.WithContext(ctx).Order("name").Find(&genres).Error
	return genres, err
}

// GetGenreBySlug retrieves a genre.
func (r *Repository) GetGenreBySlug(ctx context.Context, slug string) (*entities.Genre, error) {
	var genre entities.Genre
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("genre", slug)
	}
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

// GetAuthorBySlug retrieves an author.
func (r *Repository) GetAuthorBySlug(ctx context.Context, slug string) (*entities.Author, error) {
	var author entities.Author
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("author", slug)
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// SetAuthorPhoto stores a new photo media handle and returns the one it replaced.
func (r *Repository) SetAuthorPhoto(ctx context.Context, authorID uint, handle string) (string, error) {
	return r.swapHandle(ctx, &entities.Author{}, "author", authorID, "photo_path", handle, nil)
}

// ListAuthors returns all authors ordered by name.
func (r *Repository) ListAuthors(ctx context.Context) ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.WithContext(ctx).Order("name").Find(&authors).Error
	return authors, err
}

// AddAuthorToBook links an author to a book. Linking twice is a no-op.
func (r *Repository) AddAuthorToBook(ctx context.Context, bookID, authorID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := findBook(tx, bookID)
		if err != nil {
			return err
		}
		var author entities.Author
		if err := tx.First(&author, authorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return library.NotFound("author", authorID)
			}
			return err
		}
		return tx.Model(book).Association("Authors").Append(&author)
	})
}

// AddGenreToBook links a genre to a book. Linking twice is a no-op.
func (r *Repository) AddGenreToBook(ctx context.Context, bookID, genreID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := findBook(tx, bookID)
		if err != nil {
			return err
		}
		var genre entities.Genre
		if err := tx.First(&genre, genreID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return library.NotFound("genre", genreID)
			}
			return err
		}
		return tx.Model(book).Association("Genres").Append(&genre)
	})
}

func findBook(tx *gorm.DB, id uint) (*entities.Book, error) {
	var book entities.Book
	err := tx.Select("id").First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, library.NotFound("book", id)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}
