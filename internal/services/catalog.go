package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/media"
)

// NewBookInput describes a book to add to the catalog.
type NewBookInput struct {
	Title           string
	Description     string
	ISBN            string
	Language        entities.BookLanguage
	Format          entities.BookFormat
	Publisher       string
	PublicationYear int
	PageCount       *int
	CoverURL        string
	IsFeatured      bool
	Authors         []string
	Genres          []string
}

// CatalogService handles catalog writes that span more than one store.
type CatalogService struct {
	store CatalogStore
	media MediaStore
	queue ReleaseQueue
}

// NewCatalogService creates a catalog service.
func NewCatalogService(store CatalogStore, mediaStore MediaStore) *CatalogService {
	return &CatalogService{store: store, media: mediaStore}
}

// SetReleaseQueue sets where failed media releases are retried (optional).
func (s *CatalogService) SetReleaseQueue(queue ReleaseQueue) {
	s.queue = queue
}

// CreateBook adds a book, creating authors by name and linking genres by slug.
func (s *CatalogService) CreateBook(ctx context.Context, in NewBookInput) (*entities.Book, error) {
	book := &entities.Book{
		Title:           in.Title,
		Description:     in.Description,
		Language:        in.Language,
		Format:          in.Format,
		Publisher:       in.Publisher,
		PublicationYear: in.PublicationYear,
		PageCount:       in.PageCount,
		CoverURL:        in.CoverURL,
		IsFeatured:      in.IsFeatured,
	}
	if isbn := strings.TrimSpace(in.ISBN); isbn != "" {
		book.ISBN = &isbn
	}

	for _, name := range in.Authors {
		if strings.TrimSpace(name) == "" {
			continue
		}
		author, err := s.store.FindOrCreateAuthor(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("author %q: %w", name, err)
		}
		book.Authors = append(book.Authors, *author)
	}
	for _, slug := range in.Genres {
		genre, err := s.store.GetGenreBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		book.Genres = append(book.Genres, *genre)
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	return s.store.GetBookByID(ctx, book.ID)
}

// ReplaceCover stores an uploaded cover image and releases the previous one.
func (s *CatalogService) ReplaceCover(ctx context.Context, bookID uint, filename string, r io.Reader) (*entities.Book, error) {
	if _, err := s.store.GetBookByID(ctx, bookID); err != nil {
		return nil, err
	}

	handle, err := s.media.Save(media.KindCover, bookID, filename, r)
	if err != nil {
		return nil, err
	}
	return s.swapCover(ctx, bookID, handle)
}

// CacheCover downloads the book's cover URL into the media store. Books
// without a cover URL are returned unchanged.
func (s *CatalogService) CacheCover(ctx context.Context, bookID uint) (*entities.Book, error) {
	book, err := s.store.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.CoverURL == "" {
		return book, nil
	}

	handle, err := s.media.Fetch(ctx, media.KindCover, bookID, book.CoverURL)
	if err != nil {
		return nil, fmt.Errorf("fetch cover for book %d: %w", bookID, err)
	}
	return s.swapCover(ctx, bookID, handle)
}

// ReplaceFile stores an uploaded book file, records its format and releases
// the previously uploaded file.
func (s *CatalogService) ReplaceFile(ctx context.Context, bookID uint, filename string, r io.Reader) (*entities.Book, error) {
	if _, err := s.store.GetBookByID(ctx, bookID); err != nil {
		return nil, err
	}

	handle, err := s.media.Save(media.KindBook, bookID, filename, r)
	if err != nil {
		return nil, err
	}
	format := entities.BookFormat(strings.TrimPrefix(path.Ext(handle), "."))

	previous, err := s.store.SetFile(ctx, bookID, handle, format)
	if err != nil {
		releaseOrQueue(ctx, s.media, s.queue, handle)
		return nil, fmt.Errorf("replace book file: %w", err)
	}
	releaseOrQueue(ctx, s.media, s.queue, previous)

	return s.store.GetBookByID(ctx, bookID)
}

// ReplaceAuthorPhoto stores an uploaded author photo and releases the previous one.
func (s *CatalogService) ReplaceAuthorPhoto(ctx context.Context, authorID uint, filename string, r io.Reader) (string, error) {
	handle, err := s.media.Save(media.KindAuthorPhoto, authorID, filename, r)
	if err != nil {
		return "", err
	}

	previous, err := s.store.SetAuthorPhoto(ctx, authorID, handle)
	if err != nil {
		releaseOrQueue(ctx, s.media, s.queue, handle)
		return "", fmt.Errorf("replace author photo: %w", err)
	}
	releaseOrQueue(ctx, s.media, s.queue, previous)
	return handle, nil
}

func (s *CatalogService) swapCover(ctx context.Context, bookID uint, handle string) (*entities.Book, error) {
	previous, err := s.store.SetCover(ctx, bookID, handle)
	if err != nil {
		releaseOrQueue(ctx, s.media, s.queue, handle)
		return nil, fmt.Errorf("replace cover: %w", err)
	}
	releaseOrQueue(ctx, s.media, s.queue, previous)

	return s.store.GetBookByID(ctx, bookID)
}
