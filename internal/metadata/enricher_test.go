package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

type mockMetadataProvider struct {
	searchByISBNResult  *BookMetadata
	searchByISBNError   error
	searchByTitleResult *BookMetadata
	searchByTitleError  error
	isbnCalls           int
	titleCalls          int
	lastAuthor          string
}

func (m *mockMetadataProvider) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	m.isbnCalls++
	return m.searchByISBNResult, m.searchByISBNError
}

func (m *mockMetadataProvider) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	m.titleCalls++
	m.lastAuthor = author
	return m.searchByTitleResult, m.searchByTitleError
}

func setupCatalog(t *testing.T) *books.Repository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "catalog.db"), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	return books.NewRepository(db.DB)
}

func strPtr(v string) *string { return &v }

func TestEnrichBook_WithISBN(t *testing.T) {
	repo := setupCatalog(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Middlemarch", ISBN: strPtr("9780141439549")}
	require.NoError(t, repo.CreateBook(ctx, book))

	provider := &mockMetadataProvider{
		searchByISBNResult: &BookMetadata{
			Publisher:       "Penguin Classics",
			PublicationYear: 2003,
			PageCount:       880,
			CoverURL:        "https://covers.openlibrary.org/b/isbn/9780141439549-L.jpg",
		},
	}

	result, err := NewEnricher(provider, repo).EnrichBook(ctx, book.ID)
	require.NoError(t, err)

	assert.Equal(t, "isbn", result.SearchMethod)
	assert.Equal(t, 0, provider.titleCalls)
	assert.ElementsMatch(t, []string{"cover_url", "publisher", "publication_year", "page_count"}, result.FieldsUpdated)
	assert.True(t, result.CoverChanged())

	require.NotNil(t, result.Book.PageCount)
	assert.Equal(t, 880, *result.Book.PageCount)
	assert.Equal(t, "Penguin Classics", result.Book.Publisher)
	assert.Equal(t, 2003, result.Book.PublicationYear)
}

func TestEnrichBook_FallbackToTitle(t *testing.T) {
	repo := setupCatalog(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Persuasion", ISBN: strPtr("9780141439686")}
	require.NoError(t, repo.CreateBook(ctx, book))
	author, err := repo.FindOrCreateAuthor(ctx, "Jane Austen")
	require.NoError(t, err)
	require.NoError(t, repo.AddAuthorToBook(ctx, book.ID, author.ID))

	provider := &mockMetadataProvider{
		searchByISBNError:   ErrNotFound,
		searchByTitleResult: &BookMetadata{Publisher: "John Murray", PageCount: 249},
	}

	result, err := NewEnricher(provider, repo).EnrichBook(ctx, book.ID)
	require.NoError(t, err)

	assert.Equal(t, "title", result.SearchMethod)
	assert.Equal(t, 1, provider.isbnCalls)
	assert.Equal(t, "Jane Austen", provider.lastAuthor)
	assert.Equal(t, 249, *result.Book.PageCount)
}

func TestEnrichBook_BookNotFound(t *testing.T) {
	repo := setupCatalog(t)

	_, err := NewEnricher(&mockMetadataProvider{}, repo).EnrichBook(context.Background(), 999)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestEnrichBook_SearchFailed(t *testing.T) {
	repo := setupCatalog(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Unknown Volume"}
	require.NoError(t, repo.CreateBook(ctx, book))

	provider := &mockMetadataProvider{searchByTitleError: errors.New("api unavailable")}

	_, err := NewEnricher(provider, repo).EnrichBook(ctx, book.ID)
	require.Error(t, err)
	assert.Equal(t, 0, provider.isbnCalls)
}

func TestEnrichBook_LeavesRatingsAlone(t *testing.T) {
	repo := setupCatalog(t)
	ctx := context.Background()

	pages := 300
	book := &entities.Book{Title: "North and South", PageCount: &pages, Publisher: "Chapman & Hall"}
	require.NoError(t, repo.CreateBook(ctx, book))

	provider := &mockMetadataProvider{
		searchByTitleResult: &BookMetadata{Publisher: "Penguin", PageCount: 521},
	}

	result, err := NewEnricher(provider, repo).EnrichBook(ctx, book.ID)
	require.NoError(t, err)

	assert.Empty(t, result.FieldsUpdated)
	assert.Equal(t, 300, *result.Book.PageCount)
	assert.Equal(t, "Chapman & Hall", result.Book.Publisher)
	assert.Zero(t, result.Book.AverageRating)
	assert.Zero(t, result.Book.ReviewCount)
}

func TestEnrichAllMissing(t *testing.T) {
	repo := setupCatalog(t)
	ctx := context.Background()

	pages := 120
	require.NoError(t, repo.CreateBook(ctx, &entities.Book{Title: "Has Pages", PageCount: &pages}))
	require.NoError(t, repo.CreateBook(ctx, &entities.Book{Title: "Missing One"}))
	require.NoError(t, repo.CreateBook(ctx, &entities.Book{Title: "Missing Two"}))

	provider := &mockMetadataProvider{searchByTitleResult: &BookMetadata{PageCount: 200}}

	result, err := NewEnricher(provider, repo).EnrichAllMissing(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalBooks)
	assert.Equal(t, 2, result.Enriched)
	assert.Equal(t, 0, result.Failed)

	remaining, err := repo.GetBooksMissingPageCount(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestEnrichAllMissing_Cancelled(t *testing.T) {
	repo := setupCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, repo.CreateBook(ctx, &entities.Book{Title: "Missing"}))
	cancel()

	_, err := NewEnricher(&mockMetadataProvider{}, repo).EnrichAllMissing(ctx)
	assert.Error(t, err)
}

func TestBuildUpdates_OnlyEmptyFields(t *testing.T) {
	pages := 310
	book := &entities.Book{
		ID:              1,
		Title:           "Test Book",
		Publisher:       "Existing Publisher",
		PublicationYear: 2019,
		PageCount:       &pages,
	}

	metadata := &BookMetadata{
		Publisher:       "New Publisher",
		PublicationYear: 2020,
		PageCount:       999,
		CoverURL:        "https://cover.jpg",
	}

	updates, pageCount, fieldsUpdated := NewEnricher(nil, nil).buildUpdates(book, metadata)

	assert.Nil(t, updates.Publisher)
	assert.Nil(t, updates.PublicationYear)
	assert.Zero(t, pageCount)
	require.NotNil(t, updates.CoverURL)
	assert.Equal(t, "https://cover.jpg", *updates.CoverURL)
	assert.Equal(t, []string{"cover_url"}, fieldsUpdated)
}

func TestBuildUpdates_IgnoresMalformedISBN(t *testing.T) {
	updates, _, fieldsUpdated := NewEnricher(nil, nil).buildUpdates(&entities.Book{Title: "x"}, &BookMetadata{ISBN: "n/a"})
	assert.Nil(t, updates.ISBN)
	assert.Empty(t, fieldsUpdated)
}
