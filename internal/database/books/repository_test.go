package books

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "books.db"), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB, NewRepository(db.DB)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dune", "dune"},
		{"The Left Hand of Darkness", "the-left-hand-of-darkness"},
		{"Café Müller", "cafe-muller"},
		{"  Crime & Punishment!  ", "crime-punishment"},
		{"1984", "1984"},
		{"Les Misérables (Vol. 2)", "les-miserables-vol-2"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780441013593", NormalizeISBN("978-0-441-01359-3"))
	assert.Equal(t, "043942089X", NormalizeISBN("0 439 42089 x"))
	assert.Equal(t, "", NormalizeISBN("n/a"))
}

func TestCreateBook(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	first := &entities.Book{Title: "Dune", ISBN: strPtr("978-0-441-01359-3"), AverageRating: 4.9, ReviewCount: 12}
	require.NoError(t, repo.CreateBook(ctx, first))
	assert.Equal(t, "dune", first.Slug)
	assert.Equal(t, "9780441013593", *first.ISBN)
	assert.Equal(t, 0.0, first.AverageRating)
	assert.Equal(t, int64(0), first.ReviewCount)

	second := &entities.Book{Title: "Dune"}
	require.NoError(t, repo.CreateBook(ctx, second))
	assert.Equal(t, "dune-2", second.Slug)

	third := &entities.Book{Title: "Dune"}
	require.NoError(t, repo.CreateBook(ctx, third))
	assert.Equal(t, "dune-3", third.Slug)

	err := repo.CreateBook(ctx, &entities.Book{Title: "   "})
	assert.ErrorIs(t, err, library.ErrValidation)

	err = repo.CreateBook(ctx, &entities.Book{Title: "Zero", PageCount: intPtr(0)})
	assert.ErrorIs(t, err, library.ErrValidation)

	err = repo.CreateBook(ctx, &entities.Book{Title: "Dup", ISBN: strPtr("9780441013593")})
	assert.True(t, database.IsUniqueViolation(err))
}

func TestGetBook(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Emma", Authors: []entities.Author{{Name: "Jane Austen", Slug: "jane-austen"}}}
	require.NoError(t, repo.CreateBook(ctx, book))

	got, err := repo.GetBookBySlug(ctx, "emma")
	require.NoError(t, err)
	assert.Equal(t, book.ID, got.ID)
	require.Len(t, got.Authors, 1)
	assert.Equal(t, "Jane Austen", got.Authors[0].Name)

	got, err = repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "emma", got.Slug)

	_, err = repo.GetBookBySlug(ctx, "missing")
	assert.ErrorIs(t, err, library.ErrNotFound)
	_, err = repo.GetBookByID(ctx, 999)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestListBooks_Filters(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()

	herbert, err := repo.FindOrCreateAuthor(ctx, "Frank Herbert")
	require.NoError(t, err)
	austen, err := repo.FindOrCreateAuthor(ctx, "Jane Austen")
	require.NoError(t, err)
	scifi, err := repo.GetGenreBySlug(ctx, "science-fiction")
	require.NoError(t, err)

	dune := &entities.Book{Title: "Dune", IsFeatured: true}
	emma := &entities.Book{Title: "Emma"}
	messiah := &entities.Book{Title: "Dune Messiah"}
	for _, b := range []*entities.Book{dune, emma, messiah} {
		require.NoError(t, repo.CreateBook(ctx, b))
	}
	require.NoError(t, repo.AddAuthorToBook(ctx, dune.ID, herbert.ID))
	require.NoError(t, repo.AddAuthorToBook(ctx, messiah.ID, herbert.ID))
	require.NoError(t, repo.AddAuthorToBook(ctx, messiah.ID, herbert.ID))
	require.NoError(t, repo.AddAuthorToBook(ctx, emma.ID, austen.ID))
	require.NoError(t, repo.AddGenreToBook(ctx, dune.ID, scifi.ID))

	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", emma.ID).
		UpdateColumns(map[string]any{"average_rating": 4.5, "review_count": 2}).Error)

	tests := []struct {
		name   string
		filter BookFilter
		want   []string
		total  int64
	}{
		{"all by title", BookFilter{}, []string{"Dune", "Dune Messiah", "Emma"}, 3},
		{"title query", BookFilter{Query: "messiah"}, []string{"Dune Messiah"}, 1},
		{"author name query", BookFilter{Query: "herbert"}, []string{"Dune", "Dune Messiah"}, 2},
		{"genre", BookFilter{GenreSlug: "science-fiction"}, []string{"Dune"}, 1},
		{"author slug", BookFilter{AuthorSlug: "jane-austen"}, []string{"Emma"}, 1},
		{"featured", BookFilter{Featured: boolPtr(true)}, []string{"Dune"}, 1},
		{"rating sort", BookFilter{Sort: SortRating, Limit: 1}, []string{"Emma"}, 3},
		{"paged", BookFilter{Limit: 1, Offset: 1}, []string{"Dune Messiah"}, 3},
		{"combined", BookFilter{Query: "dune", AuthorSlug: "frank-herbert", Featured: boolPtr(false)}, []string{"Dune Messiah"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, total, err := repo.ListBooks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			var titles []string
			for _, b := range books {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	got, err := repo.GetBookByID(ctx, messiah.ID)
	require.NoError(t, err)
	assert.Len(t, got.Authors, 1)
}

func TestUpdateBookDetails_LeavesRatingsAlone(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Emma"}
	require.NoError(t, repo.CreateBook(ctx, book))
	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", book.ID).
		UpdateColumns(map[string]any{"average_rating": 3.5, "review_count": 2}).Error)

	err := repo.UpdateBookDetails(ctx, book.ID, BookUpdateFields{
		Publisher:       strPtr("Penguin"),
		PublicationYear: intPtr(1815),
		IsPopular:       boolPtr(true),
	})
	require.NoError(t, err)

	got, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Penguin", got.Publisher)
	assert.Equal(t, 1815, got.PublicationYear)
	assert.True(t, got.IsPopular)
	assert.Equal(t, 3.5, got.AverageRating)
	assert.Equal(t, int64(2), got.ReviewCount)

	err = repo.UpdateBookDetails(ctx, book.ID, BookUpdateFields{Title: strPtr(" ")})
	assert.ErrorIs(t, err, library.ErrValidation)

	err = repo.UpdateBookDetails(ctx, 999, BookUpdateFields{Publisher: strPtr("x")})
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestPageCountAndCover(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Emma"}
	require.NoError(t, repo.CreateBook(ctx, book))

	missing, err := repo.GetBooksMissingPageCount(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	assert.ErrorIs(t, repo.SetPageCount(ctx, book.ID, 0), library.ErrValidation)
	require.NoError(t, repo.SetPageCount(ctx, book.ID, 474))

	missing, err = repo.GetBooksMissingPageCount(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	prev, err := repo.SetCover(ctx, book.ID, "covers/book_1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "", prev)

	prev, err = repo.SetCover(ctx, book.ID, "covers/book_1/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "covers/book_1/a.jpg", prev)

	_, err = repo.SetCover(ctx, 999, "x")
	assert.ErrorIs(t, err, library.ErrNotFound)

	prev, err = repo.SetFile(ctx, book.ID, "books/book_1/a.epub", entities.BookFormatEPUB)
	require.NoError(t, err)
	assert.Equal(t, "", prev)
	prev, err = repo.SetFile(ctx, book.ID, "books/book_1/b.pdf", entities.BookFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "books/book_1/a.epub", prev)

	_, err = repo.SetFile(ctx, book.ID, "books/book_1/c.doc", entities.BookFormat("doc"))
	assert.ErrorIs(t, err, library.ErrValidation)

	stored, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "books/book_1/b.pdf", stored.FilePath)
	assert.Equal(t, entities.BookFormatPDF, stored.Format)
	assert.Equal(t, "covers/book_1/b.jpg", stored.CoverPath)

	ids, err := repo.ListBookIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{book.ID}, ids)
}

func TestGenresAndAuthors(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	genres, err := repo.ListGenres(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, genres)

	require.NoError(t, repo.CreateGenre(ctx, &entities.Genre{Name: "Travel Writing"}))
	g, err := repo.GetGenreBySlug(ctx, "travel-writing")
	require.NoError(t, err)
	assert.Equal(t, "Travel Writing", g.Name)

	a1, err := repo.FindOrCreateAuthor(ctx, "Leo Tolstoy")
	require.NoError(t, err)
	a2, err := repo.FindOrCreateAuthor(ctx, "Leo Tolstoy")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)

	other := &entities.Author{Name: "Leo  Tolstoy"}
	require.NoError(t, repo.CreateAuthor(ctx, other))
	assert.Equal(t, "leo-tolstoy-2", other.Slug)

	authors, err := repo.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Len(t, authors, 2)

	assert.ErrorIs(t, repo.AddGenreToBook(ctx, 999, g.ID), library.ErrNotFound)
}

func TestCreateBook_RejectsUnknownFormatAndLanguage(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	err := repo.CreateBook(ctx, &entities.Book{Title: "Hardback", Format: entities.BookFormat("hardcover")})
	assert.ErrorIs(t, err, library.ErrValidation)

	err = repo.CreateBook(ctx, &entities.Book{Title: "Klingon", Language: entities.BookLanguage("tlh")})
	assert.ErrorIs(t, err, library.ErrValidation)

	book := &entities.Book{Title: "Dream of the Red Chamber", Language: entities.BookLanguageChinese}
	require.NoError(t, repo.CreateBook(ctx, book))
	stored, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookFormatPDF, stored.Format)
	assert.Equal(t, entities.BookLanguageChinese, stored.Language)
}

func TestAuthorPhoto(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	author, err := repo.FindOrCreateAuthor(ctx, "Anton Chekhov")
	require.NoError(t, err)

	found, err := repo.GetAuthorBySlug(ctx, "anton-chekhov")
	require.NoError(t, err)
	assert.Equal(t, author.ID, found.ID)

	prev, err := repo.SetAuthorPhoto(ctx, author.ID, "authors/author_1/a.jpg")
	require.NoError(t, err)
	assert.Empty(t, prev)
	prev, err = repo.SetAuthorPhoto(ctx, author.ID, "authors/author_1/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "authors/author_1/a.jpg", prev)

	_, err = repo.SetAuthorPhoto(ctx, 999, "x")
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = repo.GetAuthorBySlug(ctx, "nobody")
	assert.ErrorIs(t, err, library.ErrNotFound)
}
