package bookmarks

import (
	"context"
	"path/filepath"
	"sync"
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
	db, err := database.Open(filepath.Join(t.TempDir(), "bookmarks.db"), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB, NewRepository(db.DB)
}

func fixtures(t *testing.T, db *gorm.DB) (*entities.User, []*entities.Book) {
	user := &entities.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)

	var books []*entities.Book
	for _, slug := range []string{"dune", "emma", "ulysses"} {
		book := &entities.Book{Title: slug, Slug: slug}
		require.NoError(t, db.Create(book).Error)
		books = append(books, book)
	}
	return user, books
}

func TestToggle_AlternatesState(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user, books := fixtures(t, db)
	book := books[0]

	ok, err := repo.IsBookmarked(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := repo.Toggle(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, result.Action)
	require.NotNil(t, result.Bookmark)
	assert.Equal(t, book.ID, result.Bookmark.BookID)

	ok, err = repo.IsBookmarked(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Querying does not change state
	ok, err = repo.IsBookmarked(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	result, err = repo.Toggle(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, result.Action)
	assert.Nil(t, result.Bookmark)

	ok, err = repo.IsBookmarked(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToggle_UnknownBookOrUser(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user, books := fixtures(t, db)

	_, err := repo.Toggle(ctx, user.ID, 999)
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = repo.Toggle(ctx, 999, books[0].ID)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestToggle_ConcurrentCallsEachFlipOnce(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user, books := fixtures(t, db)
	book := books[0]

	const calls = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	actions := map[Action]int{}

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := repo.Toggle(ctx, user.ID, book.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			actions[result.Action]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, calls/2, actions[ActionAdded])
	assert.Equal(t, calls/2, actions[ActionRemoved])

	ok, err := repo.IsBookmarked(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListForUserAndBookmarkedIDs(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user, books := fixtures(t, db)

	_, err := repo.Toggle(ctx, user.ID, books[0].ID)
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, user.ID, books[2].ID)
	require.NoError(t, err)

	items, err := repo.ListForUser(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, books[2].ID, items[0].BookID)
	require.NotNil(t, items[0].Book)
	assert.Equal(t, "ulysses", items[0].Book.Slug)

	set, err := repo.BookmarkedIDs(ctx, user.ID, []uint{books[0].ID, books[1].ID, books[2].ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{books[0].ID: true, books[2].ID: true}, set)

	empty, err := repo.BookmarkedIDs(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err := repo.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
