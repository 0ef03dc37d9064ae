package reviews

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "reviews.db"), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB, NewRepository(db.DB, ratings.NewAggregator(db.DB))
}

func createUser(t *testing.T, db *gorm.DB, name string) *entities.User {
	user := &entities.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createBook(t *testing.T, db *gorm.DB, slug string) *entities.Book {
	book := &entities.Book{Title: slug, Slug: slug}
	require.NoError(t, db.Create(book).Error)
	return book
}

func bookAggregate(t *testing.T, db *gorm.DB, id uint) (float64, int64) {
	var book entities.Book
	require.NoError(t, db.First(&book, id).Error)
	return book.AverageRating, book.ReviewCount
}

func TestLedger_RatingScenario(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	u1 := createUser(t, db, "u1")
	u2 := createUser(t, db, "u2")
	book := createBook(t, db, "b")

	avg, count := bookAggregate(t, db, book.ID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, int64(0), count)

	first, created, err := repo.Upsert(ctx, ReviewInput{UserID: u1.ID, BookID: book.ID, Rating: 4, IsPublic: true})
	require.NoError(t, err)
	assert.True(t, created)
	avg, count = bookAggregate(t, db, book.ID)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, int64(1), count)

	_, created, err = repo.Upsert(ctx, ReviewInput{UserID: u2.ID, BookID: book.ID, Rating: 2, IsPublic: true})
	require.NoError(t, err)
	assert.True(t, created)
	avg, count = bookAggregate(t, db, book.ID)
	assert.Equal(t, 3.0, avg)
	assert.Equal(t, int64(2), count)

	_, err = repo.Delete(ctx, first.ID, u1.ID)
	require.NoError(t, err)
	avg, count = bookAggregate(t, db, book.ID)
	assert.Equal(t, 2.0, avg)
	assert.Equal(t, int64(1), count)
}

func TestUpsert_UpdatesExistingReview(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	book := createBook(t, db, "dune")

	first, created, err := repo.Upsert(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 2, Title: "Meh", IsPublic: true})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repo.Upsert(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 5, Title: "  Grew on me  ", IsPublic: false})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Grew on me", second.Title)
	assert.False(t, second.IsPublic)

	var stored entities.Review
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, 5, stored.Rating)
	assert.False(t, stored.IsPublic)

	avg, count := bookAggregate(t, db, book.ID)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, int64(1), count)
}

func TestCreate_DuplicateReview(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	book := createBook(t, db, "dune")

	existing, err := repo.Create(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 3, IsPublic: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 5, IsPublic: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, library.ErrDuplicateReview)

	var dup *library.DuplicateReviewError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, existing.ID, dup.ExistingID)

	avg, count := bookAggregate(t, db, book.ID)
	assert.Equal(t, 3.0, avg)
	assert.Equal(t, int64(1), count)
}

func TestWrites_Validation(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	book := createBook(t, db, "dune")

	tests := []struct {
		name string
		in   ReviewInput
	}{
		{"rating too low", ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 0}},
		{"rating too high", ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 6}},
		{"title too long", ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 3, Title: strings.Repeat("x", library.MaxReviewTitleLength+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := repo.Upsert(ctx, tt.in)
			assert.ErrorIs(t, err, library.ErrValidation)

			_, err = repo.Create(ctx, tt.in)
			assert.ErrorIs(t, err, library.ErrValidation)
		})
	}

	var count int64
	require.NoError(t, db.Model(&entities.Review{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWrites_UnknownBookOrUser(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	book := createBook(t, db, "dune")

	_, _, err := repo.Upsert(ctx, ReviewInput{UserID: user.ID, BookID: 999, Rating: 3})
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = repo.Create(ctx, ReviewInput{UserID: 999, BookID: book.ID, Rating: 3})
	assert.ErrorIs(t, err, library.ErrNotFound)

	avg, count := bookAggregate(t, db, book.ID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, int64(0), count)
}

func TestUpdateAndDelete_OnlyOwner(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")
	book := createBook(t, db, "dune")

	review, err := repo.Create(ctx, ReviewInput{UserID: owner.ID, BookID: book.ID, Rating: 4, IsPublic: true})
	require.NoError(t, err)

	_, err = repo.Update(ctx, review.ID, other.ID, ReviewInput{Rating: 1})
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = repo.Delete(ctx, review.ID, other.ID)
	assert.ErrorIs(t, err, library.ErrNotFound)

	updated, err := repo.Update(ctx, review.ID, owner.ID, ReviewInput{Rating: 1, Content: "Changed my mind", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Rating)
	assert.Equal(t, book.ID, updated.BookID)

	avg, _ := bookAggregate(t, db, book.ID)
	assert.Equal(t, 1.0, avg)

	_, err = repo.Delete(ctx, review.ID, owner.ID)
	require.NoError(t, err)
	_, err = repo.Delete(ctx, review.ID, owner.ID)
	assert.ErrorIs(t, err, library.ErrNotFound)

	avg, count := bookAggregate(t, db, book.ID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, int64(0), count)
}

func TestListForBook(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	book := createBook(t, db, "dune")

	for i := 0; i < 5; i++ {
		user := createUser(t, db, fmt.Sprintf("reader%d", i))
		_, err := repo.Create(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 3, IsPublic: i%2 == 0})
		require.NoError(t, err)
	}

	all, total, err := repo.ListForBook(ctx, book.ID, false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, all, 5)

	public, total, err := repo.ListForBook(ctx, book.ID, true, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, public, 2)
	assert.NotNil(t, public[0].User)
	for _, r := range public {
		assert.True(t, r.IsPublic)
	}
}

func TestGetForUserAndBook(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	book := createBook(t, db, "dune")

	review, err := repo.GetForUserAndBook(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Nil(t, review)

	created, err := repo.Create(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: 4})
	require.NoError(t, err)

	review, err = repo.GetForUserAndBook(ctx, user.ID, book.ID)
	require.NoError(t, err)
	require.NotNil(t, review)
	assert.Equal(t, created.ID, review.ID)

	mine, err := repo.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Book)
	assert.Equal(t, "dune", mine[0].Book.Slug)
}

func TestUpsert_ConcurrentSamePair(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	book := createBook(t, db, "dune")

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, wasCreated, err := repo.Upsert(ctx, ReviewInput{UserID: user.ID, BookID: book.ID, Rating: rating, IsPublic: true})
			if err != nil {
				errs <- err
				return
			}
			if wasCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i%5 + 1)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("upsert failed: %v", err)
	}
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, db.Model(&entities.Review{}).Where("user_id = ? AND book_id = ?", user.ID, book.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var review entities.Review
	require.NoError(t, db.Where("book_id = ?", book.ID).First(&review).Error)
	avg, reviewCount := bookAggregate(t, db, book.ID)
	assert.Equal(t, float64(review.Rating), avg)
	assert.Equal(t, int64(1), reviewCount)
}

func TestUpsert_ConcurrentReviewersKeepAggregateExact(t *testing.T) {
	db, repo := setupTestDB(t)
	ctx := context.Background()
	book := createBook(t, db, "dune")

	const reviewers = 10
	users := make([]*entities.User, reviewers)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("reader%d", i))
	}

	var wg sync.WaitGroup
	sum := 0
	for i, u := range users {
		rating := i%5 + 1
		sum += rating
		wg.Add(1)
		go func(userID uint, rating int) {
			defer wg.Done()
			_, _, err := repo.Upsert(ctx, ReviewInput{UserID: userID, BookID: book.ID, Rating: rating, IsPublic: true})
			assert.NoError(t, err)
		}(u.ID, rating)
	}
	wg.Wait()

	avg, count := bookAggregate(t, db, book.ID)
	assert.Equal(t, int64(reviewers), count)
	assert.Equal(t, ratings.MeanRating(int64(sum), reviewers), avg)
}
