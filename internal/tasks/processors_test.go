package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

type releaserFunc func(handle string) error

func (f releaserFunc) Release(handle string) error { return f(handle) }

type stubRecomputer struct {
	calls []uint
	err   error
}

func (s *stubRecomputer) Recompute(ctx context.Context, bookID uint) (ratings.Aggregate, error) {
	s.calls = append(s.calls, bookID)
	return ratings.Aggregate{Average: 3, Count: 2}, s.err
}

type stubReconciler struct {
	result ratings.ReconcileResult
	err    error
}

func (s stubReconciler) Reconcile(ctx context.Context) (ratings.ReconcileResult, error) {
	return s.result, s.err
}

type recordingReporter struct {
	results []*ratings.ReconcileResult
	errs    []error
}

func (r *recordingReporter) LogReconcile(result *ratings.ReconcileResult, err error) {
	r.results = append(r.results, result)
	r.errs = append(r.errs, err)
}

type stubEnricher struct {
	result *metadata.EnrichmentResult
	err    error
}

func (s stubEnricher) EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error) {
	return s.result, s.err
}

type stubCovers struct {
	calls int
	err   error
}

func (s *stubCovers) CacheCover(ctx context.Context, bookID uint) (*entities.Book, error) {
	s.calls++
	return &entities.Book{ID: bookID}, s.err
}

type stubCleaner struct {
	retention time.Duration
}

func (s *stubCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	s.retention = retention
	return 4, nil
}

func TestRecomputeRatingProcessor(t *testing.T) {
	ctx := context.Background()

	rec := &stubRecomputer{}
	require.NoError(t, RecomputeRatingProcessor(rec)(ctx, RecomputeRatingTask{BookID: 9}))
	assert.Equal(t, []uint{9}, rec.calls)

	failing := &stubRecomputer{err: errors.New("database is locked")}
	err := RecomputeRatingProcessor(failing)(ctx, RecomputeRatingTask{BookID: 9})
	assert.ErrorContains(t, err, "book 9")

	assert.Error(t, RecomputeRatingProcessor(nil)(ctx, RecomputeRatingTask{BookID: 1}))
}

func TestReconcileRatingsProcessor_Reports(t *testing.T) {
	ctx := context.Background()
	reporter := &recordingReporter{}

	reconciler := stubReconciler{result: ratings.ReconcileResult{Checked: 3, Changed: 1, Drifted: []uint{2}}}
	require.NoError(t, ReconcileRatingsProcessor(reconciler, reporter)(ctx, ReconcileRatingsTask{}))

	failing := stubReconciler{err: context.Canceled}
	assert.ErrorIs(t, ReconcileRatingsProcessor(failing, reporter)(ctx, ReconcileRatingsTask{}), context.Canceled)

	require.Len(t, reporter.results, 2)
	assert.Equal(t, 1, reporter.results[0].Changed)
	assert.NoError(t, reporter.errs[0])
	assert.ErrorIs(t, reporter.errs[1], context.Canceled)
}

func TestReconcileRatingsProcessor_NilReporter(t *testing.T) {
	err := ReconcileRatingsProcessor(stubReconciler{}, nil)(context.Background(), ReconcileRatingsTask{})
	assert.NoError(t, err)
}

func TestEnrichBookProcessor_CachesNewCover(t *testing.T) {
	ctx := context.Background()
	book := &entities.Book{ID: 4, Title: "Emma"}

	covers := &stubCovers{}
	enricher := stubEnricher{result: &metadata.EnrichmentResult{Book: book, FieldsUpdated: []string{"cover_url", "page_count"}}}
	require.NoError(t, EnrichBookProcessor(enricher, covers)(ctx, EnrichBookTask{BookID: 4}))
	assert.Equal(t, 1, covers.calls)

	noCover := stubEnricher{result: &metadata.EnrichmentResult{Book: book, FieldsUpdated: []string{"page_count"}}}
	require.NoError(t, EnrichBookProcessor(noCover, covers)(ctx, EnrichBookTask{BookID: 4}))
	assert.Equal(t, 1, covers.calls)
}

func TestEnrichBookProcessor_CoverFailureIsNotFatal(t *testing.T) {
	book := &entities.Book{ID: 4, Title: "Emma"}
	covers := &stubCovers{err: errors.New("unsupported media type")}
	enricher := stubEnricher{result: &metadata.EnrichmentResult{Book: book, FieldsUpdated: []string{"cover_url"}}}

	assert.NoError(t, EnrichBookProcessor(enricher, covers)(context.Background(), EnrichBookTask{BookID: 4}))
}

func TestEnrichBookProcessor_SearchError(t *testing.T) {
	enricher := stubEnricher{err: metadata.ErrNotFound}

	err := EnrichBookProcessor(enricher, nil)(context.Background(), EnrichBookTask{BookID: 4})
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestReleaseMediaProcessor(t *testing.T) {
	ctx := context.Background()

	var got []string
	releaser := releaserFunc(func(handle string) error {
		got = append(got, handle)
		return nil
	})
	require.NoError(t, ReleaseMediaProcessor(releaser)(ctx, ReleaseMediaTask{Handle: "covers/book_1/a.png"}))
	require.NoError(t, ReleaseMediaProcessor(releaser)(ctx, ReleaseMediaTask{}))
	assert.Equal(t, []string{"covers/book_1/a.png"}, got)

	failing := releaserFunc(func(string) error { return errors.New("permission denied") })
	assert.Error(t, ReleaseMediaProcessor(failing)(ctx, ReleaseMediaTask{Handle: "x"}))
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	ctx := context.Background()
	cleaner := &stubCleaner{}

	require.NoError(t, CleanupAuditEventsProcessor(cleaner)(ctx, CleanupAuditEventsTask{RetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	require.NoError(t, CleanupAuditEventsProcessor(cleaner)(ctx, CleanupAuditEventsTask{}))
	assert.Equal(t, DefaultAuditRetentionDays*24*time.Hour, cleaner.retention)
}
