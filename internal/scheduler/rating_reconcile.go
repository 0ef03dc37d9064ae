package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/ratings"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
)

// Reconciler verifies stored rating aggregates against their reviews.
type Reconciler interface {
	Reconcile(ctx context.Context) (ratings.ReconcileResult, error)
}

// RunReporter receives the outcome of each run, e.g. the audit service.
type RunReporter interface {
	LogReconcile(result *ratings.ReconcileResult, err error)
}

// RatingReconcileScheduler runs the rating reconcile on a cron schedule.
type RatingReconcileScheduler struct {
	settingsStore *settingsstore.SettingsStore
	reconciler    Reconciler
	reporter      RunReporter
	runTimeout    time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewRatingReconcileScheduler creates a new scheduler instance. reporter may be nil.
func NewRatingReconcileScheduler(settingsStore *settingsstore.SettingsStore, reconciler Reconciler, reporter RunReporter) *RatingReconcileScheduler {
	return &RatingReconcileScheduler{
		settingsStore: settingsStore,
		reconciler:    reconciler,
		reporter:      reporter,
		runTimeout:    30 * time.Minute,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if reconcile is enabled
func (s *RatingReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	config := s.settingsStore.GetReconcileConfig()

	if !config.Enabled {
		log.Printf("Rating reconcile scheduler: disabled")
		return nil
	}

	if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(config.Schedule, func() {
		s.runReconcile()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconcile job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(config.Schedule, time.Now())
	log.Printf("Rating reconcile scheduler: started with schedule '%s' (%s). Next run: %v",
		config.Schedule,
		settingsstore.GetCronDescription(config.Schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler and waits for a run in progress.
func (s *RatingReconcileScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	s.cron.Remove(s.entryID)
	cancel := s.cancelFunc
	s.isRunning = false
	s.cancelFunc = nil
	s.mu.Unlock()

	<-ctx.Done()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	log.Printf("Rating reconcile scheduler: stopped")
}

// Reschedule updates the schedule (call after settings change)
func (s *RatingReconcileScheduler) Reschedule(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// RunNow triggers an immediate reconcile in the background.
func (s *RatingReconcileScheduler) RunNow() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runReconcile()
	}()
	return nil
}

// Wait blocks until background runs started by RunNow have finished.
func (s *RatingReconcileScheduler) Wait() {
	s.wg.Wait()
}

// IsRunning returns whether the scheduler is active
func (s *RatingReconcileScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsReconciling returns whether a reconcile is currently in progress
func (s *RatingReconcileScheduler) IsReconciling() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next reconcile will occur
func (s *RatingReconcileScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runReconcile performs one reconcile and records its outcome.
func (s *RatingReconcileScheduler) runReconcile() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Rating reconcile: skipped (already running)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	log.Printf("Rating reconcile: starting")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	result, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		log.Printf("Rating reconcile: failed: %v", err)
	} else {
		log.Printf("Rating reconcile: checked %d books, repaired %d in %v",
			result.Checked, result.Changed, time.Since(startTime).Round(time.Millisecond))
	}

	if recErr := s.settingsStore.RecordReconcileRun(result, err); recErr != nil {
		log.Printf("Rating reconcile: failed to record status: %v", recErr)
	}
	if s.reporter != nil {
		s.reporter.LogReconcile(&result, err)
	}
}
