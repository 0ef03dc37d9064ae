package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	dbaudit "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/database/bookmarks"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/database/reviews"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/database/users"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/media"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/ratings"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/services"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT. SIGKILL can't be caught.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Background work stops after the server so in-flight requests can still enqueue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	db, err := database.Open(cfg.Database.Path, database.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	defaultUser, err := db.EnsureDefaultUser()
	if err != nil {
		log.Fatalf("Failed to ensure default user: %v", err)
	}

	mediaStore, err := media.NewStore(cfg.Media.Dir, cfg.Media.MaxUploadBytes)
	if err != nil {
		log.Fatalf("Failed to initialize media store: %v", err)
	}
	mediaStore.SetMaxBookBytes(cfg.Media.MaxBookBytes)
	log.Printf("Media store initialized at %s", mediaStore.Root())

	// Consistency core
	aggregator := ratings.NewAggregator(db.DB)
	catalog := books.NewRepository(db.DB)
	reviewLedger := reviews.NewRepository(db.DB, aggregator)
	progressTracker := progress.NewRepository(db.DB)
	bookmarkSet := bookmarks.NewRepository(db.DB)
	userStore := users.NewRepository(db.DB, aggregator)

	auditService := audit.NewService(dbaudit.NewRepository(db.DB))
	defer auditService.Wait()

	catalogService := services.NewCatalogService(catalog, mediaStore)
	profileService := services.NewProfileService(userStore, mediaStore)
	libraryService := services.NewLibraryService(catalog, progressTracker, bookmarkSet, reviewLedger, aggregator)

	// Background work
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, taskCtxCancel = startTasks(cfg, catalog, catalogService, aggregator, mediaStore, auditService)
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()
		catalogService.SetReleaseQueue(taskClient)
		profileService.SetReleaseQueue(taskClient)
	} else {
		log.Printf("Task queue disabled; replaced media that fails to delete is left on disk")
	}

	settingsStore := settingsstore.New(settings.NewRepository(db.DB), cfg.Reconcile)
	reconcileScheduler := scheduler.NewRatingReconcileScheduler(settingsStore, aggregator, auditService)
	if err := reconcileScheduler.Start(context.Background()); err != nil {
		log.Printf("WARNING: rating reconcile scheduler not started: %v", err)
	}

	// Identity
	authService := auth.NewService(db.DB, cfg.Auth)
	var sessionManager *auth.SessionManager
	var csrfSecret []byte
	var authController *auth.AuthController

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		if cfg.Auth.SessionSecret == "" {
			log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}
		csrfSecret, err = auth.SessionSecretBytes(cfg.Auth.SessionSecret)
		if err != nil {
			log.Fatalf("Failed to derive CSRF secret: %v", err)
		}

		authController = auth.NewAuthController(authService, sessionManager, cfg.Auth, auditService)
		defer authController.Stop()

		if count, _ := authService.GetUserCount(); count == 0 {
			log.Printf("No accounts with passwords yet. The first signup becomes the administrator.")
		}
	} else {
		log.Printf("Authentication mode: none (every request acts as %q)", defaultUser.Username)
	}

	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth, defaultUser)

	routerCfg := http_controllers.RouterConfig{
		Catalog:        catalog,
		CatalogWriter:  catalogService,
		Library:        libraryService,
		Reviews:        reviewLedger,
		Breakdown:      aggregator,
		Progress:       progressTracker,
		Bookmarks:      bookmarkSet,
		Profiles:       profileService,
		Media:          mediaStore,
		AuditEvents:    auditService,
		Auditor:        auditService,
		AuthConfig:     cfg.Auth,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		AuthService:    authService,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		RequestLimiter: auth.NewRequestLimiter(time.Second, 10),
		Database:       db,
		MediaRoot:      mediaStore.Root(),
		Version:        version,
	}
	// A nil *tasks.Client must not become a non-nil interface.
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		reconcileScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// startTasks opens the task queue, registers every queue and starts the workers.
func startTasks(
	cfg *config.Config,
	catalog *books.Repository,
	catalogService *services.CatalogService,
	aggregator *ratings.Aggregator,
	mediaStore *media.Store,
	auditService *audit.Service,
) (*tasks.Client, context.CancelFunc) {
	taskCfg := tasks.Config{
		Workers:           cfg.Tasks.Workers,
		MaxRetries:        cfg.Tasks.MaxRetries,
		RetryDelay:        cfg.Tasks.RetryDelay,
		TaskTimeout:       cfg.Tasks.TaskTimeout,
		ReleaseAfter:      cfg.Tasks.ReleaseAfter,
		CleanupInterval:   cfg.Tasks.CleanupInterval,
		RetentionDuration: cfg.Tasks.RetentionDuration,
	}

	taskClient, err := tasks.NewClient(cfg.Database.Path, taskCfg)
	if err != nil {
		log.Fatalf("Failed to initialize task queue: %v", err)
	}

	taskClient.Register(
		tasks.NewRecomputeRatingQueue(aggregator),
		tasks.NewReconcileRatingsQueue(aggregator, auditService),
		tasks.NewReleaseMediaQueue(mediaStore),
		tasks.NewCleanupAuditEventsQueue(auditService),
	)

	if cfg.Metadata.Enabled {
		enricher := metadata.NewEnricher(metadata.NewOpenLibraryClient(cfg.Metadata.BaseURL), catalog)
		taskClient.Register(
			tasks.NewEnrichBookQueue(enricher, catalogService),
			tasks.NewEnrichAllBooksQueue(enricher),
		)
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	go taskClient.Start(taskCtx)

	if cfg.Audit.RetentionDays > 0 {
		if _, err := taskClient.Enqueue(taskCtx, tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}); err != nil {
			log.Printf("WARNING: failed to schedule audit cleanup: %v", err)
		}
	}

	log.Printf("Task queue database: %s", tasks.TasksDBPath(cfg.Database.Path))
	return taskClient, cancel
}
