package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(31536000))
	}

	// Session loads first so the CSRF request rewrite keeps the session context.
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthConfig.Mode == config.AuthModeLocal && len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
	}

	mw := cfg.AuthMiddleware
	if mw == nil {
		mw = auth.NewMiddleware(cfg.AuthService, nil, cfg.AuthConfig, nil)
	}
	router.Use(mw.Handler())

	requireAuth := mw.RequireAuth()
	curators := mw.RequireRole(entities.UserRoleAdmin, entities.UserRoleEditor)
	admins := mw.RequireRole(entities.UserRoleAdmin)

	health := NewHealthController(cfg.Database, cfg.MediaRoot, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	if cfg.Media != nil {
		router.GET("/media/*handle", NewMediaController(cfg.Media).Serve)
	}

	api := router.Group("/api")

	if cfg.AuthController != nil {
		authGroup := api.Group("/auth")
		if cfg.RequestLimiter != nil {
			authGroup.Use(cfg.RequestLimiter.Middleware())
		}
		cfg.AuthController.RegisterRoutes(authGroup, requireAuth)
	}

	books := NewBooksController(cfg.Catalog, cfg.CatalogWriter, cfg.Library, cfg.TaskQueue, cfg.Auditor)
	reviews := NewReviewsController(cfg.Catalog, cfg.Reviews, cfg.Breakdown, cfg.Auditor)
	progress := NewProgressController(cfg.Catalog, cfg.Progress, cfg.Auditor)
	bookmarks := NewBookmarksController(cfg.Catalog, cfg.Bookmarks, cfg.Auditor)
	reader := NewReaderController(cfg.Catalog, cfg.Progress, cfg.Bookmarks, cfg.Media)

	api.GET("/genres", books.Genres)
	api.GET("/authors", books.Authors)
	api.POST("/authors/:slug/photo", requireAuth, curators, books.UploadAuthorPhoto)

	bookRoutes := api.Group("/books")
	{
		bookRoutes.GET("", books.List)
		bookRoutes.POST("", requireAuth, curators, books.Create)
		bookRoutes.GET("/:slug", books.Detail)
		bookRoutes.PATCH("/:slug/page-count", requireAuth, curators, books.SetPageCount)
		bookRoutes.POST("/:slug/cover", requireAuth, curators, books.UploadCover)
		bookRoutes.POST("/:slug/file", requireAuth, curators, books.UploadFile)
		bookRoutes.GET("/:slug/read", requireAuth, reader.Read)
		bookRoutes.POST("/:slug/enrich", requireAuth, curators, books.Enrich)

		bookRoutes.GET("/:slug/reviews", reviews.List)
		bookRoutes.POST("/:slug/reviews", requireAuth, reviews.Create)
		bookRoutes.PUT("/:slug/review", requireAuth, reviews.Upsert)

		bookRoutes.GET("/:slug/progress", requireAuth, progress.Get)
		bookRoutes.PUT("/:slug/progress", requireAuth, progress.Advance)
		bookRoutes.POST("/:slug/progress/complete", requireAuth, progress.SetCompleted)

		bookRoutes.GET("/:slug/bookmark", requireAuth, bookmarks.Status)
		bookRoutes.POST("/:slug/bookmark", requireAuth, bookmarks.Toggle)
	}

	api.DELETE("/reviews/:id", requireAuth, reviews.Delete)

	me := NewMeController(cfg.Library, cfg.Profiles, cfg.Auditor)
	meRoutes := api.Group("/me", requireAuth)
	{
		meRoutes.GET("/dashboard", me.Dashboard)
		meRoutes.GET("/library", me.Library)
		meRoutes.GET("/profile", me.Profile)
		meRoutes.PATCH("/profile", me.UpdateProfile)
		meRoutes.POST("/avatar", me.ReplaceAvatar)
		meRoutes.DELETE("/avatar", me.RemoveAvatar)
		if cfg.AuthController != nil {
			meRoutes.POST("/password", cfg.AuthController.ChangePassword)
		}
	}

	admin := NewAdminController(cfg.TaskQueue, cfg.AuditEvents)
	adminRoutes := api.Group("/admin", requireAuth, admins)
	{
		adminRoutes.POST("/ratings/reconcile", admin.ReconcileRatings)
		adminRoutes.GET("/tasks/types", admin.ListTaskTypes)
		adminRoutes.GET("/tasks/:id", admin.GetTaskStatus)
		adminRoutes.POST("/tasks/:type/run", admin.RunTask)
		if cfg.AuditEvents != nil {
			adminRoutes.GET("/audit", admin.AuditEvents)
		}
	}

	return router
}
