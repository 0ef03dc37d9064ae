package http

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Catalog
	Catalog       CatalogReader
	CatalogWriter CatalogWriter
	Library       LibraryViews

	// Consistency core
	Reviews   ReviewLedger
	Breakdown RatingBreakdown
	Progress  ProgressTracker
	Bookmarks BookmarkSet

	// Users and their files
	Profiles ProfileManager
	Media    MediaOpener

	// Background work and audit. TaskQueue may be nil when the queue is disabled.
	TaskQueue   TaskQueue
	AuditEvents AuditReader
	Auditor     ActivityAuditor

	// Authentication
	AuthConfig     config.Auth
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	RequestLimiter *auth.RequestLimiter

	// Health
	Database  *database.Database
	MediaRoot string
	Version   string
}
