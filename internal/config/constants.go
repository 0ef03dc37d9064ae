package config

// Default paths for on-disk state
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultMediaDir holds uploaded avatars and cached covers
	DefaultMediaDir = "./media"

	// DefaultReconcileSchedule runs the rating reconcile nightly at 03:00
	DefaultReconcileSchedule = "0 3 * * *"
)
