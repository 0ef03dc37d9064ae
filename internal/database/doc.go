// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, genre seeding
//	├── conflict.go      # Unique-index race detection and retry
//	├── books/           # Catalog store: books, authors, genres
//	├── reviews/         # Review ledger (drives rating aggregation)
//	├── progress/        # Reading progress tracker
//	├── bookmarks/       # Bookmark set
//	├── users/           # Users and profiles
//	├── settings/        # Application settings
//	└── audit/           # Audit events
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./bookshelf.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	ledger := reviews.NewRepository(db.DB, ratings.NewAggregator(db.DB))
//
//	book, err := booksRepo.GetBookBySlug(ctx, "dune")
//	review, created, err := ledger.Upsert(ctx, reviews.Input{...})
//
// # Uniqueness
//
// Reviews, reading progress and bookmarks are unique per (user, book) at the
// storage layer. Repositories look the row up first and use RetryOnConflict so
// a lost insert race is replayed as an update of the winning row.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check in internal/interfaces/checks.go
package database
