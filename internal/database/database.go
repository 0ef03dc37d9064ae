package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var defaultGenres = []entities.Genre{
	{Name: "Fiction", Slug: "fiction"},
	{Name: "Non-Fiction", Slug: "non-fiction"},
	{Name: "Science Fiction", Slug: "science-fiction"},
	{Name: "Fantasy", Slug: "fantasy"},
	{Name: "Mystery", Slug: "mystery"},
	{Name: "Biography", Slug: "biography"},
	{Name: "History", Slug: "history"},
	{Name: "Philosophy", Slug: "philosophy"},
	{Name: "Poetry", Slug: "poetry"},
	{Name: "Science", Slug: "science"},
}

// DefaultUsername is the account requests act as when authentication is disabled.
const DefaultUsername = "reader"

// sqliteParams enables cascades, waits on a busy writer instead of failing,
// and takes the write lock at BEGIN so read-then-write transactions serialize.
const sqliteParams = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

type Database struct {
	DB *gorm.DB
}

// Options tunes how the database is opened.
type Options struct {
	LogLevel logger.LogLevel
}

func NewDatabase(dbPath string) (*Database, error) {
	return Open(dbPath, Options{LogLevel: logger.Warn})
}

// Open connects to the sqlite database at dbPath, migrates the schema and
// seeds reference data.
func Open(dbPath string, opts Options) (*Database, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.UserProfile{},
		&entities.Author{},
		&entities.Genre{},
		&entities.Book{},
		&entities.Review{},
		&entities.ReadingProgress{},
		&entities.Bookmark{},
		&entities.AuditEvent{},
		&entities.Setting{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedGenres(); err != nil {
		return nil, fmt.Errorf("failed to seed genres: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + sqliteParams
	}
	return dbPath + "?" + sqliteParams
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) seedGenres() error {
	for _, genre := range defaultGenres {
		var existing entities.Genre
		result := d.DB.Where("slug = ?", genre.Slug).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := d.DB.Create(&genre).Error; err != nil {
				return fmt.Errorf("failed to create genre %s: %w", genre.Name, err)
			}
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// EnsureDefaultUser returns the account used when authentication is disabled,
// creating it on first start.
func (d *Database) EnsureDefaultUser() (*entities.User, error) {
	var user entities.User
	err := d.DB.Where("username = ?", DefaultUsername).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = entities.User{
		Username: DefaultUsername,
		Email:    DefaultUsername + "@localhost",
		Role:     entities.UserRoleAdmin,
	}
	if err := d.DB.Create(&user).Error; err != nil {
		if IsUniqueViolation(err) {
			err = d.DB.Where("username = ?", DefaultUsername).First(&user).Error
			return &user, err
		}
		return nil, fmt.Errorf("failed to create default user: %w", err)
	}
	log.Printf("Created default user %q (id %d)", user.Username, user.ID)
	return &user, nil
}
