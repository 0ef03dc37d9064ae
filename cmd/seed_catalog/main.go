// Command seed_catalog creates a database with public domain books, a few
// readers and their reviews, progress and bookmarks.
// Usage: go run ./cmd/seed_catalog [-db path/to/bookshelf.db]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/bookmarks"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/database/reviews"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/media"
	"github.com/mrlokans/bookshelf/internal/ratings"
	"github.com/mrlokans/bookshelf/internal/services"
)

const defaultSeedDatabasePath = "./demo/bookshelf.db"

type seedReview struct {
	Reader string
	Rating int
	Title  string
	Body   string
}

type seedBook struct {
	Input    services.NewBookInput
	Reviews  []seedReview
	Progress map[string]int
}

func intPtr(v int) *int { return &v }

func main() {
	dbPath := flag.String("db", defaultSeedDatabasePath, "path to the database file")
	fresh := flag.Bool("fresh", true, "delete an existing database first")
	flag.Parse()

	log.Printf("Seeding catalog at %s...", *dbPath)

	if *fresh {
		if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove existing database: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	store, err := media.NewStore(filepath.Join(filepath.Dir(*dbPath), "media"), 0)
	if err != nil {
		log.Fatalf("Failed to create media store: %v", err)
	}

	ctx := context.Background()
	aggregator := ratings.NewAggregator(db.DB)
	catalogRepo := books.NewRepository(db.DB)
	catalog := services.NewCatalogService(catalogRepo, store)
	ledger := reviews.NewRepository(db.DB, aggregator)
	tracker := progress.NewRepository(db.DB)
	marks := bookmarks.NewRepository(db.DB)

	readers := createReaders(db)

	for _, sb := range publicDomainBooks() {
		book, err := catalog.CreateBook(ctx, sb.Input)
		if err != nil {
			log.Printf("Failed to create %s: %v", sb.Input.Title, err)
			continue
		}

		for _, r := range sb.Reviews {
			reader, ok := readers[r.Reader]
			if !ok {
				continue
			}
			if _, _, err := ledger.Upsert(ctx, reviews.ReviewInput{
				UserID:   reader.ID,
				BookID:   book.ID,
				Rating:   r.Rating,
				Title:    r.Title,
				Content:  r.Body,
				IsPublic: true,
			}); err != nil {
				log.Printf("Failed to review %s as %s: %v", book.Title, r.Reader, err)
			}
		}

		for name, page := range sb.Progress {
			reader, ok := readers[name]
			if !ok {
				continue
			}
			if _, err := tracker.Advance(ctx, reader.ID, book.ID, page); err != nil {
				log.Printf("Failed to record progress in %s for %s: %v", book.Title, name, err)
			}
			if _, err := marks.Toggle(ctx, reader.ID, book.ID); err != nil {
				log.Printf("Failed to bookmark %s for %s: %v", book.Title, name, err)
			}
		}

		saved, err := catalogRepo.GetBookByID(ctx, book.ID)
		if err != nil {
			log.Printf("Failed to reload %s: %v", book.Title, err)
			continue
		}
		log.Printf("Seeded: %s (%.2f from %d reviews)", saved.Title, saved.AverageRating, saved.ReviewCount)
	}

	log.Println("Catalog seeded successfully!")
}

func createReaders(db *database.Database) map[string]*entities.User {
	readers := make(map[string]*entities.User)

	reader, err := db.EnsureDefaultUser()
	if err != nil {
		log.Fatalf("Failed to create default user: %v", err)
	}
	readers[reader.Username] = reader

	for _, name := range []string{"ada", "basil", "clementine"} {
		user := &entities.User{
			Username: name,
			Email:    name + "@example.com",
			Role:     entities.UserRoleViewer,
		}
		if err := db.DB.Where(entities.User{Username: name}).FirstOrCreate(user).Error; err != nil {
			log.Printf("Failed to create reader %s: %v", name, err)
			continue
		}
		readers[name] = user
	}
	return readers
}

func publicDomainBooks() []seedBook {
	return []seedBook{
		{
			Input: services.NewBookInput{
				Title:           "Pride and Prejudice",
				Description:     "Elizabeth Bennet and Mr. Darcy misjudge each other across the drawing rooms of Hertfordshire.",
				ISBN:            "9780141439518",
				Language:        entities.BookLanguageEnglish,
				Format:          entities.BookFormatPDF,
				Publisher:       "T. Egerton",
				PublicationYear: 1813,
				PageCount:       intPtr(432),
				IsFeatured:      true,
				Authors:         []string{"Jane Austen"},
				Genres:          []string{"fiction"},
			},
			Reviews: []seedReview{
				{Reader: "ada", Rating: 5, Title: "Sharp and funny", Body: "Every line of dialogue earns its place."},
				{Reader: "basil", Rating: 4, Title: "Better than expected", Body: "Slow first act, superb second half."},
			},
			Progress: map[string]int{"ada": 432, "clementine": 120},
		},
		{
			Input: services.NewBookInput{
				Title:           "Frankenstein",
				Description:     "A young scientist creates life and then abandons it.",
				ISBN:            "9780141439471",
				Language:        entities.BookLanguageEnglish,
				Format:          entities.BookFormatEPUB,
				Publisher:       "Lackington, Hughes, Harding, Mavor & Jones",
				PublicationYear: 1818,
				PageCount:       intPtr(280),
				Authors:         []string{"Mary Shelley"},
				Genres:          []string{"fiction", "science-fiction"},
			},
			Reviews: []seedReview{
				{Reader: "basil", Rating: 5, Title: "Still unsettling", Body: "The creature's chapters are the heart of it."},
				{Reader: "clementine", Rating: 3, Body: "Framing device wore on me."},
			},
			Progress: map[string]int{"basil": 270},
		},
		{
			Input: services.NewBookInput{
				Title:           "Meditations",
				Description:     "Private notes on duty and impermanence by a Roman emperor.",
				Language:        entities.BookLanguageEnglish,
				Format:          entities.BookFormatEPUB,
				PublicationYear: 180,
				PageCount:       intPtr(254),
				Authors:         []string{"Marcus Aurelius"},
				Genres:          []string{"philosophy"},
			},
			Reviews: []seedReview{
				{Reader: "reader", Rating: 4, Body: "A page a day."},
			},
			Progress: map[string]int{"reader": 60},
		},
		{
			Input: services.NewBookInput{
				Title:           "The Time Machine",
				Description:     "A Victorian inventor travels to the year 802,701.",
				ISBN:            "9780141439976",
				Language:        entities.BookLanguageEnglish,
				Format:          entities.BookFormatPDF,
				PublicationYear: 1895,
				Authors:         []string{"H. G. Wells"},
				Genres:          []string{"science-fiction"},
			},
		},
	}
}
