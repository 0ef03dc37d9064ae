// Package ratings keeps each book's derived rating fields equal to the
// aggregate of its reviews.
//
// The review ledger calls RecomputeTx inside the transaction that changed the
// review set, so the derived fields commit atomically with the review write.
// Recompute and Reconcile are for callers outside a ledger write (tasks,
// the scheduler, the CLI).
package ratings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Aggregate is a book's (average, count) rating pair.
type Aggregate struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// Aggregator recomputes and persists book rating aggregates.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates a new rating aggregator.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Recompute recalculates a book's aggregate in its own transaction.
func (a *Aggregator) Recompute(ctx context.Context, bookID uint) (Aggregate, error) {
	var agg Aggregate
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		agg, err = a.RecomputeTx(tx, bookID)
		return err
	})
	return agg, err
}

// RecomputeTx recalculates a book's aggregate using tx and writes it back.
//
// The book row is locked before the reviews are read, so two recomputations
// of the same book cannot interleave. On sqlite the locking clause is a no-op
// and the connection's immediate transactions hold the database write lock.
func (a *Aggregator) RecomputeTx(tx *gorm.DB, bookID uint) (Aggregate, error) {
	var book entities.Book
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&book, bookID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Aggregate{}, library.NotFound("book", bookID)
		}
		return Aggregate{}, fmt.Errorf("lock book %d: %w", bookID, err)
	}

	var row struct {
		Count int64
		Sum   int64
	}
	err = tx.Model(&entities.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil {
		return Aggregate{}, fmt.Errorf("aggregate reviews for book %d: %w", bookID, err)
	}

	agg := Aggregate{Count: row.Count, Average: MeanRating(row.Sum, row.Count)}

	err = tx.Model(&entities.Book{}).
		Where("id = ?", bookID).
		UpdateColumns(map[string]any{
			"average_rating": agg.Average,
			"review_count":   agg.Count,
		}).Error
	if err != nil {
		return Aggregate{}, fmt.Errorf("persist aggregate for book %d: %w", bookID, err)
	}

	return agg, nil
}

// MeanRating is sum/n rounded to two decimal places, halves up. It works in
// integers so that exact halves such as 107/40 = 2.675 round to 2.68. An
// empty set averages 0.
func MeanRating(sum, n int64) float64 {
	if n <= 0 {
		return 0
	}
	return float64((sum*200+n)/(2*n)) / 100
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Distribution is the per-star breakdown of a book's reviews.
type Distribution struct {
	FiveStars  int64   `json:"five_stars"`
	FourStars  int64   `json:"four_stars"`
	ThreeStars int64   `json:"three_stars"`
	TwoStars   int64   `json:"two_stars"`
	OneStar    int64   `json:"one_star"`
	Average    float64 `json:"average"`
	Total      int64   `json:"total"`
}

// Breakdown counts a book's reviews by star value. It reads the reviews
// directly and does not touch the stored aggregate.
func (a *Aggregator) Breakdown(ctx context.Context, bookID uint) (Distribution, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := a.db.WithContext(ctx).Model(&entities.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return Distribution{}, fmt.Errorf("rating breakdown for book %d: %w", bookID, err)
	}

	var d Distribution
	var sum int64
	for _, r := range rows {
		switch r.Rating {
		case 5:
			d.FiveStars = r.Count
		case 4:
			d.FourStars = r.Count
		case 3:
			d.ThreeStars = r.Count
		case 2:
			d.TwoStars = r.Count
		case 1:
			d.OneStar = r.Count
		}
		d.Total += r.Count
		sum += int64(r.Rating) * r.Count
	}
	if d.Total > 0 {
		d.Average = MeanRating(sum, d.Total)
	}
	return d, nil
}

// ReconcileResult summarises a full recompute pass.
type ReconcileResult struct {
	Checked int    `json:"checked"`
	Changed int    `json:"changed"`
	Failed  int    `json:"failed"`
	Drifted []uint `json:"drifted,omitempty"`
}

// Reconcile recomputes every book and reports which stored aggregates had
// drifted from their reviews. Errors on individual books are counted and
// logged; the pass continues.
func (a *Aggregator) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var books []entities.Book
	err := a.db.WithContext(ctx).
		Select("id", "average_rating", "review_count").
		Order("id").
		Find(&books).Error
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list books: %w", err)
	}

	var result ReconcileResult
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		agg, err := a.Recompute(ctx, book.ID)
		result.Checked++
		if err != nil {
			result.Failed++
			log.Printf("Rating reconcile: book %d: %v", book.ID, err)
			continue
		}
		if agg.Count != book.ReviewCount || agg.Average != Round2(book.AverageRating) {
			result.Changed++
			result.Drifted = append(result.Drifted, book.ID)
		}
	}

	return result, nil
}
