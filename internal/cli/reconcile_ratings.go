package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

// ReconcileRatingsCommand recomputes every book's cached rating from its reviews.
type ReconcileRatingsCommand struct {
	DatabasePath string
	Verbose      bool
}

func NewReconcileRatingsCommand() *ReconcileRatingsCommand {
	return &ReconcileRatingsCommand{}
}

func (cmd *ReconcileRatingsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reconcile-ratings", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List the books whose stored rating had drifted")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reconcile-ratings [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Recompute the average rating and review count of every book.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ReconcileRatingsCommand) Run() error {
	db, err := database.Open(cmd.DatabasePath, database.Options{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	result, err := ratings.NewAggregator(db.DB).Reconcile(context.Background())
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	fmt.Printf("Checked %d books, corrected %d, failed %d\n", result.Checked, result.Changed, result.Failed)
	if cmd.Verbose {
		for _, id := range result.Drifted {
			fmt.Printf("  book %d\n", id)
		}
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d books could not be reconciled", result.Failed)
	}
	return nil
}
