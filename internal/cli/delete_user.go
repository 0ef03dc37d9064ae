package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/media"
	"github.com/mrlokans/bookshelf/internal/ratings"
)

// DeleteUserCommand removes an account with everything it owns. Ratings of
// the books the user reviewed are recomputed and the avatar file is released.
type DeleteUserCommand struct {
	DatabasePath string
	MediaDir     string
	Username     string
}

func NewDeleteUserCommand() *DeleteUserCommand {
	return &DeleteUserCommand{}
}

func (cmd *DeleteUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("delete-user", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.MediaDir, "media", config.DefaultMediaDir, "Media directory holding avatars")
	fs.StringVar(&cmd.Username, "username", "", "Username to delete (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s delete-user -username <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	return nil
}

func (cmd *DeleteUserCommand) Run() error {
	db, err := database.Open(cmd.DatabasePath, database.Options{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := users.NewRepository(db.DB, ratings.NewAggregator(db.DB))

	user, err := repo.GetUserByUsername(ctx, cmd.Username)
	if err != nil {
		return err
	}
	avatar, err := repo.DeleteUser(ctx, user.ID)
	if err != nil {
		return err
	}

	if avatar != "" {
		store, err := media.NewStore(cmd.MediaDir, 0)
		if err != nil {
			return fmt.Errorf("open media store: %w", err)
		}
		if err := store.Release(avatar); err != nil {
			log.Printf("Failed to remove avatar %s: %v", avatar, err)
		}
	}

	fmt.Printf("Deleted user %q\n", cmd.Username)
	return nil
}
