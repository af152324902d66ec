package command

// root.go wires the admin tool: it loads the same environment as the API
// server and opens the store once for whichever subcommand runs.

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"bookshare/database"
	"bookshare/internal/changefeed"
	"bookshare/internal/config"
	"bookshare/internal/store"
)

// app is the state shared by subcommands after PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	close  func()
}

var current *app

// openStore connects to the configured database. Tests swap it out.
var openStore = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, func(), error) {
	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	// Writes made here reach the API's dispatcher only over Redis.
	var pub changefeed.Publisher
	var closeFeed func() error
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			database.Close(db)
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		rf := changefeed.NewRedis(redis.NewClient(opts), cfg.ChangefeedPrefix, logger)
		pub, closeFeed = rf, rf.Close
	}

	st := store.New(db, pub, store.WithLogger(logger))
	return st, func() {
		if closeFeed != nil {
			closeFeed()
		}
		database.Close(db)
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "bookshare-admin",
	Short: "bookshare-admin - operator tooling for the book sharing service",
	Long: `bookshare-admin runs maintenance jobs against the book sharing database:
- create or update the schema
- run the daily due-date reminder sweep by hand
- approve or reject requests through the legacy inventory path
- bulk import a chapter's catalog from JSON

Configuration comes from the same environment variables (or .env file) as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := cfg.NewLogger()

		st, closeFn, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		current = &app{cfg: cfg, logger: logger, store: st, close: closeFn}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil && current.close != nil {
			current.close()
		}
		current = nil
	},
}

// Execute runs the root command; main calls it once.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, remindersCmd, inventoryCmd, catalogCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Schema is up to date")
		return nil
	},
}
