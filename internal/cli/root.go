package cli

import (
	"context"
	"fmt"

	"corpus-manager/internal/config"
	"corpus-manager/internal/database"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/startup"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root command for corpus-manager
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "corpus-manager",
		Short: "Index, search and consolidate a document corpus",
		Long: `corpus-manager keeps a SQLite index of a directory tree of documents.

It detects new, changed and deleted files by size, modification time and
SHA-256 fingerprint, answers filtered queries over the index, and
consolidates selections into Markdown, JSON or text artifacts.`,
		Version: startup.Version,
		// main prints the error; usage would only repeat the help text
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newIndexCommand(opts))
	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newConsolidateCommand(opts))
	cmd.AddCommand(newJobsCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newTagCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// load reads the configuration and applies the log level.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logging.SetLevel(level)
	return cfg, nil
}

// openDatabase loads the configuration and opens the index database.
// The caller closes the database.
func (o *rootOptions) openDatabase(ctx context.Context) (*config.Config, *database.Database, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(ctx, cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}
