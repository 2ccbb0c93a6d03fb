package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"corpus-manager/internal/database"

	"github.com/spf13/cobra"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var (
		root  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [--root DIR] [--force]",
		Short: "Write a config file and create the index database",
		Long: `Prepare a corpus for indexing.

Writes the effective configuration (defaults plus environment overrides) to
the --config path unless a file is already there, then creates the index
database and the export directory. An existing config file is only replaced
with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			_, statErr := os.Stat(opts.configPath)
			exists := statErr == nil
			if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
				return fmt.Errorf("check config %s: %w", opts.configPath, statErr)
			}
			if exists && root != "" && !force {
				return fmt.Errorf("config %s already exists; use --force to replace it", opts.configPath)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}

			if !exists || force {
				if root != "" {
					abs, err := filepath.Abs(root)
					if err != nil {
						return fmt.Errorf("resolve root %s: %w", root, err)
					}
					cfg.Corpus.RootPath = abs
				}
				if err := cfg.Save(opts.configPath); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				successColor.Fprintf(w, "Wrote config %s\n", opts.configPath)
			} else {
				dimColor.Fprintf(w, "Using existing config %s\n", opts.configPath)
			}

			db, err := database.New(cmd.Context(), cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("create database: %w", err)
			}
			if err := db.Close(); err != nil {
				return fmt.Errorf("close database: %w", err)
			}
			fmt.Fprintf(w, "  Database:   %s\n", cfg.Database.Path)

			if err := os.MkdirAll(cfg.Consolidation.OutputDir, 0o755); err != nil {
				return fmt.Errorf("create export directory: %w", err)
			}
			fmt.Fprintf(w, "  Exports:    %s\n", cfg.Consolidation.OutputDir)
			fmt.Fprintf(w, "  Corpus:     %s\n", cfg.Corpus.RootPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Corpus root directory to record in the new config")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config file")

	return cmd
}
