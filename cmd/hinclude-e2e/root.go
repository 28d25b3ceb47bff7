package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// validFormats are the accepted --format values.
var validFormats = []string{"auto", "text", "json"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string

	logger *slog.Logger
}

func newRootCommand(cfg *Config) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hinclude-e2e",
		Short: "Cross-browser conformance suite for h-include",
		Long: `Runs the h-include conformance scenarios against every browser in the
matrix, locally (IS_LOCAL=true) or on the Sauce Labs grid.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return setupError(fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats), nil)
			}
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cfg.Stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "auto", "output format (auto|text|json)")

	cmd.AddCommand(newRunCommand(cfg, opts))
	cmd.AddCommand(newMatrixCommand(cfg, opts))
	cmd.AddCommand(newServeCommand(cfg, opts))

	return cmd
}
