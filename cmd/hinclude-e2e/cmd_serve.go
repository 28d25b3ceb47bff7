package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomyan/hinclude-e2e/internal/fixtures"
)

func newServeCommand(cfg *Config, root *RootOptions) *cobra.Command {
	var dir, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve fixture pages under /static/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(dir)
			if err != nil {
				return setupError("fixture directory", err)
			}
			if !info.IsDir() {
				return setupError("fixture directory "+dir+" is not a directory", nil)
			}

			root.logger.Info("serving fixtures", "dir", dir, "addr", addr)
			if err := fixtures.ListenAndServe(cmd.Context(), addr, fixtures.NewHandler(os.DirFS(dir), root.logger)); err != nil {
				return setupError("fixture server", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "static root containing the fixture directories (required)")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
