package main

import (
	"encoding/json"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
)

func newMatrixCommand(cfg *Config, root *RootOptions) *cobra.Command {
	var matrixDir string

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print the browser matrix the current environment would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := config.ModeFromEnv(cfg.Env)
			descriptors, err := matrix.Load(matrixFS(matrixDir), mode)
			if err != nil {
				return setupError("loading matrix", err)
			}

			result := MatrixResult{Mode: string(mode)}
			for _, d := range descriptors {
				result.Descriptors = append(result.Descriptors, MatrixEntry{
					Capabilities:   json.RawMessage(d.String()),
					SupportsResize: d.SupportsResize(),
				})
			}
			return outputResult(cfg, root.Format, result)
		},
	}

	cmd.Flags().StringVar(&matrixDir, "matrix-dir", "", "directory holding browsers-{local,remote}.json (default: built in)")
	return cmd
}

func matrixFS(dir string) fs.FS {
	if dir == "" {
		return matrix.Defaults()
	}
	return os.DirFS(dir)
}
