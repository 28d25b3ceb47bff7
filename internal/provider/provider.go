// Package provider isolates the local and remote execution environments
// behind one strategy: load the matrix, create a session, report a result.
package provider

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/tomyan/hinclude-e2e/internal/browser"
	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
)

// Result is a scenario verdict as reported to the grid.
type Result struct {
	Name   string
	Passed bool
}

// Provider is one execution environment.
type Provider interface {
	Mode() matrix.Mode
	// LoadMatrix returns the descriptors this environment runs, in order.
	LoadMatrix() ([]matrix.Descriptor, error)
	// NewSession starts a browser for d. The session is ready, and its grid
	// id known, when this returns.
	NewSession(ctx context.Context, d matrix.Descriptor) (browser.Session, error)
	// Report publishes a scenario verdict for s.
	Report(ctx context.Context, s browser.Session, r Result) error
}

// Options carries what the environments need beyond the config.
type Options struct {
	// MatrixFS holds the matrix files; nil means the embedded defaults.
	MatrixFS fs.FS
	// Out receives grid correlation lines; nil means os.Stdout.
	Out    io.Writer
	Logger *slog.Logger
}

// New selects the provider for cfg.Mode.
func New(cfg *config.Config, opts Options) Provider {
	if opts.MatrixFS == nil {
		opts.MatrixFS = matrix.Defaults()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if cfg.Mode == matrix.Local {
		return NewLocal(cfg, opts)
	}
	return NewRemote(cfg, opts)
}
