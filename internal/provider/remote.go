package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/tomyan/hinclude-e2e/internal/browser"
	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
	"github.com/tomyan/hinclude-e2e/internal/sauce"
)

// Remote runs every descriptor on the Sauce Labs grid and reports verdicts
// to its job API.
type Remote struct {
	matrixFS fs.FS
	grid     config.Grid
	jobs     *sauce.Client
	logger   *slog.Logger

	outMu sync.Mutex
	out   io.Writer
}

// NewRemote creates the remote provider.
func NewRemote(cfg *config.Config, opts Options) *Remote {
	return &Remote{
		matrixFS: opts.MatrixFS,
		grid:     cfg.Grid,
		jobs:     sauce.NewClient(cfg.Grid.APIURL, cfg.Grid.Username, cfg.Grid.AccessKey),
		logger:   opts.Logger,
		out:      opts.Out,
	}
}

func (r *Remote) Mode() matrix.Mode { return matrix.Remote }

func (r *Remote) LoadMatrix() ([]matrix.Descriptor, error) {
	return matrix.Load(r.matrixFS, matrix.Remote)
}

// NewSession creates a grid session for d and prints the correlation line
// CI plugins use to link the job to the build.
func (r *Remote) NewSession(ctx context.Context, d matrix.Descriptor) (browser.Session, error) {
	s, err := browser.NewWebDriverSession(ctx, r.grid.Endpoint(), sessionRequest(r.grid, d), true)
	if err != nil {
		return nil, fmt.Errorf("creating grid session for %s: %w", d.BrowserName(), err)
	}

	r.logger.Debug("grid session created", "session", s.ID(), "browser", d.BrowserName())

	r.outMu.Lock()
	fmt.Fprintf(r.out, "SauceOnDemandSessionID=%s job-name=%s\n", s.ID(), d.String())
	r.outMu.Unlock()

	return s, nil
}

// Report updates the grid job for s with the scenario verdict.
func (r *Remote) Report(ctx context.Context, s browser.Session, res Result) error {
	if s.ID() == "" {
		return errors.New("session has no grid id")
	}
	return r.jobs.UpdateJob(ctx, s.ID(), sauce.JobUpdate{Name: res.Name, Passed: res.Passed})
}
