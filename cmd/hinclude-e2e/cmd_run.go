package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/fixtures"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
	"github.com/tomyan/hinclude-e2e/internal/provider"
	"github.com/tomyan/hinclude-e2e/internal/suite"
)

type runOptions struct {
	matrixDir   string
	parallel    int
	metricsAddr string
	only        []string
	scenarios   []string
}

func newRunCommand(cfg *Config, root *RootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance suite against the browser matrix",
		Long: `Run every scenario against every browser in the matrix.

Configuration comes from the environment (IS_LOCAL, SAUCE_USERNAME,
SAUCE_ACCESS_KEY, HINCLUDE_ORIGIN, ...). Exits 1 when interface{} scenario or session
setup fails and 2 when the run cannot start.

Example:
  IS_LOCAL=true hinclude-e2e run --only chrome
  hinclude-e2e run --parallel 4 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, cfg, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.matrixDir, "matrix-dir", "", "directory holding browsers-{local,remote}.json (default: built in)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "descriptors to run at once")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "run only these browser names")
	cmd.Flags().StringSliceVar(&opts.scenarios, "scenario", nil, "run only scenarios whose name contains one of these")
	return cmd
}

func runSuite(cmd *cobra.Command, cfg *Config, root *RootOptions, opts *runOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	logger := root.logger

	if opts.parallel < 1 {
		return setupError(fmt.Sprintf("--parallel must be at least 1, got %d", opts.parallel), nil)
	}

	conf, err := config.FromEnv(cfg.Env)
	if err != nil {
		return setupError("loading config", err)
	}

	p := provider.New(conf, provider.Options{
		MatrixFS: matrixFS(opts.matrixDir),
		Out:      cfg.Stdout,
		Logger:   logger,
	})
	descriptors, err := p.LoadMatrix()
	if err != nil {
		return setupError("loading matrix", err)
	}
	if descriptors = filterBrowsers(descriptors, opts.only); len(descriptors) == 0 {
		return setupError(fmt.Sprintf("no descriptors match --only %v", opts.only), nil)
	}
	scenarios := suite.Select(suite.Scenarios(), opts.scenarios...)
	if len(scenarios) == 0 {
		return setupError(fmt.Sprintf("no scenarios match --scenario %v", opts.scenarios), nil)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if opts.metricsAddr != "" {
		go func() {
			if err := fixtures.ListenAndServe(ctx, opts.metricsAddr, metricsHandler(reg)); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	runner := &suite.Runner{
		Provider:    p,
		Scenarios:   scenarios,
		Origin:      conf.Origin,
		Timeout:     conf.WaitTimeout,
		CollectLogs: conf.LogBrowser,
		Parallel:    opts.parallel,
		Logger:      logger,
		Metrics:     suite.NewMetrics(reg),
	}
	report := runner.Run(ctx, descriptors)

	if err := outputResult(cfg, root.Format, newRunResult(report)); err != nil {
		return setupError("writing report", err)
	}
	if report.Failed() {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

func filterBrowsers(descriptors []matrix.Descriptor, only []string) []matrix.Descriptor {
	if len(only) == 0 {
		return descriptors
	}
	var out []matrix.Descriptor
	for _, d := range descriptors {
		if slices.Contains(only, d.BrowserName()) {
			out = append(out, d)
		}
	}
	return out
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return r
}
