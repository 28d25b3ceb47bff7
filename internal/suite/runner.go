package suite

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tomyan/hinclude-e2e/internal/browser"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
	"github.com/tomyan/hinclude-e2e/internal/provider"
)

// logBrowser is the only browser whose console logs are fetched at teardown.
const logBrowser = "chrome"

// reapTimeout bounds log collection and quit once the run context is gone.
const reapTimeout = 30 * time.Second

// Runner runs scenarios against descriptors through a Provider.
type Runner struct {
	Provider  provider.Provider
	Scenarios []Scenario
	Origin    string
	// Timeout bounds every element wait.
	Timeout time.Duration
	// CollectLogs fetches chrome console logs before quitting.
	CollectLogs bool
	// Parallel is the number of descriptors run at once; below 1 means 1.
	Parallel int
	// RunID tags logs and the report; empty means a new UUID.
	RunID   string
	Logger  *slog.Logger
	Metrics *Metrics
}

// Run runs every descriptor and returns results in descriptor order.
func (r *Runner) Run(ctx context.Context, descriptors []matrix.Descriptor) *Report {
	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &Report{
		RunID:   runID,
		Mode:    r.Provider.Mode(),
		Started: time.Now(),
		Results: make([]DescriptorResult, len(descriptors)),
	}

	limit := r.Parallel
	if limit < 1 {
		limit = 1
	}

	logger := r.logger().With("run", runID)
	logger.Info("starting run", "mode", report.Mode, "descriptors", len(descriptors), "scenarios", len(r.Scenarios), "parallel", limit)

	var g errgroup.Group
	g.SetLimit(limit)
	for i, d := range descriptors {
		g.Go(func() error {
			report.Results[i] = r.runDescriptor(ctx, d, logger)
			return nil
		})
	}
	g.Wait()

	report.Duration = time.Since(report.Started)
	counts := report.Counts()
	logger.Info("run finished",
		"passed", counts[Passed],
		"failed", counts[Failed],
		"skipped", counts[Skipped],
		"duration", report.Duration.Round(time.Millisecond))
	return report
}

// RunDescriptor runs all scenarios against one new session for d.
func (r *Runner) RunDescriptor(ctx context.Context, d matrix.Descriptor) DescriptorResult {
	return r.runDescriptor(ctx, d, r.logger())
}

func (r *Runner) runDescriptor(ctx context.Context, d matrix.Descriptor, logger *slog.Logger) DescriptorResult {
	logger = logger.With("browser", d.BrowserName(), "platform", d.Platform(), "version", d.Version())
	result := DescriptorResult{Descriptor: d}

	session, err := r.Provider.NewSession(ctx, d)
	if err != nil {
		logger.Error("session setup failed", "error", err)
		result.SetupErr = err
		return result
	}
	r.Metrics.sessionCreated()
	result.SessionID = session.ID()
	if result.SessionID != "" {
		logger = logger.With("session", result.SessionID)
	}

	defer r.reap(ctx, d, session, &result, logger)

	page := &Page{Session: session, Origin: r.Origin, Timeout: r.Timeout}
	for _, sc := range r.Scenarios {
		if sc.ResizeOnly && !d.SupportsResize() {
			logger.Debug("scenario skipped", "scenario", sc.Name, "reason", "resize unsupported")
			result.Scenarios = append(result.Scenarios, ScenarioResult{Name: sc.Name, Status: Skipped})
			r.Metrics.scenario(Skipped)
			continue
		}

		sr := runScenario(ctx, page, sc)
		result.Scenarios = append(result.Scenarios, sr)
		r.Metrics.scenario(sr.Status)
		if sr.Err != nil {
			logger.Warn("scenario failed", "scenario", sc.Name, "error", sr.Err)
		} else {
			logger.Debug("scenario passed", "scenario", sc.Name, "duration", sr.Duration)
		}

		res := provider.Result{Name: sc.Name, Passed: sr.Status == Passed}
		if err := r.Provider.Report(ctx, session, res); err != nil {
			logger.Warn("reporting result failed", "scenario", sc.Name, "error", err)
			r.Metrics.reportFailed()
		}
	}

	return result
}

func runScenario(ctx context.Context, page *Page, sc Scenario) ScenarioResult {
	start := time.Now()
	err := sc.Run(ctx, page)
	sr := ScenarioResult{Name: sc.Name, Status: Passed, Duration: time.Since(start)}
	if err != nil {
		sr.Status = Failed
		sr.Err = err
	}
	return sr
}

// reap collects console logs when enabled for chrome, then always quits.
func (r *Runner) reap(ctx context.Context, d matrix.Descriptor, s browser.Session, result *DescriptorResult, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reapTimeout)
	defer cancel()

	if r.CollectLogs && d.BrowserName() == logBrowser {
		logs, err := s.Logs(ctx)
		if err != nil {
			logger.Warn("collecting browser logs failed", "error", err)
		}
		for _, entry := range logs {
			logger.Info("browser console", "level", entry.Level, "message", entry.Message)
		}
		result.Logs = logs
	}

	if err := s.Quit(ctx); err != nil {
		logger.Warn("quitting session failed", "error", err)
	}
	r.Metrics.sessionDestroyed()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
