package provider

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/tomyan/hinclude-e2e/internal/browser"
	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
	"github.com/tomyan/hinclude-e2e/internal/webdriver"
)

// Local runs chrome over CDP on this machine and any other browser through
// a local WebDriver endpoint.
type Local struct {
	matrixFS     fs.FS
	webDriverURL string
	chromeOpts   browser.ChromeOptions
	logger       *slog.Logger

	launchChrome func(ctx context.Context, opts browser.ChromeOptions) (browser.Session, error)
}

// NewLocal creates the local provider.
func NewLocal(cfg *config.Config, opts Options) *Local {
	return &Local{
		matrixFS:     opts.MatrixFS,
		webDriverURL: cfg.WebDriverURL,
		chromeOpts: browser.ChromeOptions{
			ChromePath: cfg.ChromePath,
			Headless:   cfg.Headless,
		},
		logger: opts.Logger,
		launchChrome: func(ctx context.Context, opts browser.ChromeOptions) (browser.Session, error) {
			return browser.NewChromeSession(ctx, opts)
		},
	}
}

func (l *Local) Mode() matrix.Mode { return matrix.Local }

func (l *Local) LoadMatrix() ([]matrix.Descriptor, error) {
	return matrix.Load(l.matrixFS, matrix.Local)
}

// NewSession asks only for the browser name: no credentials, no grid
// metadata.
func (l *Local) NewSession(ctx context.Context, d matrix.Descriptor) (browser.Session, error) {
	name := d.BrowserName()
	if name == "chrome" {
		l.logger.Debug("launching local chrome", "headless", l.chromeOpts.Headless)
		s, err := l.launchChrome(ctx, l.chromeOpts)
		if err != nil {
			return nil, fmt.Errorf("starting chrome: %w", err)
		}
		return s, nil
	}

	l.logger.Debug("requesting local webdriver session", "browser", name, "endpoint", l.webDriverURL)
	caps := webdriver.Capability{"browserName": name}
	s, err := browser.NewWebDriverSession(ctx, l.webDriverURL, webdriver.NewSessionRequest{
		Capabilities: webdriver.Capabilities{AlwaysMatch: caps},
		Desired:      caps,
	}, false)
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}
	return s, nil
}

// Report is a no-op locally.
func (l *Local) Report(context.Context, browser.Session, Result) error { return nil }
