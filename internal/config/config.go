// Package config reads the suite configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/tomyan/hinclude-e2e/internal/matrix"
)

// Defaults
const (
	DefaultOrigin       = "http://localhost:8080"
	DefaultWaitTimeout  = 6 * time.Second
	DefaultGridHost     = "ondemand.saucelabs.com"
	DefaultGridPort     = 80
	DefaultWebDriverURL = "http://localhost:4444/wd/hub"

	// Sauce Connect listens here when a tunnel is started by hand.
	tunnelRelayHost = "localhost"
	tunnelRelayPort = 4445
)

// Grid holds everything needed to reach the remote grid and tag its jobs.
type Grid struct {
	Username  string
	AccessKey string
	Host      string
	Port      int
	APIURL    string // job REST API base; empty means the client default
	TunnelID  string
	Build     string
}

// Endpoint is the WebDriver hub URL with credentials embedded.
func (g Grid) Endpoint() string {
	u := url.URL{
		Scheme: "http",
		User:   url.UserPassword(g.Username, g.AccessKey),
		Host:   fmt.Sprintf("%s:%d", g.Host, g.Port),
		Path:   "/wd/hub",
	}
	return u.String()
}

// Config is the resolved suite configuration.
type Config struct {
	Mode         matrix.Mode
	Grid         Grid
	Origin       string        // fixture server origin
	WaitTimeout  time.Duration // bound on every element wait
	LogBrowser   bool          // dump chrome console logs at teardown
	WebDriverURL string        // local WebDriver for non-chrome local runs
	ChromePath   string
	Headless     bool
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv builds and validates a Config from lookup.
func FromEnv(lookup LookupFunc) (*Config, error) {
	get := func(key, defaultValue string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return defaultValue
	}

	cfg := &Config{
		Mode:         ModeFromEnv(lookup),
		Origin:       get("HINCLUDE_ORIGIN", DefaultOrigin),
		WebDriverURL: get("HINCLUDE_WEBDRIVER_URL", DefaultWebDriverURL),
		ChromePath:   get("CHROME_PATH", ""),
		Grid: Grid{
			Username:  get("SAUCE_USERNAME", ""),
			AccessKey: get("SAUCE_ACCESS_KEY", ""),
			Host:      DefaultGridHost,
			Port:      DefaultGridPort,
			APIURL:    get("SAUCE_API_URL", ""),
		},
	}
	var err error
	if cfg.WaitTimeout, err = parseDuration(get("HINCLUDE_WAIT_TIMEOUT", ""), DefaultWaitTimeout); err != nil {
		return nil, fmt.Errorf("HINCLUDE_WAIT_TIMEOUT: %w", err)
	}
	if cfg.LogBrowser, err = parseBool(get("HINCLUDE_LOG_BROWSER", ""), true); err != nil {
		return nil, fmt.Errorf("HINCLUDE_LOG_BROWSER: %w", err)
	}
	if cfg.Headless, err = parseBool(get("HINCLUDE_HEADLESS", ""), true); err != nil {
		return nil, fmt.Errorf("HINCLUDE_HEADLESS: %w", err)
	}

	// CI provider first, then a hand-started tunnel
	switch {
	case get("TRAVIS", "") == "true":
		cfg.Grid.TunnelID = get("TRAVIS_JOB_NUMBER", "")
		cfg.Grid.Build = get("TRAVIS_BUILD_NUMBER", "")
	case get("SAUCE_TUNNEL_ID", "") != "":
		cfg.Grid.TunnelID = get("SAUCE_TUNNEL_ID", "")
		cfg.Grid.Build = "0"
		cfg.Grid.Host = tunnelRelayHost
		cfg.Grid.Port = tunnelRelayPort
	}

	cfg.Grid.Host = get("SAUCE_HOST", cfg.Grid.Host)
	if v := get("SAUCE_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SAUCE_PORT: %w", err)
		}
		cfg.Grid.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ModeFromEnv returns Local when IS_LOCAL is "true" and Remote otherwise.
func ModeFromEnv(lookup LookupFunc) matrix.Mode {
	if v, ok := lookup("IS_LOCAL"); ok && v == "true" {
		return matrix.Local
	}
	return matrix.Remote
}

// Validate checks the config for the selected mode.
func (c *Config) Validate() error {
	if c.WaitTimeout <= 0 {
		return errors.New("wait timeout must be > 0")
	}
	if _, err := url.Parse(c.Origin); err != nil || c.Origin == "" {
		return fmt.Errorf("invalid fixture origin %q", c.Origin)
	}
	if c.Mode == matrix.Remote {
		if c.Grid.Username == "" || c.Grid.AccessKey == "" {
			return errors.New("remote mode needs SAUCE_USERNAME and SAUCE_ACCESS_KEY")
		}
		if c.Grid.Port <= 0 || c.Grid.Port > 65535 {
			return fmt.Errorf("invalid grid port %d", c.Grid.Port)
		}
	}
	return nil
}

func parseDuration(value string, defaultValue time.Duration) (time.Duration, error) {
	if value == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(value)
}

func parseBool(value string, defaultValue bool) (bool, error) {
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(value)
}
