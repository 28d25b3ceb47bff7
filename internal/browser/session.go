// Package browser defines the Session port the conformance suite drives and
// its CDP and WebDriver adapters.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrWaitTimeout     = errors.New("timeout waiting for element")
	ErrSessionClosed   = errors.New("browser session closed")
)

// Session is a live, remotely controlled browser. One Session serves one
// descriptor; its methods must not be called concurrently.
type Session interface {
	// ID is the grid-assigned session id, empty for local sessions.
	ID() string
	// Get navigates to url and returns once the page has loaded.
	Get(ctx context.Context, url string) error
	// WaitFor blocks until an element matches the CSS selector or timeout
	// elapses, returning ErrWaitTimeout in the latter case.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Text returns the rendered text of the first match, trimmed of
	// surrounding whitespace.
	Text(ctx context.Context, selector string) (string, error)
	Click(ctx context.Context, selector string) error
	SetWindowSize(ctx context.Context, width, height int) error
	// Logs returns browser console entries collected so far. Drivers without
	// log support return nil, nil.
	Logs(ctx context.Context) ([]LogEntry, error)
	// Quit ends the session and releases the browser.
	Quit(ctx context.Context) error
}

// LogEntry is a single browser console entry.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
