package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomyan/hinclude-e2e/internal/chrome"
	"github.com/tomyan/hinclude-e2e/internal/chrome/launcher"
)

// ChromeOptions configures a locally launched Chrome.
type ChromeOptions struct {
	ChromePath string
	Headless   bool
}

// ChromeSession drives a local Chrome page over the DevTools Protocol.
type ChromeSession struct {
	client   *chrome.Client
	targetID string
	release  func() error

	mu   sync.Mutex
	logs []LogEntry

	stopConsole func()
	quitOnce    sync.Once
	quitErr     error
}

// NewChromeSession launches Chrome and attaches to its first page.
func NewChromeSession(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	inst, err := launcher.Launch(launcher.LaunchOptions{
		ChromePath: opts.ChromePath,
		Headless:   opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	client, err := chrome.Connect(ctx, "localhost", inst.Port)
	if err != nil {
		inst.Stop()
		return nil, err
	}

	s, err := AttachChromeSession(ctx, client, inst.Stop)
	if err != nil {
		client.Close()
		inst.Stop()
		return nil, err
	}
	return s, nil
}

// AttachChromeSession wraps an already connected client. release, if not
// nil, runs after the client is closed on Quit.
func AttachChromeSession(ctx context.Context, client *chrome.Client, release func() error) (*ChromeSession, error) {
	pages, err := client.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("no pages available")
	}

	s := &ChromeSession{
		client:   client,
		targetID: pages[0].ID,
		release:  release,
	}

	msgs, stop, err := client.CaptureConsole(ctx, s.targetID)
	if err != nil {
		return nil, fmt.Errorf("capturing console: %w", err)
	}
	s.stopConsole = stop
	go func() {
		for msg := range msgs {
			s.mu.Lock()
			s.logs = append(s.logs, LogEntry{Level: msg.Type, Message: msg.Text})
			s.mu.Unlock()
		}
	}()

	return s, nil
}

// ID is empty: local sessions have no grid identity.
func (s *ChromeSession) ID() string { return "" }

func (s *ChromeSession) Get(ctx context.Context, url string) error {
	_, err := s.client.NavigateAndWait(ctx, s.targetID, url)
	return s.mapErr(err)
}

func (s *ChromeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return s.mapErr(s.client.WaitFor(ctx, s.targetID, selector, timeout))
}

func (s *ChromeSession) Text(ctx context.Context, selector string) (string, error) {
	text, err := s.client.GetText(ctx, s.targetID, selector)
	if err != nil {
		return "", s.mapErr(err)
	}
	return strings.TrimSpace(text), nil
}

func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	return s.mapErr(s.client.Click(ctx, s.targetID, selector))
}

func (s *ChromeSession) SetWindowSize(ctx context.Context, width, height int) error {
	return s.mapErr(s.client.SetViewport(ctx, s.targetID, width, height))
}

// Logs drains the console entries captured since the last call.
func (s *ChromeSession) Logs(ctx context.Context) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := s.logs
	s.logs = nil
	return logs, nil
}

// Quit stops console capture, closes the connection and releases the
// browser. Later calls return the first result.
func (s *ChromeSession) Quit(ctx context.Context) error {
	s.quitOnce.Do(func() {
		if s.stopConsole != nil {
			s.stopConsole()
		}
		err := s.client.Close()
		if s.release != nil {
			err = errors.Join(err, s.release())
		}
		s.quitErr = err
	})
	return s.quitErr
}

func (s *ChromeSession) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chrome.ErrWaitTimeout):
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	case errors.Is(err, chrome.ErrElementNotFound):
		return fmt.Errorf("%w: %v", ErrElementNotFound, err)
	case errors.Is(err, chrome.ErrConnectionClosed):
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return err
}
