package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomyan/hinclude-e2e/internal/webdriver"
)

const elementPollInterval = 100 * time.Millisecond

// WebDriverSession drives a browser through a WebDriver endpoint, local or
// on a remote grid.
type WebDriverSession struct {
	client *webdriver.Client
	id     string
	remote bool
}

// NewWebDriverSession creates a session at endpoint. The session id is known
// when this returns. Grid sessions report it through ID; local ones report
// an empty ID.
func NewWebDriverSession(ctx context.Context, endpoint string, req webdriver.NewSessionRequest, remote bool) (*WebDriverSession, error) {
	client, err := webdriver.NewClient(endpoint)
	if err != nil {
		return nil, err
	}

	id, err := client.NewSession(ctx, req)
	if err != nil {
		return nil, err
	}

	return &WebDriverSession{client: client, id: id, remote: remote}, nil
}

func (s *WebDriverSession) ID() string {
	if !s.remote {
		return ""
	}
	return s.id
}

func (s *WebDriverSession) Get(ctx context.Context, url string) error {
	return s.client.Navigate(ctx, url)
}

// WaitFor polls for the element, like selenium's until.elementLocated.
func (s *WebDriverSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := s.client.FindElement(ctx, selector)
		if err == nil {
			return nil
		}
		if !errors.Is(err, webdriver.ErrNoSuchElement) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrWaitTimeout, selector, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(elementPollInterval):
		}
	}
}

func (s *WebDriverSession) Text(ctx context.Context, selector string) (string, error) {
	id, err := s.find(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := s.client.ElementText(ctx, id)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *WebDriverSession) Click(ctx context.Context, selector string) error {
	id, err := s.find(ctx, selector)
	if err != nil {
		return err
	}
	return s.client.ClickElement(ctx, id)
}

func (s *WebDriverSession) SetWindowSize(ctx context.Context, width, height int) error {
	return s.client.SetWindowSize(ctx, width, height)
}

func (s *WebDriverSession) Logs(ctx context.Context) ([]LogEntry, error) {
	entries, err := s.client.Logs(ctx, "browser")
	if err != nil {
		return nil, err
	}

	logs := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, LogEntry{Level: e.Level, Message: e.Message})
	}
	return logs, nil
}

func (s *WebDriverSession) Quit(ctx context.Context) error {
	return s.client.Quit(ctx)
}

func (s *WebDriverSession) find(ctx context.Context, selector string) (string, error) {
	id, err := s.client.FindElement(ctx, selector)
	if errors.Is(err, webdriver.ErrNoSuchElement) {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return id, err
}
