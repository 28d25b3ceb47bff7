package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	consoleEvent   = "Runtime.consoleAPICalled"
	exceptionEvent = "Runtime.exceptionThrown"
)

// CaptureConsole starts capturing console messages and uncaught exceptions
// from a page. Exceptions arrive with Type "exception".
// The stop function MUST be called when done to release resources.
// The channel is closed when stop is called or when the client is closed.
func (c *Client) CaptureConsole(ctx context.Context, targetID string) (<-chan ConsoleMessage, func(), error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := c.CallSession(ctx, sessionID, "Runtime.enable", nil); err != nil {
		return nil, nil, fmt.Errorf("enabling Runtime domain: %w", err)
	}

	consoleCh := c.subscribeEvent(sessionID, consoleEvent)
	exceptionCh := c.subscribeEvent(sessionID, exceptionEvent)
	output := make(chan ConsoleMessage, 100)
	done := make(chan struct{})
	var stopOnce sync.Once

	stop := func() {
		stopOnce.Do(func() {
			close(done)
			c.unsubscribeEvent(sessionID, consoleEvent, consoleCh)
			c.unsubscribeEvent(sessionID, exceptionEvent, exceptionCh)
		})
	}

	go func() {
		defer close(output)
		for {
			var (
				msg ConsoleMessage
				ok  bool
			)
			select {
			case params, open := <-consoleCh:
				if !open {
					return
				}
				msg, ok = parseConsoleEvent(params)
			case params, open := <-exceptionCh:
				if !open {
					return
				}
				msg, ok = parseExceptionEvent(params)
			case <-done:
				return
			case <-c.closeCh:
				return
			}
			if !ok {
				continue
			}
			select {
			case output <- msg:
			default:
				// Drop if channel is full
			}
		}
	}()

	return output, stop, nil
}

func parseConsoleEvent(params json.RawMessage) (ConsoleMessage, bool) {
	var event struct {
		Type string `json:"type"`
		Args []struct {
			Type        string      `json:"type"`
			Value       interface{} `json:"value"`
			Description string      `json:"description"`
		} `json:"args"`
	}
	if err := json.Unmarshal(params, &event); err != nil {
		return ConsoleMessage{}, false
	}

	parts := make([]string, 0, len(event.Args))
	for _, arg := range event.Args {
		switch {
		case arg.Value != nil:
			parts = append(parts, fmt.Sprintf("%v", arg.Value))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		}
	}
	return ConsoleMessage{Type: event.Type, Text: strings.Join(parts, " ")}, true
}

func parseExceptionEvent(params json.RawMessage) (ConsoleMessage, bool) {
	var event struct {
		ExceptionDetails struct {
			Text      string `json:"text"`
			URL       string `json:"url"`
			Line      int    `json:"lineNumber"`
			Exception struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(params, &event); err != nil {
		return ConsoleMessage{}, false
	}

	d := event.ExceptionDetails
	text := d.Text
	if d.Exception.Description != "" {
		text = d.Exception.Description
	}
	if d.URL != "" {
		text = fmt.Sprintf("%s (%s:%d)", text, d.URL, d.Line+1)
	}
	return ConsoleMessage{Type: "exception", Text: text}, true
}
