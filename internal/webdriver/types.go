package webdriver

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrNoSuchElement  = errors.New("no such element")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoSession      = errors.New("no active session")
)

// Error is a WebDriver error payload, from either the W3C
// {"value":{"error":...}} shape or the legacy numeric status shape.
type Error struct {
	HTTPStatus int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("webdriver error %q (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Code {
	case "no such element":
		return ErrNoSuchElement
	case "unknown command", "unknown method", "unsupported operation":
		return ErrUnknownCommand
	}
	return nil
}

// legacyStatus maps JSON wire protocol status codes to W3C error codes.
var legacyStatus = map[int]string{
	6:  "invalid session id",
	7:  "no such element",
	9:  "unknown command",
	10: "stale element reference",
	13: "unknown error",
	21: "timeout",
	33: "session not created",
}

// Capability is a set of browser capabilities.
type Capability map[string]interface{}

// Capabilities holds the W3C capability negotiation block.
type Capabilities struct {
	AlwaysMatch Capability   `json:"alwaysMatch"`
	FirstMatch  []Capability `json:"firstMatch,omitempty"`
}

// NewSessionRequest is the payload to start a new session. Desired carries
// the flat legacy capabilities for grids that still read them.
type NewSessionRequest struct {
	Capabilities Capabilities `json:"capabilities"`
	Desired      Capability   `json:"desiredCapabilities,omitempty"`
}

// LogEntry is one browser log record.
type LogEntry struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Element ID keys used by W3C and legacy drivers.
const (
	w3cElementKey    = "element-6066-11e4-a52e-4f735466cecf"
	legacyElementKey = "ELEMENT"
)
