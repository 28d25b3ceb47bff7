package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tomyan/hinclude-e2e/internal/suite"
)

// TextValuer is implemented by results with a plain-text rendering.
type TextValuer interface {
	TextValue() string
}

// ScenarioOutput is one scenario line of a run report.
type ScenarioOutput struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// DescriptorOutput is one descriptor of a run report.
type DescriptorOutput struct {
	Descriptor json.RawMessage  `json:"descriptor"`
	SessionID  string           `json:"sessionId,omitempty"`
	SetupError string           `json:"setupError,omitempty"`
	Scenarios  []ScenarioOutput `json:"scenarios"`
}

// RunResult is the printed form of a suite.Report.
type RunResult struct {
	RunID       string             `json:"runId"`
	Mode        string             `json:"mode"`
	DurationMS  int64              `json:"durationMs"`
	Passed      int                `json:"passed"`
	Failed      int                `json:"failed"`
	Skipped     int                `json:"skipped"`
	SetupFailed int                `json:"setupFailed"`
	Descriptors []DescriptorOutput `json:"descriptors"`
}

func newRunResult(r *suite.Report) RunResult {
	counts := r.Counts()
	out := RunResult{
		RunID:       r.RunID,
		Mode:        string(r.Mode),
		DurationMS:  r.Duration.Milliseconds(),
		Passed:      counts[suite.Passed],
		Failed:      counts[suite.Failed],
		Skipped:     counts[suite.Skipped],
		Descriptors: make([]DescriptorOutput, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		d := DescriptorOutput{
			Descriptor: json.RawMessage(res.Descriptor.String()),
			SessionID:  res.SessionID,
			Scenarios:  make([]ScenarioOutput, 0, len(res.Scenarios)),
		}
		if res.SetupErr != nil {
			d.SetupError = res.SetupErr.Error()
			out.SetupFailed++
		}
		for _, s := range res.Scenarios {
			so := ScenarioOutput{Name: s.Name, Status: string(s.Status), DurationMS: s.Duration.Milliseconds()}
			if s.Err != nil {
				so.Error = s.Err.Error()
			}
			d.Scenarios = append(d.Scenarios, so)
		}
		out.Descriptors = append(out.Descriptors, d)
	}
	return out
}

func (r RunResult) TextValue() string {
	var b strings.Builder
	for _, d := range r.Descriptors {
		fmt.Fprintf(&b, "%s\n", d.Descriptor)
		if d.SetupError != "" {
			fmt.Fprintf(&b, "  SETUP FAILED  %s\n", d.SetupError)
			continue
		}
		for _, s := range d.Scenarios {
			switch s.Status {
			case string(suite.Passed):
				fmt.Fprintf(&b, "  ok    %s (%s)\n", s.Name, time.Duration(s.DurationMS)*time.Millisecond)
			case string(suite.Skipped):
				fmt.Fprintf(&b, "  skip  %s\n", s.Name)
			default:
				fmt.Fprintf(&b, "  FAIL  %s: %s\n", s.Name, s.Error)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d passing, %d failing, %d skipped", r.Passed, r.Failed, r.Skipped)
	if r.SetupFailed > 0 {
		fmt.Fprintf(&b, ", %d sessions failed to start", r.SetupFailed)
	}
	fmt.Fprintf(&b, " (run %s)", r.RunID)
	return b.String()
}

// MatrixResult lists the active matrix.
type MatrixResult struct {
	Mode        string        `json:"mode"`
	Descriptors []MatrixEntry `json:"descriptors"`
}

// MatrixEntry is one descriptor: the capabilities sent to the browser and
// whether the viewport scenarios run against it.
type MatrixEntry struct {
	Capabilities   json.RawMessage `json:"capabilities"`
	SupportsResize bool            `json:"supportsResize"`
}

func (r MatrixResult) TextValue() string {
	lines := make([]string, 0, len(r.Descriptors))
	for _, d := range r.Descriptors {
		line := string(d.Capabilities)
		if !d.SupportsResize {
			line += " (no resize)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func resolveFormat(cfg *Config, format string) string {
	if format != "auto" {
		return format
	}
	if cfg.IsTerminal != nil && cfg.IsTerminal() {
		return "text"
	}
	return "json"
}

func outputResult(cfg *Config, format string, v interface{}) error {
	switch resolveFormat(cfg, format) {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text":
		if tv, ok := v.(TextValuer); ok {
			_, err := fmt.Fprintln(cfg.Stdout, tv.TextValue())
			return err
		}
		// Fall back to JSON for complex types
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
