package suite

import (
	"time"

	"github.com/tomyan/hinclude-e2e/internal/browser"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
)

// Status is a scenario outcome.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// ScenarioResult is the verdict of one scenario on one descriptor.
type ScenarioResult struct {
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
}

// DescriptorResult collects everything that happened for one descriptor.
type DescriptorResult struct {
	Descriptor matrix.Descriptor
	SessionID  string
	// SetupErr is set when no session could be created; no scenario ran.
	SetupErr  error
	Scenarios []ScenarioResult
	Logs      []browser.LogEntry
}

// Failed reports whether setup or any scenario failed.
func (r DescriptorResult) Failed() bool {
	if r.SetupErr != nil {
		return true
	}
	for _, s := range r.Scenarios {
		if s.Status == Failed {
			return true
		}
	}
	return false
}

// Report is the outcome of a whole run.
type Report struct {
	RunID    string
	Mode     matrix.Mode
	Started  time.Time
	Duration time.Duration
	Results  []DescriptorResult
}

// Counts tallies scenario outcomes across descriptors.
func (r *Report) Counts() map[Status]int {
	counts := map[Status]int{Passed: 0, Failed: 0, Skipped: 0}
	for _, d := range r.Results {
		for _, s := range d.Scenarios {
			counts[s.Status]++
		}
	}
	return counts
}

// Failed reports whether any descriptor failed.
func (r *Report) Failed() bool {
	for _, d := range r.Results {
		if d.Failed() {
			return true
		}
	}
	return false
}
