// Package suite holds the h-include conformance scenarios and the runner
// that drives them against every browser in the matrix.
package suite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomyan/hinclude-e2e/internal/browser"
)

// Scenario is one independent check against a fixture page.
type Scenario struct {
	Name    string
	Fixture string
	// ResizeOnly scenarios need programmatic window resizing and are skipped
	// for descriptors that do not support it.
	ResizeOnly bool
	Run        func(ctx context.Context, p *Page) error
}

// Page drives one session against the fixture origin.
type Page struct {
	Session browser.Session
	Origin  string
	Timeout time.Duration
}

// AssertionError is a text mismatch.
type AssertionError struct {
	Selector string
	Want     string
	Got      string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %q, got %q", e.Selector, e.Want, e.Got)
}

// FixtureURL returns the URL of a fixture directory.
func FixtureURL(origin, fixture string) string {
	return strings.TrimRight(origin, "/") + "/static/" + fixture + "/"
}

// Open navigates to fixture.
func (p *Page) Open(ctx context.Context, fixture string) error {
	return p.Session.Get(ctx, FixtureURL(p.Origin, fixture))
}

// WaitFor waits for selector within the page timeout.
func (p *Page) WaitFor(ctx context.Context, selector string) error {
	return p.Session.WaitFor(ctx, selector, p.Timeout)
}

// ExpectText waits for selector and compares its trimmed text with want.
func (p *Page) ExpectText(ctx context.Context, selector, want string) error {
	if err := p.WaitFor(ctx, selector); err != nil {
		return err
	}
	got, err := p.Session.Text(ctx, selector)
	if err != nil {
		return err
	}
	if got = strings.TrimSpace(got); got != want {
		return &AssertionError{Selector: selector, Want: want, Got: got}
	}
	return nil
}

func expectAll(fixture string, checks ...[2]string) func(context.Context, *Page) error {
	return func(ctx context.Context, p *Page) error {
		if err := p.Open(ctx, fixture); err != nil {
			return err
		}
		for _, c := range checks {
			if err := p.ExpectText(ctx, c[0], c[1]); err != nil {
				return err
			}
		}
		return nil
	}
}

func atViewport(width, height int, want string) func(context.Context, *Page) error {
	return func(ctx context.Context, p *Page) error {
		if err := p.Session.SetWindowSize(ctx, width, height); err != nil {
			return fmt.Errorf("resizing to %dx%d: %w", width, height, err)
		}
		if err := p.Open(ctx, "media"); err != nil {
			return err
		}
		return p.ExpectText(ctx, "#a", want)
	}
}

func navigate(ctx context.Context, p *Page) error {
	if err := p.Open(ctx, "navigate-extension"); err != nil {
		return err
	}
	for _, step := range []string{"#a", "#b"} {
		if err := p.WaitFor(ctx, step); err != nil {
			return err
		}
		if err := p.Session.Click(ctx, step+" .link"); err != nil {
			return fmt.Errorf("following %s link: %w", step, err)
		}
	}
	return p.ExpectText(ctx, "#c", "This is the last box. Goodbye.")
}

var basicChecks = [][2]string{
	{"#included-1", "this text is included"},
	{"#included-2", "this text overwrote what was just there"},
}

// Scenarios returns the conformance scenarios in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "includes basic case", Fixture: "basic", Run: expectAll("basic", basicChecks...)},
		{Name: "includes basic async case", Fixture: "basic-async", Run: expectAll("basic-async", basicChecks...)},
		{Name: "includes lazy", Fixture: "lazy-extension", Run: expectAll("lazy-extension", [2]string{"#included-3", "this text is included 3"})},
		{Name: "includes fragment with extraction", Fixture: "fragment-extraction", Run: expectAll("fragment-extraction", [2]string{"#a", "Paragraph in fragment"})},
		{Name: "does not modify the page if no includes", Fixture: "none", Run: expectAll("none", [2]string{"#a", "1st para"})},
		{Name: "does not allow recursion", Fixture: "recursion-not-allowed", Run: expectAll("recursion-not-allowed", [2]string{"#a", "1"})},
		{Name: "navigates", Fixture: "navigate-extension", Run: navigate},
		{Name: "loads large fragment for large viewport", Fixture: "media", ResizeOnly: true, Run: atViewport(800, 800, "Large viewport")},
		{Name: "loads small fragment for small viewport", Fixture: "media", ResizeOnly: true, Run: atViewport(480, 800, "Small viewport")},
	}
}

// Select returns the scenarios whose names contain any of the filters. No
// filters selects everything.
func Select(scenarios []Scenario, filters ...string) []Scenario {
	if len(filters) == 0 {
		return scenarios
	}
	var out []Scenario
	for _, s := range scenarios {
		for _, f := range filters {
			if strings.Contains(s.Name, f) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
