package suite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomyan/hinclude-e2e/internal/browser"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
	"github.com/tomyan/hinclude-e2e/internal/provider"
)

// page is the resolved DOM of a fixture: selector -> text.
type page map[string]string

// fixtureSite answers like the h-include fixtures once includes resolve.
func fixtureSite(width int) map[string]page {
	media := "Small viewport"
	if width > 600 {
		media = "Large viewport"
	}
	basic := page{
		"#included-1": "this text is included",
		"#included-2": "this text overwrote what was just there",
	}
	return map[string]page{
		"basic":                 basic,
		"basic-async":           basic,
		"lazy-extension":        {"#included-3": "this text is included 3"},
		"fragment-extraction":   {"#a": "Paragraph in fragment"},
		"none":                  {"#a": "1st para"},
		"recursion-not-allowed": {"#a": "1"},
		"navigate-extension":    {"#a": "first box", "#a .link": "next"},
		"media":                 {"#a": media},
	}
}

// navigation maps a clicked link to the page it leads to.
var navigation = map[string]page{
	"#a .link": {"#b": "second box", "#b .link": "next"},
	"#b .link": {"#c": "This is the last box. Goodbye."},
}

type fakeSession struct {
	mu      sync.Mutex
	id      string
	origin  string
	width   int
	current page
	// overrides replace text on every page.
	overrides map[string]string
	calls     []string
	logs      []browser.LogEntry
	logsErr   error
	quits     int
	noResize  bool
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, origin: "http://fixtures.test", width: 1024}
}

func (s *fakeSession) record(format string, args ...interface{}) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Get(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("get %s", url)

	fixture := strings.Trim(strings.TrimPrefix(url, s.origin+"/static/"), "/")
	p, ok := fixtureSite(s.width)[fixture]
	if !ok {
		s.current = page{}
		return nil
	}
	s.current = page{}
	for k, v := range p {
		s.current[k] = v
	}
	return nil
}

func (s *fakeSession) lookup(selector string) (string, bool) {
	if v, ok := s.overrides[selector]; ok {
		return v, v != ""
	}
	v, ok := s.current[selector]
	return v, ok
}

func (s *fakeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("wait %s", selector)
	if _, ok := s.lookup(selector); !ok {
		return fmt.Errorf("%w: %s", browser.ErrWaitTimeout, selector)
	}
	return nil
}

func (s *fakeSession) Text(ctx context.Context, selector string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("text %s", selector)
	v, ok := s.lookup(selector)
	if !ok {
		return "", fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return v, nil
}

func (s *fakeSession) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("click %s", selector)
	if _, ok := s.current[selector]; !ok {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	s.current = navigation[selector]
	return nil
}

func (s *fakeSession) SetWindowSize(ctx context.Context, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("resize %dx%d", width, height)
	if s.noResize {
		return errors.New("unsupported operation")
	}
	s.width = width
	return nil
}

func (s *fakeSession) Logs(ctx context.Context) ([]browser.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("logs")
	return s.logs, s.logsErr
}

func (s *fakeSession) Quit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("quit")
	s.quits++
	return nil
}

func (s *fakeSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeReport struct {
	SessionID string
	provider.Result
}

// fakeProvider hands out fakeSessions, one per descriptor.
type fakeProvider struct {
	mu        sync.Mutex
	mode      matrix.Mode
	sessions  map[string]*fakeSession // by browser name
	setupErr  map[string]error
	reportErr error
	reports   []fakeReport
	configure func(browserName string, s *fakeSession)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		mode:     matrix.Remote,
		sessions: map[string]*fakeSession{},
		setupErr: map[string]error{},
	}
}

func (p *fakeProvider) Mode() matrix.Mode { return p.mode }

func (p *fakeProvider) LoadMatrix() ([]matrix.Descriptor, error) {
	return nil, errors.New("not used")
}

func (p *fakeProvider) NewSession(ctx context.Context, d matrix.Descriptor) (browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := d.BrowserName()
	if err := p.setupErr[name]; err != nil {
		return nil, err
	}
	s := newFakeSession("session-" + name)
	if p.configure != nil {
		p.configure(name, s)
	}
	p.sessions[name] = s
	return s, nil
}

func (p *fakeProvider) Report(ctx context.Context, s browser.Session, r provider.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, fakeReport{SessionID: s.ID(), Result: r})
	return p.reportErr
}

func (p *fakeProvider) session(name string) *fakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[name]
}

func (p *fakeProvider) reportsFor(sessionID string) []provider.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []provider.Result
	for _, r := range p.reports {
		if r.SessionID == sessionID {
			out = append(out, r.Result)
		}
	}
	return out
}
