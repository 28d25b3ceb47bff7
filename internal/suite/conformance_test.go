package suite

import (
	"context"
	"os"
	"testing"

	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/provider"
)

// TestConformance runs the real matrix when HINCLUDE_E2E=1, with one subtest
// per descriptor and one per scenario. The fixture server must already be
// serving on HINCLUDE_ORIGIN.
func TestConformance(t *testing.T) {
	if os.Getenv("HINCLUDE_E2E") != "1" {
		t.Skip("set HINCLUDE_E2E=1 to run against real browsers")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	p := provider.New(cfg, provider.Options{})
	descriptors, err := p.LoadMatrix()
	if err != nil {
		t.Fatalf("loading matrix: %v", err)
	}

	r := &Runner{
		Provider:    p,
		Scenarios:   Scenarios(),
		Origin:      cfg.Origin,
		Timeout:     cfg.WaitTimeout,
		CollectLogs: cfg.LogBrowser,
	}

	for _, d := range descriptors {
		t.Run(d.String(), func(t *testing.T) {
			t.Parallel()

			res := r.RunDescriptor(context.Background(), d)
			if res.SetupErr != nil {
				t.Fatalf("session setup: %v", res.SetupErr)
			}
			for _, sr := range res.Scenarios {
				t.Run(sr.Name, func(t *testing.T) {
					switch sr.Status {
					case Skipped:
						t.Skip("resize unsupported")
					case Failed:
						t.Error(sr.Err)
					}
				})
			}
		})
	}
}
