package suite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts sessions, scenario outcomes and report failures. A nil
// *Metrics records nothing.
type Metrics struct {
	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	scenarios         *prometheus.CounterVec
	reportsFailed     prometheus.Counter
}

// NewMetrics registers the suite counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hinclude",
			Name:      "sessions_created_total",
			Help:      "Browser sessions created.",
		}),
		sessionsDestroyed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hinclude",
			Name:      "sessions_destroyed_total",
			Help:      "Browser sessions quit by the reaper.",
		}),
		scenarios: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hinclude",
			Name:      "scenarios_total",
			Help:      "Scenario outcomes by result.",
		}, []string{"result"}),
		reportsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hinclude",
			Name:      "reports_failed_total",
			Help:      "Grid job updates that failed.",
		}),
	}
}

func (m *Metrics) sessionCreated() {
	if m != nil {
		m.sessionsCreated.Inc()
	}
}

func (m *Metrics) sessionDestroyed() {
	if m != nil {
		m.sessionsDestroyed.Inc()
	}
}

func (m *Metrics) scenario(s Status) {
	if m != nil {
		m.scenarios.WithLabelValues(string(s)).Inc()
	}
}

func (m *Metrics) reportFailed() {
	if m != nil {
		m.reportsFailed.Inc()
	}
}
