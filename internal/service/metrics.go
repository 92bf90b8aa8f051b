package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts import outcomes. The registry is shared with the HTTP
// middleware so `giji serve` exposes both request and import counters on
// the same /metrics endpoint.
type Metrics struct {
	IssuesImported *prometheus.CounterVec
	IssuesSkipped  *prometheus.CounterVec
	ImportRuns     *prometheus.CounterVec
}

// NewMetrics creates and registers the import counters.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		IssuesImported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "giji_issues_imported_total",
				Help: "Issues created in Jira, by profile and repository.",
			},
			[]string{"profile", "repo"},
		),
		IssuesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "giji_issues_skipped_total",
				Help: "Issues skipped during import, by profile and reason.",
			},
			[]string{"profile", "reason"},
		),
		ImportRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "giji_import_runs_total",
				Help: "Completed import runs, by profile and status.",
			},
			[]string{"profile", "status"},
		),
	}

	for _, c := range []prometheus.Collector{m.IssuesImported, m.IssuesSkipped, m.ImportRuns} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) issueImported(profile, repo string) {
	if m == nil {
		return
	}
	m.IssuesImported.WithLabelValues(profile, repo).Inc()
}

func (m *Metrics) issueSkipped(profile, reason string) {
	if m == nil {
		return
	}
	m.IssuesSkipped.WithLabelValues(profile, reason).Inc()
}

func (m *Metrics) runFinished(profile, status string) {
	if m == nil {
		return
	}
	m.ImportRuns.WithLabelValues(profile, status).Inc()
}
