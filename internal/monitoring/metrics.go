package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sandbox Prometheus collectors.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	RunsActive    prometheus.Gauge
	PoolAvailable *prometheus.GaugeVec
}

// NewMetrics creates the sandbox metric set registered against reg. A nil
// reg gets a private registry so embedded uses never collide with the
// process default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modcrab_sandbox_runs_total",
				Help: "Total sandbox runs by profile and outcome",
			},
			[]string{"profile", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modcrab_sandbox_run_duration_seconds",
				Help:    "Sandbox run duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"profile"},
		),
		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "modcrab_sandbox_runs_active",
				Help: "Sandbox runs currently executing",
			},
		),
		PoolAvailable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modcrab_sandbox_pool_available",
				Help: "Free environments per pooled profile",
			},
			[]string{"profile"},
		),
	}
}

// RunStarted marks one run as in flight.
func (m *Metrics) RunStarted() {
	m.RunsActive.Inc()
}

// RunFinished marks one run as done.
func (m *Metrics) RunFinished() {
	m.RunsActive.Dec()
}

// RecordRun records the outcome and duration of a completed invocation.
func (m *Metrics) RecordRun(profile, outcome string, d time.Duration) {
	m.RunsTotal.WithLabelValues(profile, outcome).Inc()
	m.RunDuration.WithLabelValues(profile).Observe(d.Seconds())
}

// SetPoolAvailable reports current pool occupancy for a profile.
func (m *Metrics) SetPoolAvailable(profile string, n int) {
	m.PoolAvailable.WithLabelValues(profile).Set(float64(n))
}
