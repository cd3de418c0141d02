package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_cycles_total", Help: "Dispatch cycles by outcome."},
		[]string{"outcome"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "dispatch_cycle_duration_seconds", Help: "Dispatch cycle duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}},
	)
	Assignments = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_assignments_total", Help: "Tasks assigned to vehicles."},
	)
	Unassigned = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "dispatch_unassigned_tasks", Help: "Pending tasks left unassigned by the last cycle."},
	)
	// Tours counts built tours by quality (provider or estimated).
	Tours = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_tours_total", Help: "Tours built by quality."},
		[]string{"quality"},
	)
	SLARisks = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "dispatch_sla_risks", Help: "Non-completed tasks past the SLA threshold."},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Cycles)
		Registry.MustRegister(CycleDuration)
		Registry.MustRegister(Assignments)
		Registry.MustRegister(Unassigned)
		Registry.MustRegister(Tours)
		Registry.MustRegister(SLARisks)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveCycle records the outcome of one dispatch cycle.
func ObserveCycle(outcome string, dur time.Duration, assigned, unassigned, risks int) {
	Cycles.WithLabelValues(outcome).Inc()
	CycleDuration.Observe(dur.Seconds())
	if outcome != "ok" {
		return
	}
	Assignments.Add(float64(assigned))
	Unassigned.Set(float64(unassigned))
	SLARisks.Set(float64(risks))
}
