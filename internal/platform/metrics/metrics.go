package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"montage-orchestrator/internal/jobs"
	"montage-orchestrator/internal/selfedit"
)

// Metrics holds Prometheus collectors for the montage orchestrator.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	rateLimitedTotal   prometheus.Counter
	jobsSubmittedTotal prometheus.Counter
	jobsFinishedTotal  *prometheus.CounterVec
	activeJobs         prometheus.Gauge
	creditsCommitted   prometheus.Counter
	loopStopsTotal     *prometheus.CounterVec
	finalScore         prometheus.Histogram
	expiredJobsRemoved prometheus.Counter
	requestDuration    *prometheus.HistogramVec
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montage_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montage_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montage_rate_limited_total",
			Help: "Job submissions rejected by the rate limiter",
		}),
		jobsSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montage_jobs_submitted_total",
			Help: "Total number of jobs handed to the orchestrator",
		}),
		jobsFinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "montage_jobs_finished_total",
			Help: "Jobs that reached a terminal status",
		}, []string{"status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "montage_active_jobs",
			Help: "Number of jobs that are queued or running",
		}),
		creditsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montage_credits_committed_total",
			Help: "Credits permanently consumed by completed jobs",
		}),
		loopStopsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "montage_selfedit_stops_total",
			Help: "Improvement loop runs by stop status",
		}, []string{"status"}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "montage_selfedit_best_total",
			Help:    "Best timeline total reached by the improvement loop",
			Buckets: prometheus.LinearBuckets(50, 5, 11),
		}),
		expiredJobsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montage_expired_jobs_removed_total",
			Help: "Job records removed by the retention janitor",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "montage_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.rateLimitedTotal,
		m.jobsSubmittedTotal,
		m.jobsFinishedTotal,
		m.activeJobs,
		m.creditsCommitted,
		m.loopStopsTotal,
		m.finalScore,
		m.expiredJobsRemoved,
		m.requestDuration,
	)
	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncRateLimited counts a rejected submission.
func (m *Metrics) IncRateLimited() {
	m.rateLimitedTotal.Inc()
}

// SetActiveJobs sets the active jobs gauge.
func (m *Metrics) SetActiveJobs(n int) {
	m.activeJobs.Set(float64(n))
}

// AddExpiredJobsRemoved counts records removed by a retention sweep.
func (m *Metrics) AddExpiredJobsRemoved(n int) {
	m.expiredJobsRemoved.Add(float64(n))
}

// JobSubmitted counts a job handed to the orchestrator.
func (m *Metrics) JobSubmitted() {
	m.jobsSubmittedTotal.Inc()
}

// JobFinished counts a job reaching status.
func (m *Metrics) JobFinished(status jobs.Status) {
	m.jobsFinishedTotal.WithLabelValues(string(status)).Inc()
}

// LoopFinished records how an improvement loop ended.
func (m *Metrics) LoopFinished(status selfedit.StopStatus, bestTotal int) {
	m.loopStopsTotal.WithLabelValues(string(status)).Inc()
	m.finalScore.Observe(float64(bestTotal))
}

// CreditsCommitted counts credits consumed by a commit.
func (m *Metrics) CreditsCommitted(amount int) {
	m.creditsCommitted.Add(float64(amount))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active jobs).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
