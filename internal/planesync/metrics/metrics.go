// Package metrics exposes the sync bookkeeping as Prometheus collectors.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planesync"

// Recorder holds the collectors updated after every sync attempt
type Recorder struct {
	attempts      *prom.CounterVec
	duration      prom.Histogram
	errorCount    prom.Gauge
	lastSuccess   prom.Gauge
	notifiedCount prom.Gauge
}

// NewRecorder constructs the collectors and registers them on reg.
// A nil reg gets a private registry.
func NewRecorder(reg prom.Registerer) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		attempts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sync_attempts_total",
			Help:      "Sync attempts by outcome",
		}, []string{"outcome"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync attempts that reached the Plane API",
			Buckets:   prom.DefBuckets,
		}),
		errorCount: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "error_count",
			Help:      "Consecutive failed sync attempts, capped at the retry limit",
		}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful notification",
		}),
		notifiedCount: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "notified_issues",
			Help:      "Issues included in the last successful notification",
		}),
	}
	reg.MustRegister(r.attempts, r.duration, r.errorCount, r.lastSuccess, r.notifiedCount)
	return r
}

// ObserveAttempt counts an attempt with the given outcome label
func (r *Recorder) ObserveAttempt(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(outcome).Inc()
	if d > 0 {
		r.duration.Observe(d.Seconds())
	}
}

// SetErrorCount mirrors the persisted error counter
func (r *Recorder) SetErrorCount(n int) {
	if r == nil {
		return
	}
	r.errorCount.Set(float64(n))
}

// ObserveSuccess records a notification sent at the given time
func (r *Recorder) ObserveSuccess(at time.Time, issues int) {
	if r == nil {
		return
	}
	r.lastSuccess.Set(float64(at.Unix()))
	r.notifiedCount.Set(float64(issues))
}

// HTTPHandler serves the metrics gathered by g
func HTTPHandler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
