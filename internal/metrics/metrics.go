// Package metrics holds the Prometheus collectors for scans and HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reclist_scans_total",
		Help: "Directory enumerations by outcome",
	}, []string{"outcome"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reclist_scan_duration_seconds",
		Help:    "Time spent walking a requested directory tree",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	recordingsListed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reclist_recordings_listed",
		Help:    "Number of recordings returned per enumeration",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	classifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reclist_classified_total",
		Help: "Classifier decisions by result and reason",
	}, []string{"result", "reason"})

	walkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reclist_walk_errors_total",
		Help: "Directory listing errors encountered during walks",
	}, []string{"kind"})

	// HTTPRequestDuration is observed by the server's metrics middleware.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reclist_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// HTTPRequestsInFlight tracks requests currently being served.
	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reclist_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})
)

// RecordScan observes one completed enumeration.
func RecordScan(outcome string, d time.Duration, listed int) {
	scansTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	scanDuration.Observe(d.Seconds())
	recordingsListed.Observe(float64(listed))
}

// RecordClassification counts one classifier decision.
func RecordClassification(accepted bool, reason string) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	classifiedTotal.WithLabelValues(result, reason).Inc()
}

// RecordWalkError counts a directory that could not be listed.
func RecordWalkError(kind string) {
	walkErrorsTotal.WithLabelValues(kind).Inc()
}
