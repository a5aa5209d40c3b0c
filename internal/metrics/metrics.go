// Package metrics provides Prometheus instrumentation for the moderation
// pipeline. It exposes counters for event and decision throughput, gauges for
// in-flight reports and pending approvals, and histograms for classifier
// latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts inbound events by how they were routed:
	// "dm", "moderator", "channel", or "ignored".
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_events_total",
		Help: "Total number of inbound events processed",
	}, []string{"kind"})

	// DecisionsTotal counts moderation decisions by evaluation path and
	// severity tier.
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_decisions_total",
		Help: "Total number of moderation decisions produced",
	}, []string{"source", "severity"})

	// DispatchesTotal counts dispatched blocks by kind:
	// "log", "user_notice", or "server_action".
	DispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_dispatches_total",
		Help: "Total number of moderation blocks sent to moderation channels",
	}, []string{"kind"})

	// PendingApprovals tracks decisions currently awaiting a moderator verdict.
	PendingApprovals = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_pending_approvals",
		Help: "Current number of decisions awaiting moderator verdict",
	})

	// OpenReports tracks in-flight report conversations.
	OpenReports = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_open_reports",
		Help: "Current number of in-flight report conversations",
	})

	// ClassifierLatency records classifier call latency in seconds, labeled
	// by classifier service name.
	ClassifierLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modbot_classifier_latency_seconds",
		Help:    "Classifier call latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service"})

	// ClassifierErrors counts failed classifier calls by service name.
	ClassifierErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_classifier_errors_total",
		Help: "Total number of failed classifier calls",
	}, []string{"service"})
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		DecisionsTotal,
		DispatchesTotal,
		PendingApprovals,
		OpenReports,
		ClassifierLatency,
		ClassifierErrors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
