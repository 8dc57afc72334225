package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "twingenie"

var (
	// HTTPRequests counts served requests by method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method and status.",
	}, []string{"method", "status"})

	// ValidationRejections counts 4xx rejections issued by request validators.
	ValidationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "validation_rejections_total",
		Help:      "Requests rejected by an input validator.",
	}, []string{"validator"})

	// SanitizeFailures counts bodies the sanitizer could not process.
	SanitizeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sanitize_failures_total",
		Help:      "Request bodies rejected because sanitization failed.",
	})

	// ToneRewrites counts replies whose text was changed by the tone engine.
	ToneRewrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "tone_rewrites_total",
		Help:      "Replies rewritten by the tone engine, by rewrite kind.",
	}, []string{"kind"})

	// LLMRequests counts completion calls by outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "llm_requests_total",
		Help:      "LLM completion requests, by outcome.",
	}, []string{"status"})

	// AuditEvents counts audit events by what happened to them.
	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "audit_events_total",
		Help:      "Audit events, by outcome (written, dropped, failed).",
	}, []string{"outcome"})
)

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
