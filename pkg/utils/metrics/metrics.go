package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contactbook"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	slackCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slack",
			Name:      "commands_total",
			Help:      "Slash commands handled, by outcome.",
		},
		[]string{"command", "result"},
	)

	slackInteractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slack",
			Name:      "interactions_total",
			Help:      "Interactive payloads handled, by payload type and callback or action ID.",
		},
		[]string{"type", "id"},
	)

	repositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operation_duration_seconds",
			Help:      "Duration of repository operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"backend", "op"},
	)

	airtableRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "airtable",
			Name:      "requests_total",
			Help:      "Airtable API requests, by table and HTTP status.",
		},
		[]string{"table", "status"},
	)

	userRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "user_refresh_total",
			Help:      "Slack profile refresh cycles, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		slackCommands,
		slackInteractions,
		repositoryDuration,
		airtableRequests,
		userRefresh,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordCommand(command, result string) {
	slackCommands.WithLabelValues(command, result).Inc()
}

func RecordInteraction(kind, id string) {
	if id == "" {
		id = "unknown"
	}
	slackInteractions.WithLabelValues(kind, id).Inc()
}

// ObserveRepository returns a func to be deferred around a repository call.
//
//	defer metrics.ObserveRepository("postgres", "contact.search")()
func ObserveRepository(backend, op string) func() {
	start := time.Now()
	return func() {
		repositoryDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	}
}

func RecordAirtableRequest(table, status string) {
	airtableRequests.WithLabelValues(table, status).Inc()
}

func RecordUserRefresh(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	userRefresh.WithLabelValues(result).Inc()
}
