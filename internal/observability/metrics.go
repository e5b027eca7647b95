package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ticketbot"

// Metrics holds the bot's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ticketsOpened    *prometheus.CounterVec
	lifecycle        *prometheus.CounterVec
	filterVerdicts   *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	transcriptLines  prometheus.Histogram
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
}

// NewMetrics registers collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ticketsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "opened_total",
			Help:      "Tickets opened, labeled by category",
		}, []string{"category"}),
		lifecycle: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "actions_total",
			Help:      "Ticket actions, labeled by action and outcome",
		}, []string{"action", "outcome"}),
		filterVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "verdicts_total",
			Help:      "Message filter verdicts",
		}, []string{"verdict"}),
		deliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "failures_total",
			Help:      "Best-effort deliveries that failed, labeled by target",
		}, []string{"target"}),
		transcriptLines: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transcripts",
			Name:      "lines",
			Help:      "Lines per archived transcript",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Ops API requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Ops API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Ops API errors by code",
		}, []string{"method", "path", "code"}),
	}
}

// TicketOpened counts a created ticket.
func (m *Metrics) TicketOpened(category string) {
	if m == nil {
		return
	}
	m.ticketsOpened.WithLabelValues(category).Inc()
}

// TicketAction counts a lifecycle action; outcome is "ok" or an error code.
func (m *Metrics) TicketAction(action, outcome string) {
	if m == nil {
		return
	}
	m.lifecycle.WithLabelValues(action, outcome).Inc()
}

// FilterVerdict counts an intake verdict.
func (m *Metrics) FilterVerdict(verdict string) {
	if m == nil {
		return
	}
	m.filterVerdicts.WithLabelValues(verdict).Inc()
}

// DeliveryFailed counts a swallowed delivery failure.
func (m *Metrics) DeliveryFailed(target string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(target).Inc()
}

// TranscriptArchived observes transcript size.
func (m *Metrics) TranscriptArchived(lines int) {
	if m == nil {
		return
	}
	m.transcriptLines.Observe(float64(lines))
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}
