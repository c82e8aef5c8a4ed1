// Package metrics provides Prometheus metrics for the remindr daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the daemon.
type Manager struct {
	namespace   string
	tickBuckets []float64
	httpBuckets []float64
	enabled     bool
	registry    prometheus.Registerer

	// Reminder scheduler
	reminderTicks        prometheus.Counter
	remindersSent        prometheus.Counter
	reminderSendFailures prometheus.Counter
	reminderTickDuration prometheus.Histogram
	lastTickUnix         prometheus.Gauge

	// Calendar gateway
	calendarFetchErrors  *prometheus.CounterVec
	calendarEventsLoaded prometheus.Gauge

	// Dedup store
	dedupSize          prometheus.Gauge
	dedupPersistErrors prometheus.Counter

	// Command loop
	updatesReceived prometheus.Counter
	updatePollErrs  prometheus.Counter
	commandsHandled *prometheus.CounterVec
	resumeCursor    prometheus.Gauge

	// Supervisor
	loopRestarts *prometheus.CounterVec

	// Admin HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// defaultHTTPBuckets covers admin requests from 1 ms to 2.5 s.
var defaultHTTPBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket layout

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = newManager(WithRegistry(customRegistry))
}

// newManager creates a metrics manager with default configuration.
func newManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:   "remindr",
		tickBuckets: prometheus.DefBuckets,
		httpBuckets: defaultHTTPBuckets,
		enabled:     true,
		registry:    prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.reminderTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "reminder_ticks_total",
		Help:      "Total number of reminder scheduler ticks",
	})

	m.remindersSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "reminders_sent_total",
		Help:      "Total number of reminder notifications delivered",
	})

	m.reminderSendFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "reminder_send_failures_total",
		Help:      "Total number of reminder sends that failed and will be retried",
	})

	m.reminderTickDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "reminder_tick_duration_seconds",
		Help:      "Wall time of a reminder tick including fetch and sends",
		Buckets:   m.tickBuckets,
	})

	m.lastTickUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "reminder_last_tick_unixtime",
		Help:      "Unix time of the last completed reminder tick",
	})

	m.calendarFetchErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "calendar_fetch_errors_total",
			Help:      "Calendar fetch failures by caller",
		},
		[]string{"caller"},
	)

	m.calendarEventsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "calendar_events_last_fetch",
		Help:      "Number of events returned by the last reminder fetch",
	})

	m.dedupSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "dedup_store_size",
		Help:      "Number of event IDs already notified",
	})

	m.dedupPersistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "dedup_persist_errors_total",
		Help:      "Failed writes of the dedup store",
	})

	m.updatesReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "updates_received_total",
		Help:      "Inbound messaging updates consumed by the command loop",
	})

	m.updatePollErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "update_poll_errors_total",
		Help:      "Failed long-poll fetches",
	})

	m.commandsHandled = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "commands_handled_total",
			Help:      "Commands dispatched by name",
		},
		[]string{"command"},
	)

	m.resumeCursor = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "command_resume_cursor",
		Help:      "Current resume cursor of the command loop",
	})

	m.loopRestarts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "loop_restarts_total",
			Help:      "Supervised loop restarts after failure",
		},
		[]string{"loop"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "http_requests_total",
			Help:      "Total number of admin HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "Admin HTTP request duration in milliseconds",
			Buckets:   m.httpBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordReminderTick records one completed tick and its duration.
func RecordReminderTick(seconds float64, unixNow int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.reminderTicks.Inc()
	globalManager.reminderTickDuration.Observe(seconds)
	globalManager.lastTickUnix.Set(float64(unixNow))
}

// RecordReminderSent increments the delivered reminders counter.
func RecordReminderSent() {
	if !globalManager.enabled {
		return
	}
	globalManager.remindersSent.Inc()
}

// RecordReminderSendFailure increments the failed sends counter.
func RecordReminderSendFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.reminderSendFailures.Inc()
}

// RecordCalendarFetchError counts a calendar failure for caller ("reminder" or "commands").
func RecordCalendarFetchError(caller string) {
	if !globalManager.enabled {
		return
	}
	globalManager.calendarFetchErrors.WithLabelValues(caller).Inc()
}

// UpdateCalendarEventsLoaded sets the size of the last reminder fetch.
func UpdateCalendarEventsLoaded(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.calendarEventsLoaded.Set(float64(n))
}

// UpdateDedupSize sets the dedup store size.
func UpdateDedupSize(n int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.dedupSize.Set(float64(n))
}

// RecordDedupPersistError increments the persistence failure counter.
func RecordDedupPersistError() {
	if !globalManager.enabled {
		return
	}
	globalManager.dedupPersistErrors.Inc()
}

// RecordUpdatesReceived adds n consumed updates.
func RecordUpdatesReceived(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.updatesReceived.Add(float64(n))
}

// RecordUpdatePollError increments the long-poll failure counter.
func RecordUpdatePollError() {
	if !globalManager.enabled {
		return
	}
	globalManager.updatePollErrs.Inc()
}

// RecordCommandHandled counts a dispatched command.
func RecordCommandHandled(command string) {
	if !globalManager.enabled {
		return
	}
	globalManager.commandsHandled.WithLabelValues(command).Inc()
}

// UpdateResumeCursor sets the current command loop cursor.
func UpdateResumeCursor(cursor int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.resumeCursor.Set(float64(cursor))
}

// RecordLoopRestart counts a supervised restart of loop.
func RecordLoopRestart(loop string) {
	if !globalManager.enabled {
		return
	}
	globalManager.loopRestarts.WithLabelValues(loop).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
