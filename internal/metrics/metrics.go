// Package metrics holds the prometheus collectors of the engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	ClockEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timebank",
		Subsystem: "clock",
		Name:      "events_total",
		Help:      "Clock ledger events handled, labeled by event type and outcome.",
	}, []string{"event", "outcome"})

	MonthCloses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timebank",
		Subsystem: "bank",
		Name:      "month_closes_total",
		Help:      "Per-user month close attempts, labeled by outcome.",
	}, []string{"outcome"})

	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timebank",
		Subsystem: "bank",
		Name:      "batch_close_duration_seconds",
		Help:      "Time spent closing a month for every user.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	EntriesPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timebank",
		Subsystem: "bank",
		Name:      "entries_pruned_total",
		Help:      "Banked hours entries removed by retention.",
	})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timebank",
		Subsystem: "notify",
		Name:      "events_sent_total",
		Help:      "Record-updated events delivered, labeled by sink and outcome.",
	}, []string{"sink", "outcome"})

	NotificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timebank",
		Subsystem: "notify",
		Name:      "events_dropped_total",
		Help:      "Record-updated events dropped because the queue was full or closed.",
	})
)

func init() {
	prometheus.MustRegister(
		ClockEvents,
		MonthCloses,
		BatchDuration,
		EntriesPruned,
		NotificationsSent,
		NotificationsDropped,
	)
}

// ObserveClockEvent counts one clock ledger call.
func ObserveClockEvent(event string, err error, rejected bool) {
	outcome := OutcomeOK
	switch {
	case err != nil && rejected:
		outcome = OutcomeRejected
	case err != nil:
		outcome = OutcomeError
	}
	ClockEvents.WithLabelValues(event, outcome).Inc()
}
