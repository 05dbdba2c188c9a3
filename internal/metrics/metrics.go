package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ticketify"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_lock_wait_seconds",
			Help:      "Time spent waiting for the admission mutex.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, admissions, notifications, lockWait)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAdmission counts a submission outcome (accepted, seat_conflict, ...).
func IncAdmission(outcome string) {
	admissions.WithLabelValues(outcome).Inc()
}

// IncNotification counts a delivery attempt.
func IncNotification(channel string, delivered bool) {
	result := "failed"
	if delivered {
		result = "sent"
	}
	notifications.WithLabelValues(channel, result).Inc()
}

// ObserveLockWait records how long a caller queued for the admission mutex.
func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}
