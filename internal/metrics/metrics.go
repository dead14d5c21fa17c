package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "simon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	roundsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simon",
			Subsystem: "game",
			Name:      "rounds_completed_total",
			Help:      "Sequences reproduced correctly.",
		},
	)
	gamesEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simon",
			Subsystem: "game",
			Name:      "games_ended_total",
			Help:      "Games ended, by reason.",
		},
		[]string{"reason"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "simon",
			Subsystem: "game",
			Name:      "active_sessions",
			Help:      "Player sessions currently held by the hub.",
		},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, roundsCompleted, gamesEnded, activeSessions)
	})
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	Register()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

func RoundCompleted() {
	Register()
	roundsCompleted.Inc()
}

func GameEnded(reason string) {
	Register()
	gamesEnded.WithLabelValues(reason).Inc()
}

func SessionOpened() {
	Register()
	activeSessions.Inc()
}

func SessionClosed() {
	Register()
	activeSessions.Dec()
}
