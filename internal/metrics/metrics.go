package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess     = "success"
	OutcomeClientError = "client_error"
	OutcomeQueryError  = "query_error"
	OutcomeCanceled    = "canceled"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medow_fetch_total",
		Help: "Total result window fetches by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medow_fetch_duration_seconds",
		Help:    "Duration of result window fetches including the upstream round trip",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	fetchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medow_fetch_in_flight",
		Help: "Number of fetches currently waiting on the search service",
	})

	fetchSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medow_fetch_superseded_total",
		Help: "Fetches cancelled because a newer fetch was submitted for the same session",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medow_sessions_active",
		Help: "Search sessions currently held by the web server",
	})
)

var outcomes = map[string]bool{
	OutcomeSuccess:     true,
	OutcomeClientError: true,
	OutcomeQueryError:  true,
	OutcomeCanceled:    true,
}

// FetchStarted marks a fetch as in flight. Call the returned function with
// the outcome once it completes.
func FetchStarted() func(outcome string) {
	start := time.Now()
	fetchInFlight.Inc()
	return func(outcome string) {
		fetchInFlight.Dec()
		if !outcomes[outcome] {
			outcome = OutcomeQueryError
		}
		fetchTotal.WithLabelValues(outcome).Inc()
		fetchDuration.Observe(time.Since(start).Seconds())
	}
}

func IncSuperseded() {
	fetchSuperseded.Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
