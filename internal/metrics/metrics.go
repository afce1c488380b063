// Package metrics registers the service's Prometheus instrumentation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "saldo_"

	OutcomeApplied   = "applied"
	OutcomeDiscarded = "discarded"
	OutcomeError     = "error"
)

var (
	registerOnce sync.Once

	eventsConsumed *prometheus.CounterVec
	queryRequests  *prometheus.CounterVec
)

// Init registers the metric collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		eventsConsumed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_consumed_total",
				Help: "Transaction events consumed by channel and outcome",
			},
			[]string{"channel", "outcome"},
		)
		queryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_requests_total",
				Help: "Report query requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)

		prometheus.MustRegister(eventsConsumed, queryRequests)
	})
}

// EventConsumed records one consumed transaction event.
func EventConsumed(channel, outcome string) {
	if eventsConsumed != nil {
		eventsConsumed.WithLabelValues(channel, outcome).Inc()
	}
}

// QueryServed records one report query.
func QueryServed(endpoint, result string) {
	if queryRequests != nil {
		queryRequests.WithLabelValues(endpoint, result).Inc()
	}
}
