// Package metrics defines the Prometheus collectors stanza exports.
//
// Collectors are package-level so every component records into the same
// series; Register attaches them to a registry once at startup.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stanza"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Match and provider metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_requests_total",
			Help:      "Total number of matching requests",
		},
		[]string{"status"},
	)

	MatchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_candidates",
			Help:      "Number of analyzed candidates scored per matching request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	MatchRetainedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_retained_total",
			Help:      "Total number of candidates returned in match results",
		},
	)

	AdaptationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adaptations_total",
			Help:      "Total adaptation calls by outcome",
		},
		[]string{"status"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total analysis calls by outcome",
		},
		[]string{"status"},
	)
)

// Collectors returns every stanza collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		MatchRequestsTotal,
		MatchCandidates,
		MatchRetainedTotal,
		AdaptationsTotal,
		AnalysesTotal,
		httpRequestsTotal,
		httpRequestDuration,
	}
}

// Register registers every collector with reg. Collectors already
// registered with reg are skipped, so repeated calls are harmless.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// Status maps an error to a status label value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// ObserveAnalysis counts one analysis call.
func ObserveAnalysis(err error) {
	AnalysesTotal.WithLabelValues(Status(err)).Inc()
}

// ObserveAdaptation counts one adaptation call.
func ObserveAdaptation(err error) {
	AdaptationsTotal.WithLabelValues(Status(err)).Inc()
}

// ObserveMatch records the outcome of one matching request.
// candidates and retained are ignored for failed requests.
func ObserveMatch(err error, candidates, retained int) {
	MatchRequestsTotal.WithLabelValues(Status(err)).Inc()
	if err != nil {
		return
	}
	MatchCandidates.Observe(float64(candidates))
	MatchRetainedTotal.Add(float64(retained))
}
