// README: Prometheus collectors for match computation and the HTTP layer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "match_computations_total", Help: "Match computations by outcome"},
		[]string{"outcome"},
	)
	MatchComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "carpool",
		Name:      "match_compute_duration_seconds",
		Help:      "Wall time of one compute-and-replace pass",
		Buckets:   prometheus.DefBuckets,
	})
	MatchSurvivors = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "carpool",
		Name:      "match_survivors",
		Help:      "Number of survivors produced per computation",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})
	CandidateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "candidate_rejections_total", Help: "Filter rejections by reason"},
		[]string{"reason"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
