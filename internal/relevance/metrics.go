package relevance

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docreader",
		Subsystem: "relevance",
		Name:      "backend_calls_total",
		Help:      "Scoring backend calls by stage and result.",
	}, []string{"stage", "result"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docreader",
		Subsystem: "relevance",
		Name:      "batch_duration_seconds",
		Help:      "Wall time to score one batch, including fallback.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	scoringFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docreader",
		Subsystem: "relevance",
		Name:      "failures_total",
		Help:      "Scoring operations that failed, by error kind.",
	}, []string{"kind"})
)

func kindLabel(err error) string {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}
