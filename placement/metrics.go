package placement

import (
	"time"

	"github.com/aukilabs/roomlayout/bounds"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationLabel = "operation"
	resultLabel    = "result"
	reasonLabel    = "reason"

	resultAccepted = "accepted"
	resultRejected = "rejected"
)

var (
	placementAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placement_attempts",
		Help: "The number of placement attempts.",
	}, []string{
		operationLabel,
		resultLabel,
		reasonLabel,
	})

	placementLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placement_latency",
		Help:    "The time to resolve and check a placement.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	}, []string{
		operationLabel,
	})

	boundsFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placement_bounds_fallbacks",
		Help: "The number of object volumes estimated from the object scale.",
	}, []string{
		reasonLabel,
	})
)

func instrumentPlacement(operation string, f func() Result) Result {
	start := time.Now()
	res := f()

	placementLatency.
		With(prometheus.Labels{operationLabel: operation}).
		Observe(time.Since(start).Seconds())

	result := resultAccepted
	if !res.Accepted {
		result = resultRejected
	}

	placementAttempts.
		With(prometheus.Labels{
			operationLabel: operation,
			resultLabel:    result,
			reasonLabel:    string(res.Reason),
		}).
		Inc()

	if res.Fallback != bounds.FallbackNone {
		boundsFallbacks.
			With(prometheus.Labels{reasonLabel: string(res.Fallback)}).
			Inc()
	}

	return res
}
