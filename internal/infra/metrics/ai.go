package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiStreamLatencyMs,
		aiStreamFragments,
	)
}

var (
	aiStreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_stream_latency_ms",
			Help:    "Model reply stream duration in milliseconds, from request to last fragment.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000},
		},
		[]string{"provider", "success"},
	)

	aiStreamFragments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_fragments_total",
			Help: "Reply fragments consumed per provider.",
		},
		[]string{"provider"},
	)
)

func ObserveStream(provider string, fragments int, latencyMs int64, success bool) {
	aiStreamFragments.WithLabelValues(norm(provider)).Add(float64(fragments))
	aiStreamLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
