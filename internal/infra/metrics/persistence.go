package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(persistAttemptsTotal) }

var persistAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "transcript_persist_attempts_total",
		Help: "Transcript snapshot writes per sink, labeled by result.",
	},
	[]string{"sink", "result"}, // result: ok|error|unverified
)

func IncPersist(sink, result string) {
	persistAttemptsTotal.WithLabelValues(norm(sink), norm(result)).Inc()
}
