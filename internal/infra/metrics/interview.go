package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		interviewTurnsTotal,
		interviewControlCodesTotal,
		interviewSessionsTotal,
	)
}

var (
	interviewTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Interview turns by kind and result.",
		},
		[]string{"kind", "result"}, // kind: opening|respondent|retry, result: committed|failed|closed
	)

	interviewControlCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_control_codes_total",
			Help: "Detected control codes by outcome.",
		},
		[]string{"outcome"},
	)

	interviewSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_total",
			Help: "Sessions opened and sessions reaching a terminal state.",
		},
		[]string{"state"}, // opened|quit|completed
	)
)

func IncTurn(kind, result string) {
	interviewTurnsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func IncControlCode(outcome string) {
	interviewControlCodesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSession(state string) {
	interviewSessionsTotal.WithLabelValues(norm(state)).Inc()
}
