package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "interview_build_info",
		Help: "Constant 1, labeled with the build version and the configured model backend.",
	},
	[]string{"version", "provider", "model"},
)

func SetBuildInfo(version, provider, model string) {
	buildInfo.WithLabelValues(version, norm(provider), model).Set(1)
}
