package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerBuildInfo sync.Once
	buildInfo         *prometheus.GaugeVec
)

// InitBuildInfo publishes build_info{version,commit} 1 so dashboards can tell
// which binary is serving. Safe to call more than once; only the labels from
// the latest call are set.
func InitBuildInfo(version, commit string) {
	registerBuildInfo.Do(func() {
		buildInfo = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "build_info",
				Help: "Arventa portal API build information.",
			},
			[]string{"version", "commit"},
		)
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit).Set(1)
}
