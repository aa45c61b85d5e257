package pingpong

import "github.com/prometheus/client_golang/prometheus"

var (
	bootstraps = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "bootstraps",
		Subsystem: "fiber",
		Help:      "Number of contexts bootstrapped",
	})

	switches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "switches",
		Subsystem: "fiber",
		Help:      "Number of resume/suspend round trips per fiber",
	}, []string{"fiber"})

	liveFibers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "live",
		Subsystem: "fiber",
		Help:      "Number of bootstrapped, unterminated fibers",
	})

	stackBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "stack_bytes",
		Subsystem: "fiber",
		Help:      "Total bytes allocated to fiber stacks",
	})
)

func init() {
	prometheus.MustRegister(bootstraps)
	prometheus.MustRegister(switches)
	prometheus.MustRegister(liveFibers)
	prometheus.MustRegister(stackBytes)
}
