package speech

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSpoken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicehooks_speak_total",
		Help: "Assistant replies sent to browsers",
	})
	metricSystemFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicehooks_speak_system_failures_total",
		Help: "OS speech synthesizer failures",
	})
)
