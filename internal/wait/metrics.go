package wait

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicehooks_waits_total",
		Help: "Wait-for-utterance invocations by outcome",
	}, []string{"outcome"})

	metricWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicehooks_wait_seconds",
		Help:    "Time spent waiting for new input",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	metricSoundFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicehooks_notification_sound_failures_total",
		Help: "Notification sound failures (swallowed)",
	})
)
