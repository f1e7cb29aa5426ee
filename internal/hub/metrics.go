package hub

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    gaugeObservers = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "voicehooks_observers_connected",
        Help: "Observers currently subscribed to broadcast events",
    })

    metricBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "voicehooks_broadcasts_total",
        Help: "Broadcast events by type",
    }, []string{"type"})

    metricDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "voicehooks_broadcast_delivery_failures_total",
        Help: "Per-observer delivery failures (swallowed)",
    })
)
