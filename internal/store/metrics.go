package store

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricQueued = promauto.NewCounter(prometheus.CounterOpts{
        Name: "voicehooks_utterances_queued_total",
        Help: "Utterances accepted into the queue",
    })

    metricDelivered = promauto.NewCounter(prometheus.CounterOpts{
        Name: "voicehooks_utterances_delivered_total",
        Help: "Utterances moved from pending to delivered",
    })

    metricResponded = promauto.NewCounter(prometheus.CounterOpts{
        Name: "voicehooks_utterances_responded_total",
        Help: "Utterances moved from delivered to responded",
    })

    metricDeleted = promauto.NewCounter(prometheus.CounterOpts{
        Name: "voicehooks_utterances_deleted_total",
        Help: "Pending utterances deleted before delivery",
    })
)
