package floor

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "voicehooks_gate_decisions_total",
        Help: "Gate decisions by attempted action and verdict",
    }, []string{"action", "decision"})

    metricValidations = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "voicehooks_action_validations_total",
        Help: "Action validator results",
    }, []string{"check", "allowed"})
)
