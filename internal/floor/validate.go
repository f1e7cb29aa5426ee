package floor

import (
    "fmt"
    "strings"
)

// Check is one of the coarse actions the validator knows about.
type Check int

const (
    CheckToolUse Check = iota + 1
    CheckStop
)

func (c Check) String() string {
    switch c {
    case CheckToolUse:
        return "tool-use"
    case CheckStop:
        return "stop"
    }
    return "unknown"
}

func ParseCheck(s string) (Check, error) {
    switch strings.TrimSpace(s) {
    case "tool-use":
        return CheckToolUse, nil
    case "stop":
        return CheckStop, nil
    }
    return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

const (
    RequireDequeue = "dequeue_utterances"
    RequireSpeak   = "speak"
    RequireWait    = "wait_for_utterance"

    reasonStopNeedsWait = "Assistant tried to end its response. Stopping is not allowed without first checking for voice input. Assistant should now use wait_for_utterance to check for voice input"
)

// Allowance reports whether an action may proceed and, if not, what must happen first.
type Allowance struct {
    Allowed        bool   `json:"allowed"`
    RequiredAction string `json:"requiredAction,omitempty"`
    Reason         string `json:"reason,omitempty"`
}

// Validate never mutates state.
func (g *Gate) Validate(c Check) Allowance {
    a := g.validate(c)
    metricValidations.WithLabelValues(c.String(), fmt.Sprint(a.Allowed)).Inc()
    return a
}

func (g *Gate) validate(c Check) Allowance {
    if g.prefs.VoiceInputActive() {
        if n := len(g.queue.Pending()); n > 0 {
            return Allowance{
                RequiredAction: RequireDequeue,
                Reason:         fmt.Sprintf("%d pending utterance(s) must be dequeued first. Please use dequeue_utterances to process them.", n),
            }
        }
    }
    if g.prefs.VoiceResponsesEnabled() {
        if n := len(g.queue.Delivered()); n > 0 {
            return Allowance{RequiredAction: RequireSpeak, Reason: deliveredReason(n)}
        }
    }
    if c == CheckStop && g.prefs.VoiceInputActive() && g.queue.Counts().Total > 0 {
        return Allowance{RequiredAction: RequireWait, Reason: reasonStopNeedsWait}
    }
    return Allowance{Allowed: true}
}
