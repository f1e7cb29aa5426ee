// Package floor decides who holds the floor: whether the agent may act, must
// first consume queued operator input, or must speak before going on.
package floor

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "voicehooks/agent/internal/debuglog"
    "voicehooks/agent/internal/events"
    "voicehooks/agent/internal/types"
    "voicehooks/agent/internal/wait"
)

var ErrUnknownAction = errors.New("unknown action")

// Action is what the agent is about to do.
type Action int

const (
    ActionTool Action = iota + 1
    ActionPostTool
    ActionSpeak
    ActionStop
)

func (a Action) String() string {
    switch a {
    case ActionTool:
        return "tool"
    case ActionPostTool:
        return "post-tool"
    case ActionSpeak:
        return "speak"
    case ActionStop:
        return "stop"
    }
    return "unknown"
}

// ParseAction accepts the hook names as well as the bare action names.
func ParseAction(s string) (Action, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "tool", "pre-tool":
        return ActionTool, nil
    case "post-tool":
        return ActionPostTool, nil
    case "speak", "pre-speak":
        return ActionSpeak, nil
    case "stop":
        return ActionStop, nil
    }
    return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

type Verdict string

const (
    Approve Verdict = "approve"
    Block   Verdict = "block"
)

// Decision represents the answer the floor gives to an attempted action.
type Decision struct {
    Decision Verdict `json:"decision"`
    Reason   string  `json:"reason,omitempty"`
}

const (
    reasonSpeakAfterTools = "Assistant must speak after using tools. Please use the speak tool to respond before proceeding."
    reasonNoUtterances    = "No utterances since last timeout"
    reasonWaitEmpty       = "No utterances found during wait"
    reasonWaitFailed      = "Auto-wait encountered an error, proceeding"
    voiceReminder         = "\n\nThe user has enabled voice responses, so use the 'speak' tool to respond to the user's voice input before proceeding."
)

// Queue is the part of the utterance store the gate reads and drains.
type Queue interface {
    DequeuePendingNewestFirst() []types.Dequeued
    Pending() []types.Utterance
    Delivered() []types.Utterance
    Counts() types.Counts
}

type Prefs interface {
    VoiceResponsesEnabled() bool
    VoiceInputActive() bool
}

type Turns interface {
    StampToolUse(at time.Time)
    ToolUsedSinceSpeak() bool
}

type Waiter interface {
    Wait(ctx context.Context) (wait.Result, error)
}

type Gate struct {
    queue  Queue
    prefs  Prefs
    turns  Turns
    waiter Waiter
    trace  *events.Log
    now    func() time.Time
}

func New(q Queue, prefs Prefs, turns Turns, waiter Waiter, trace *events.Log) *Gate {
    return &Gate{queue: q, prefs: prefs, turns: turns, waiter: waiter, trace: trace, now: time.Now}
}

// Evaluate applies the rules in priority order; the first match wins.
// Only the stop branch can block for the length of a wait.
func (g *Gate) Evaluate(ctx context.Context, action Action) Decision {
    d := g.evaluate(ctx, action)
    metricDecisions.WithLabelValues(action.String(), string(d.Decision)).Inc()
    debuglog.Printf("[gate] action=%s decision=%s reason=%q", action, d.Decision, d.Reason)
    g.trace.Append("gate_decision", map[string]any{
        "action": action.String(), "decision": string(d.Decision),
    })
    return d
}

func (g *Gate) evaluate(ctx context.Context, action Action) Decision {
    // Any attempted action flushes the queue, typed and spoken input alike.
    if drained := g.queue.DequeuePendingNewestFirst(); len(drained) > 0 {
        texts := make([]string, len(drained))
        for i, u := range drained {
            texts[len(drained)-1-i] = u.Text
        }
        log.Printf("[gate] %s blocked: drained %d pending utterance(s)", action, len(drained))
        return Decision{Decision: Block, Reason: g.formatUtterances(texts)}
    }

    if g.prefs.VoiceResponsesEnabled() {
        if n := len(g.queue.Delivered()); n > 0 {
            if action == ActionSpeak {
                return Decision{Decision: Approve}
            }
            return Decision{Decision: Block, Reason: deliveredReason(n)}
        }
    }

    switch action {
    case ActionTool, ActionPostTool:
        g.turns.StampToolUse(g.now())
        return Decision{Decision: Approve}
    case ActionSpeak:
        return Decision{Decision: Approve}
    case ActionStop:
        return g.evaluateStop(ctx)
    }
    return Decision{Decision: Approve}
}

func (g *Gate) evaluateStop(ctx context.Context) Decision {
    if g.prefs.VoiceResponsesEnabled() && g.turns.ToolUsedSinceSpeak() {
        return Decision{Decision: Block, Reason: reasonSpeakAfterTools}
    }
    if !g.prefs.VoiceInputActive() {
        return Decision{Decision: Approve, Reason: reasonNoUtterances}
    }

    log.Printf("[gate] stop requested while listening, waiting for input")
    res, err := g.runWait(ctx)
    if err != nil {
        if errors.Is(err, wait.ErrVoiceInputInactive) {
            return Decision{Decision: Approve, Reason: err.Error()}
        }
        log.Printf("[gate] auto-wait failed: %v", err)
        return Decision{Decision: Approve, Reason: reasonWaitFailed}
    }
    if len(res.Utterances) > 0 {
        texts := make([]string, len(res.Utterances))
        for i, u := range res.Utterances {
            texts[i] = u.Text
        }
        return Decision{Decision: Block, Reason: g.formatUtterances(texts)}
    }
    if res.Message != "" {
        return Decision{Decision: Approve, Reason: res.Message}
    }
    return Decision{Decision: Approve, Reason: reasonWaitEmpty}
}

// runWait converts a panicking waiter into an error so stop always fails open.
func (g *Gate) runWait(ctx context.Context) (res wait.Result, err error) {
    if g.waiter == nil {
        return res, errors.New("no waiter configured")
    }
    defer func() {
        if r := recover(); r != nil {
            err = fmt.Errorf("wait panicked: %v", r)
        }
    }()
    return g.waiter.Wait(ctx)
}

func (g *Gate) formatUtterances(texts []string) string {
    var b strings.Builder
    fmt.Fprintf(&b, "Assistant received voice input from the user (%d utterance", len(texts))
    if len(texts) != 1 {
        b.WriteString("s")
    }
    b.WriteString("):\n\n")
    for i, t := range texts {
        if i > 0 {
            b.WriteString("\n")
        }
        b.WriteString(`"` + t + `"`)
    }
    if g.prefs.VoiceResponsesEnabled() {
        b.WriteString(voiceReminder)
    }
    return b.String()
}

func deliveredReason(n int) string {
    return fmt.Sprintf("%d delivered utterance(s) require voice response. Please use the speak tool to respond before proceeding.", n)
}
