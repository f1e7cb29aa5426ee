package loop

import (
    "context"
    "log"
    "strings"
    "time"

    "voicehooks/agent/internal/events"
    "voicehooks/agent/internal/hub"
    "voicehooks/agent/internal/state"
    "voicehooks/agent/internal/store"
)

// Dispatcher applies frames pushed by a browser over the websocket, the same
// way the HTTP endpoints would.
type Dispatcher struct {
    store *store.Store
    prefs *state.Preferences
    trace *events.Log
}

func New(st *store.Store, prefs *state.Preferences, trace *events.Log) *Dispatcher {
    return &Dispatcher{store: st, prefs: prefs, trace: trace}
}

// OnMessage processes one browser message. Unknown types are recorded and ignored.
func (d *Dispatcher) OnMessage(_ context.Context, msg hub.Message) {
    switch msg.Type {
    case "utterance":
        text, _ := msg.Payload["text"].(string)
        ts := time.Time{}
        if msg.TsMs > 0 {
            ts = time.UnixMilli(msg.TsMs)
        }
        u, err := d.store.Add(text, ts)
        if err != nil {
            log.Printf("[loop] utterance rejected: %v", err)
            return
        }
        log.Printf("[loop] utterance queued id=%s", u.ID)
    case "voice_input_state":
        active, ok := msg.Payload["active"].(bool)
        if !ok {
            log.Printf("[loop] voice_input_state without active flag")
            return
        }
        d.prefs.SetVoiceInput(active)
    case "voice_preferences":
        enabled, ok := msg.Payload["voiceResponsesEnabled"].(bool)
        if !ok {
            log.Printf("[loop] voice_preferences without voiceResponsesEnabled")
            return
        }
        d.prefs.SetVoiceResponses(enabled)
    case "ping":
        // keepalive
    default:
        d.trace.Append("ws_unknown_message", map[string]any{"type": strings.TrimSpace(msg.Type)})
    }
}
