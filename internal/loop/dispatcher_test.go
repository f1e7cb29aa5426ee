package loop

import (
    "context"
    "testing"
    "time"

    "voicehooks/agent/internal/events"
    "voicehooks/agent/internal/hub"
    "voicehooks/agent/internal/state"
    "voicehooks/agent/internal/store"
)

func TestDispatcherUtterance(t *testing.T) {
    st := store.New(nil)
    d := New(st, state.NewPreferences(), nil)

    ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
    d.OnMessage(context.Background(), hub.Message{Type: "utterance", TsMs: ts.UnixMilli(), Payload: map[string]any{"text": " hello "}})
    d.OnMessage(context.Background(), hub.Message{Type: "utterance", Payload: map[string]any{"text": "   "}})

    got := st.Pending()
    if len(got) != 1 || got[0].Text != "hello" || !got[0].Timestamp.Equal(ts) {
        t.Fatalf("unexpected pending %+v", got)
    }
}

func TestDispatcherPreferences(t *testing.T) {
    prefs := state.NewPreferences()
    d := New(store.New(nil), prefs, nil)

    d.OnMessage(context.Background(), hub.Message{Type: "voice_input_state", Payload: map[string]any{"active": true}})
    d.OnMessage(context.Background(), hub.Message{Type: "voice_preferences", Payload: map[string]any{"voiceResponsesEnabled": true}})
    if !prefs.VoiceInputActive() || !prefs.VoiceResponsesEnabled() {
        t.Fatalf("expected both flags on, got %+v", prefs.Snapshot())
    }

    // Malformed payloads leave state alone.
    d.OnMessage(context.Background(), hub.Message{Type: "voice_input_state", Payload: map[string]any{"active": "no"}})
    if !prefs.VoiceInputActive() {
        t.Fatalf("malformed frame should be ignored")
    }
}

func TestDispatcherUnknownRecorded(t *testing.T) {
    trace := events.NewLog(10)
    d := New(store.New(trace), state.NewPreferences(), trace)
    d.OnMessage(context.Background(), hub.Message{Type: "mystery"})
    evs := trace.List()
    if len(evs) != 1 || evs[0].Type != "ws_unknown_message" {
        t.Fatalf("unexpected trace %+v", evs)
    }
}
