package events

import (
    "sync"
    "time"

    "github.com/google/uuid"
)

// DefaultMax is the number of entries kept before the oldest are dropped.
const DefaultMax = 200

type Event struct {
    ID        string         `json:"id"`
    Type      string         `json:"type"`
    Timestamp time.Time      `json:"timestamp"`
    Payload   map[string]any `json:"payload,omitempty"`
}

// Log is a capped, in-memory trace of coordination events. A nil *Log is
// valid and discards everything, so components can run without tracing.
type Log struct {
    mu      sync.RWMutex
    max     int
    entries []Event
}

func NewLog(max int) *Log {
    if max <= 0 {
        max = DefaultMax
    }
    return &Log{max: max}
}

func (l *Log) Append(typ string, payload map[string]any) Event {
    evt := Event{
        ID:        uuid.New().String(),
        Type:      typ,
        Timestamp: time.Now().UTC(),
        Payload:   payload,
    }
    if l == nil {
        return evt
    }
    l.mu.Lock()
    defer l.mu.Unlock()
    l.entries = append(l.entries, evt)
    if n := len(l.entries); n > l.max {
        // Keep space for a single truncation marker so the total stays at max.
        keep := l.max - 1
        dropped := n - keep
        kept := make([]Event, 0, l.max)
        if keep > 0 {
            kept = append(kept, l.entries[n-keep:]...)
        }
        kept = append(kept, Event{
            ID:        uuid.New().String(),
            Type:      "events_truncated",
            Timestamp: time.Now().UTC(),
            Payload:   map[string]any{"dropped": dropped, "kept": keep},
        })
        l.entries = kept
    }
    return evt
}

// List returns a copy of the retained entries, oldest first.
func (l *Log) List() []Event {
    if l == nil {
        return nil
    }
    l.mu.RLock()
    defer l.mu.RUnlock()
    out := make([]Event, len(l.entries))
    copy(out, l.entries)
    return out
}

func (l *Log) Len() int {
    if l == nil {
        return 0
    }
    l.mu.RLock()
    defer l.mu.RUnlock()
    return len(l.entries)
}
