package hub

import (
    "context"
    "log"
    "sync"
    "sync/atomic"
    "time"
)

const sendTimeout = 5 * time.Second

// Event is pushed to every connected observer.
type Event struct {
    Type      string `json:"type"`
    Text      string `json:"text,omitempty"`
    IsWaiting *bool  `json:"isWaiting,omitempty"`
}

const (
    EventConnected  = "connected"
    EventSpeak      = "speak"
    EventWaitStatus = "waitStatus"
)

func Speak(text string) Event { return Event{Type: EventSpeak, Text: text} }

func WaitStatus(isWaiting bool) Event {
    return Event{Type: EventWaitStatus, IsWaiting: &isWaiting}
}

// Observer receives broadcast events. Implementations must be comparable
// (pointer receivers) since the hub keys its set by observer.
type Observer interface {
    Send(ctx context.Context, evt Event) error
}

// Hub fans events out to the currently subscribed observers.
type Hub struct {
    mu        sync.Mutex
    observers map[Observer]struct{}

    // onLastGone fires once each time the observer count drops from >=1 to 0.
    // It runs with the hub locked and must not call back into the hub.
    onLastGone func()

    sendTimeout time.Duration
}

func New(onLastGone func()) *Hub {
    return &Hub{observers: make(map[Observer]struct{}), onLastGone: onLastGone, sendTimeout: sendTimeout}
}

// Subscribe adds an observer. Subscribing twice is a no-op.
func (h *Hub) Subscribe(o Observer) {
    h.mu.Lock()
    h.observers[o] = struct{}{}
    n := len(h.observers)
    h.mu.Unlock()
    gaugeObservers.Set(float64(n))
    log.Printf("[hub] observer connected, %d observer(s)", n)
}

// Unsubscribe removes an observer. Unknown observers are ignored.
func (h *Hub) Unsubscribe(o Observer) {
    h.mu.Lock()
    if _, ok := h.observers[o]; !ok {
        h.mu.Unlock()
        return
    }
    delete(h.observers, o)
    n := len(h.observers)
    // A Subscribe racing this call waits until the reset is done.
    if n == 0 && h.onLastGone != nil {
        h.onLastGone()
    }
    h.mu.Unlock()
    gaugeObservers.Set(float64(n))

    if n > 0 {
        log.Printf("[hub] observer disconnected, %d observer(s) remaining", n)
        return
    }
    log.Printf("[hub] last observer disconnected")
}

func (h *Hub) Count() int {
    h.mu.Lock()
    defer h.mu.Unlock()
    return len(h.observers)
}

// Broadcast delivers evt to every observer concurrently and returns how many
// accepted it. A failing observer is logged and skipped; a slow one is given
// up on once the send timeout or ctx expires.
func (h *Hub) Broadcast(ctx context.Context, evt Event) int {
    h.mu.Lock()
    targets := make([]Observer, 0, len(h.observers))
    for o := range h.observers {
        targets = append(targets, o)
    }
    h.mu.Unlock()

    metricBroadcasts.WithLabelValues(evt.Type).Inc()
    if len(targets) == 0 {
        return 0
    }

    sctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
    defer cancel()

    var delivered atomic.Int32
    var wg sync.WaitGroup
    for _, o := range targets {
        wg.Add(1)
        go func(o Observer) {
            defer wg.Done()
            if err := h.send(sctx, o, evt); err != nil {
                metricDeliveryFailures.Inc()
                log.Printf("[hub] deliver %s failed: %v", evt.Type, err)
                return
            }
            delivered.Add(1)
        }(o)
    }

    done := make(chan struct{})
    go func() {
        wg.Wait()
        close(done)
    }()
    select {
    case <-done:
    case <-sctx.Done():
        log.Printf("[hub] deliver %s: abandoned slow observer(s): %v", evt.Type, sctx.Err())
    }
    return int(delivered.Load())
}

func (h *Hub) send(ctx context.Context, o Observer, evt Event) (err error) {
    defer func() {
        if r := recover(); r != nil {
            err = errPanic{r}
        }
    }()
    return o.Send(ctx, evt)
}

// NotifyTTS asks observers to speak text.
func (h *Hub) NotifyTTS(ctx context.Context, text string) {
    h.Broadcast(ctx, Speak(text))
}

// NotifyWaitStatus is not tied to a request; the closing status must go out
// even when the wait was cancelled.
func (h *Hub) NotifyWaitStatus(isWaiting bool) {
    h.Broadcast(context.Background(), WaitStatus(isWaiting))
}

type errPanic struct{ v any }

func (e errPanic) Error() string { return "observer panicked" }
