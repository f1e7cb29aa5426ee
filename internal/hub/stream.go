package hub

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "net/http"
    "sync/atomic"
    "time"

    ws "nhooyr.io/websocket"
    "nhooyr.io/websocket/wsjson"

    "voicehooks/agent/internal/auth"
)

var errObserverClosed = errors.New("observer closed")

// Message is an inbound frame sent by a websocket observer (the browser).
type Message struct {
    Type    string         `json:"type"`
    TsMs    int64          `json:"ts_ms,omitempty"`
    Payload map[string]any `json:"payload,omitempty"`
}

// Server exposes the hub over SSE and websocket endpoints.
type Server struct {
    Hub           *Hub
    TokenSecret   string
    TokenSkewSecs int

    // OnMessage receives inbound websocket frames. May be nil.
    OnMessage func(ctx context.Context, msg Message)
}

func NewServer(h *Hub, tokenSecret string) *Server {
    return &Server{Hub: h, TokenSecret: tokenSecret, TokenSkewSecs: 30}
}

// sseObserver writes events as `data: <json>` frames. One write runs at a
// time; a send whose ctx expires while another write is stuck is dropped.
type sseObserver struct {
    w       http.ResponseWriter
    rc      *http.ResponseController
    flusher http.Flusher
    sem     chan struct{}
    closed  atomic.Bool
}

func newSSEObserver(w http.ResponseWriter, f http.Flusher) *sseObserver {
    return &sseObserver{w: w, rc: http.NewResponseController(w), flusher: f, sem: make(chan struct{}, 1)}
}

func (o *sseObserver) Send(ctx context.Context, evt Event) error {
    b, err := json.Marshal(evt)
    if err != nil {
        return err
    }
    select {
    case o.sem <- struct{}{}:
    case <-ctx.Done():
        return ctx.Err()
    }
    defer func() { <-o.sem }()
    if o.closed.Load() {
        return errObserverClosed
    }
    if deadline, ok := ctx.Deadline(); ok {
        if err := o.rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
            return err
        }
        defer o.rc.SetWriteDeadline(time.Time{})
    }
    if _, err := fmt.Fprintf(o.w, "data: %s\n\n", b); err != nil {
        return err
    }
    o.flusher.Flush()
    return nil
}

// close stops further writes and waits out an in-flight one; the
// ResponseWriter is invalid once the handler returns.
func (o *sseObserver) close() {
    o.closed.Store(true)
    o.sem <- struct{}{}
    <-o.sem
}

func (s *Server) HandleSSE(w http.ResponseWriter, r *http.Request) {
    f, ok := w.(http.Flusher)
    if !ok {
        http.Error(w, "streaming unsupported", http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    w.WriteHeader(http.StatusOK)

    o := newSSEObserver(w, f)
    if err := o.Send(r.Context(), Event{Type: EventConnected}); err != nil {
        return
    }
    s.Hub.Subscribe(o)

    <-r.Context().Done()
    o.close()
    s.Hub.Unsubscribe(o)
}

type wsObserver struct {
    c *ws.Conn
}

func (o *wsObserver) Send(ctx context.Context, evt Event) error {
    return wsjson.Write(ctx, o.c, evt)
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
    if s.TokenSecret != "" {
        tok := r.URL.Query().Get("token")
        if tok == "" {
            http.Error(w, "missing token", http.StatusUnauthorized)
            return
        }
        if _, _, err := auth.ValidateObserverToken(s.TokenSecret, tok, auth.ObserverScope, time.Now(), s.TokenSkewSecs); err != nil {
            http.Error(w, "invalid token", http.StatusUnauthorized)
            return
        }
    }

    c, err := ws.Accept(w, r, nil)
    if err != nil {
        log.Printf("[hub] ws accept: %v", err)
        return
    }
    o := &wsObserver{c: c}
    ctx := r.Context()
    if err := o.Send(ctx, Event{Type: EventConnected}); err != nil {
        _ = c.Close(ws.StatusInternalError, "hello failed")
        return
    }
    s.Hub.Subscribe(o)

    for {
        typ, data, err := c.Read(ctx)
        if err != nil {
            break
        }
        if typ != ws.MessageText && typ != ws.MessageBinary {
            continue
        }
        var msg Message
        if err := json.Unmarshal(data, &msg); err != nil {
            log.Printf("[hub] ws message invalid: %v", err)
            continue
        }
        if s.OnMessage != nil {
            s.OnMessage(ctx, msg)
        }
    }
    s.Hub.Unsubscribe(o)
    _ = c.Close(ws.StatusNormalClosure, "done")
}
