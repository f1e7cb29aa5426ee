package api

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "net/http"
    "path/filepath"
    "strconv"
    "time"

    "voicehooks/agent/internal/config"
    "voicehooks/agent/internal/events"
    "voicehooks/agent/internal/floor"
    "voicehooks/agent/internal/health"
    "voicehooks/agent/internal/hub"
    "voicehooks/agent/internal/speech"
    "voicehooks/agent/internal/state"
    "voicehooks/agent/internal/store"
    "voicehooks/agent/internal/types"
    "voicehooks/agent/internal/wait"
)

// Deps are the coordination components the handlers operate on.
type Deps struct {
    Store   *store.Store
    Prefs   *state.Preferences
    Gate    *floor.Gate
    Waiter  *wait.Coordinator
    Speaker *speech.Speaker
    Streams *hub.Server
    Trace   *events.Log
}

type Handlers struct {
    cfg config.Config
    Deps
}

func NewHandlers(cfg config.Config, d Deps) *Handlers {
    return &Handlers{cfg: cfg, Deps: d}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, map[string]any{"error": msg})
}

// decodeBody tolerates an empty body; hook clients often send none.
func decodeBody(r *http.Request, v any) error {
    if r.Body == nil || r.ContentLength == 0 {
        return nil
    }
    err := json.NewDecoder(r.Body).Decode(v)
    if errors.Is(err, io.EOF) {
        return nil
    }
    return err
}

func queryLimit(r *http.Request, def int) int {
    n, err := strconv.Atoi(r.URL.Query().Get("limit"))
    if err != nil || n <= 0 {
        return def
    }
    return n
}

// parseTimestamp accepts RFC3339 strings or epoch milliseconds.
func parseTimestamp(v any) (time.Time, error) {
    switch t := v.(type) {
    case nil:
        return time.Time{}, nil
    case string:
        if t == "" {
            return time.Time{}, nil
        }
        return time.Parse(time.RFC3339Nano, t)
    case float64:
        return time.UnixMilli(int64(t)), nil
    }
    return time.Time{}, fmt.Errorf("unsupported timestamp %v", v)
}

func (h *Handlers) HandleAddUtterance(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Text      string `json:"text"`
        Timestamp any    `json:"timestamp"`
    }
    if err := decodeBody(r, &body); err != nil {
        writeError(w, http.StatusBadRequest, "invalid JSON body")
        return
    }
    ts, err := parseTimestamp(body.Timestamp)
    if err != nil {
        writeError(w, http.StatusBadRequest, "invalid timestamp")
        return
    }
    u, err := h.Store.Add(body.Text, ts)
    if errors.Is(err, store.ErrEmptyText) {
        writeError(w, http.StatusBadRequest, "Text is required")
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "utterance": u})
}

func (h *Handlers) HandleListUtterances(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"utterances": h.Store.Recent(queryLimit(r, 10))})
}

func (h *Handlers) HandleConversation(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"messages": h.Store.RecentMessages(queryLimit(r, 50))})
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, h.Store.Counts())
}

func (h *Handlers) HandleHasPending(w http.ResponseWriter, r *http.Request) {
    n := h.Store.Counts().Pending
    writeJSON(w, http.StatusOK, map[string]any{"hasPending": n > 0, "pendingCount": n})
}

func (h *Handlers) HandleDequeue(w http.ResponseWriter, r *http.Request) {
    got := h.Store.DequeuePendingNewestFirst()
    if got == nil {
        got = []types.Dequeued{}
    }
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "utterances": got})
}

func (h *Handlers) HandleWait(w http.ResponseWriter, r *http.Request) {
    res, err := h.Waiter.Wait(r.Context())
    if err != nil {
        writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
        return
    }
    utts := res.Utterances
    if utts == nil {
        utts = []types.Utterance{}
    }
    body := map[string]any{
        "success":    res.Success,
        "utterances": utts,
        "waitTime":   res.WaitTime.Milliseconds(),
    }
    if res.Count > 0 {
        body["count"] = res.Count
    }
    if res.Message != "" {
        body["message"] = res.Message
    }
    writeJSON(w, http.StatusOK, body)
}

func (h *Handlers) HandleValidateAction(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Action string `json:"action"`
    }
    _ = decodeBody(r, &body)
    check, err := floor.ParseCheck(body.Action)
    if err != nil {
        writeError(w, http.StatusBadRequest, `Invalid action. Must be "tool-use" or "stop"`)
        return
    }
    writeJSON(w, http.StatusOK, h.Gate.Validate(check))
}

func (h *Handlers) HandleHook(w http.ResponseWriter, r *http.Request, name string) {
    action, err := floor.ParseAction(name)
    if err != nil {
        http.NotFound(w, r)
        return
    }
    writeJSON(w, http.StatusOK, h.Gate.Evaluate(r.Context(), action))
}

func (h *Handlers) HandleDeleteUtterance(w http.ResponseWriter, r *http.Request, id string) {
    if !h.Store.DeletePending(id) {
        writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Only pending messages can be deleted"})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Message deleted"})
}

func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
    n := h.Store.Clear()
    writeJSON(w, http.StatusOK, map[string]any{
        "success":      true,
        "message":      fmt.Sprintf("Cleared %d utterances", n),
        "clearedCount": n,
    })
}

func (h *Handlers) HandleVoicePreferences(w http.ResponseWriter, r *http.Request) {
    var body struct {
        VoiceResponsesEnabled bool `json:"voiceResponsesEnabled"`
    }
    if err := decodeBody(r, &body); err != nil {
        writeError(w, http.StatusBadRequest, "invalid JSON body")
        return
    }
    p := h.Prefs.SetVoiceResponses(body.VoiceResponsesEnabled)
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "preferences": p})
}

func (h *Handlers) HandleVoiceInputState(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Active bool `json:"active"`
    }
    if err := decodeBody(r, &body); err != nil {
        writeError(w, http.StatusBadRequest, "invalid JSON body")
        return
    }
    p := h.Prefs.SetVoiceInput(body.Active)
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "voiceInputActive": p.VoiceInputActive})
}

func (h *Handlers) HandleSpeak(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Text string `json:"text"`
    }
    _ = decodeBody(r, &body)
    n, err := h.Speaker.Speak(r.Context(), body.Text)
    switch {
    case errors.Is(err, store.ErrEmptyText):
        writeError(w, http.StatusBadRequest, "Text is required")
        return
    case errors.Is(err, speech.ErrVoiceResponsesDisabled):
        writeJSON(w, http.StatusBadRequest, map[string]any{
            "error":   "Voice responses are disabled",
            "message": "Cannot speak when voice responses are disabled",
        })
        return
    case err != nil:
        writeError(w, http.StatusInternalServerError, err.Error())
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "success":        true,
        "message":        "Text spoken successfully",
        "respondedCount": n,
    })
}

func (h *Handlers) HandleSpeakSystem(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Text string `json:"text"`
        Rate int    `json:"rate"`
    }
    _ = decodeBody(r, &body)
    err := h.Speaker.SpeakSystem(r.Context(), body.Text, body.Rate)
    if errors.Is(err, store.ErrEmptyText) {
        writeError(w, http.StatusBadRequest, "Text is required")
        return
    }
    if err != nil {
        writeJSON(w, http.StatusInternalServerError, map[string]any{
            "error":   "Failed to speak text via system voice",
            "details": err.Error(),
        })
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Text spoken successfully via system voice"})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"events": h.Trace.List()})
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
    hs := health.CheckAll(r.Context(), health.Deps{
        Store:           h.Store,
        Observers:       h.Streams.Hub,
        ActiveWaits:     h.Waiter.Active,
        NotificationCmd: h.cfg.Sound.NotificationCmd,
        SpeechCmd:       h.cfg.Sound.SpeechCmd,
    })
    status := http.StatusOK
    if !hs.OK {
        status = http.StatusServiceUnavailable
    }
    writeJSON(w, status, hs)
}

// HandlePage serves one of the browser front-ends from the static directory.
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request, file string) {
    path := filepath.Join(h.cfg.UI.StaticDir, file)
    log.Printf("[http] serving %s", file)
    http.ServeFile(w, r, path)
}

func (h *Handlers) indexFile() string {
    if h.cfg.UI.Legacy {
        return "legacy.html"
    }
    return "index.html"
}
