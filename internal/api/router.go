package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func method(m string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

func NewRouter(h *Handlers) http.Handler {
    mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/potential-utterances", method(http.MethodPost, h.HandleAddUtterance))
	mux.HandleFunc("/api/utterances/status", method(http.MethodGet, h.HandleStatus))
	mux.HandleFunc("/api/conversation", method(http.MethodGet, h.HandleConversation))
	mux.HandleFunc("/api/has-pending-utterances", method(http.MethodGet, h.HandleHasPending))
	mux.HandleFunc("/api/dequeue-utterances", method(http.MethodPost, h.HandleDequeue))
	mux.HandleFunc("/api/wait-for-utterances", method(http.MethodPost, h.HandleWait))
	mux.HandleFunc("/api/validate-action", method(http.MethodPost, h.HandleValidateAction))
	mux.HandleFunc("/api/voice-preferences", method(http.MethodPost, h.HandleVoicePreferences))
	mux.HandleFunc("/api/voice-input-state", method(http.MethodPost, h.HandleVoiceInputState))
	mux.HandleFunc("/api/speak", method(http.MethodPost, h.HandleSpeak))
	mux.HandleFunc("/api/speak-system", method(http.MethodPost, h.HandleSpeakSystem))
	mux.HandleFunc("/api/events", method(http.MethodGet, h.HandleListEvents))
	mux.HandleFunc("/api/tts-events", method(http.MethodGet, h.Streams.HandleSSE))
	mux.HandleFunc("/api/ws", h.Streams.HandleWS)

	mux.HandleFunc("/api/utterances", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListUtterances(w, r)
		case http.MethodDelete:
			h.HandleClear(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

    mux.HandleFunc("/api/utterances/", func(w http.ResponseWriter, r *http.Request) {
		// /api/utterances/{id}
		id := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/api/utterances/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleDeleteUtterance(w, r, id)
	})

    mux.HandleFunc("/api/hooks/", func(w http.ResponseWriter, r *http.Request) {
		// /api/hooks/stop | pre-speak | post-tool | pre-tool
		name := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/api/hooks/")
		switch name {
		case "stop", "pre-speak", "post-tool", "pre-tool":
		default:
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleHook(w, r, name)
	})

	mux.HandleFunc("/legacy", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		h.HandlePage(w, r, "legacy.html")
	}))
	mux.HandleFunc("/messenger", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		h.HandlePage(w, r, "index.html")
	}))

	static := http.FileServer(http.Dir(h.cfg.UI.StaticDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			h.HandlePage(w, r, h.indexFile())
			return
		}
		static.ServeHTTP(w, r)
	})

    return mux
}
