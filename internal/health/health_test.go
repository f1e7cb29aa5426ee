package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voicehooks/agent/internal/types"
)

type fixedCounts struct{ c types.Counts }

func (f fixedCounts) Counts() types.Counts { return f.c }

type fixedObservers int

func (f fixedObservers) Count() int { return int(f) }

func TestCheckAllOptionalFailuresDoNotFail(t *testing.T) {
	hs := CheckAll(context.Background(), Deps{
		Store:           fixedCounts{types.Counts{Total: 3, Pending: 1, Delivered: 1}},
		Observers:       fixedObservers(0),
		ActiveWaits:     func() int { return 1 },
		NotificationCmd: "voicehooks-missing-player",
		SpeechCmd:       "",
	})
	if !hs.OK {
		t.Fatalf("optional failures must not fail health: %+v", hs)
	}
	if len(hs.Checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(hs.Checks))
	}
	if hs.Checks[0].Detail != "total=3 pending=1 delivered=1 waiting=1" {
		t.Fatalf("unexpected store detail %q", hs.Checks[0].Detail)
	}
	out := hs.String()
	if !strings.HasPrefix(out, "Health: OK\n") || !strings.Contains(out, "- observers") {
		t.Fatalf("unexpected rendering:\n%s", out)
	}
}

func TestCheckRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthStatus{OK: true, Checks: []CheckResult{{Name: "utterance_store", OK: true}}})
	}))
	defer srv.Close()

	hs, err := CheckRemote(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("check remote: %v", err)
	}
	if !hs.OK || len(hs.Checks) != 1 {
		t.Fatalf("unexpected status %+v", hs)
	}
}

func TestCheckRemoteUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer srv.Close()
	if _, err := CheckRemote(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCheckResultLatencyIsMilliseconds(t *testing.T) {
	b, err := json.Marshal(CheckResult{Name: "utterance_store", OK: true, Latency: 1500 * time.Millisecond})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["latency_ms"] != float64(1500) {
		t.Fatalf("expected latency_ms 1500, got %v in %s", raw["latency_ms"], b)
	}

	var back CheckResult
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Latency != 1500*time.Millisecond || back.Name != "utterance_store" || !back.OK {
		t.Fatalf("unexpected round trip %+v", back)
	}
}
