package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicehooks/agent/internal/sound"
	"voicehooks/agent/internal/types"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"-"`
	Detail  string        `json:"detail,omitempty"`
	Error   string        `json:"error,omitempty"`
	// Optional checks are reported but do not fail the overall status.
	Optional bool `json:"optional,omitempty"`
}

type checkResultJSON struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
}

// MarshalJSON reports Latency in whole milliseconds under latency_ms.
func (c CheckResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(checkResultJSON{
		Name:      c.Name,
		OK:        c.OK,
		LatencyMs: c.Latency.Milliseconds(),
		Detail:    c.Detail,
		Error:     c.Error,
		Optional:  c.Optional,
	})
}

func (c *CheckResult) UnmarshalJSON(b []byte) error {
	var v checkResultJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = CheckResult{
		Name:     v.Name,
		OK:       v.OK,
		Latency:  time.Duration(v.LatencyMs) * time.Millisecond,
		Detail:   v.Detail,
		Error:    v.Error,
		Optional: v.Optional,
	}
	return nil
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
			if c.Optional {
				mark = "-"
			}
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Detail != "" {
			s += fmt.Sprintf(" %s", c.Detail)
		}
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Deps are the live components inspected by CheckAll. Nil fields are skipped.
type Deps struct {
	Store interface {
		Counts() types.Counts
	}
	Observers interface {
		Count() int
	}
	ActiveWaits     func() int
	NotificationCmd string
	SpeechCmd       string
}

// CheckAll runs all health checks and returns combined status
func CheckAll(ctx context.Context, d Deps) HealthStatus {
	var checks []CheckResult
	if d.Store != nil {
		checks = append(checks, checkStore(d))
	}
	if d.Observers != nil {
		checks = append(checks, checkObservers(d))
	}
	checks = append(checks,
		checkCommand("notification_sound", d.NotificationCmd),
		checkCommand("system_voice", d.SpeechCmd),
	)

	allOK := true
	for _, c := range checks {
		if !c.OK && !c.Optional {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func checkStore(d Deps) CheckResult {
	start := time.Now()
	c := d.Store.Counts()
	detail := fmt.Sprintf("total=%d pending=%d delivered=%d", c.Total, c.Pending, c.Delivered)
	if d.ActiveWaits != nil {
		detail += fmt.Sprintf(" waiting=%d", d.ActiveWaits())
	}
	return CheckResult{Name: "utterance_store", OK: true, Latency: time.Since(start), Detail: detail}
}

func checkObservers(d Deps) CheckResult {
	start := time.Now()
	n := d.Observers.Count()
	return CheckResult{
		Name:     "observers",
		OK:       n > 0,
		Optional: true,
		Latency:  time.Since(start),
		Detail:   fmt.Sprintf("connected=%d", n),
	}
}

func checkCommand(name, cmdline string) CheckResult {
	start := time.Now()
	result := CheckResult{Name: name, Optional: true}
	if err := sound.Available(cmdline); err != nil {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result
	}
	result.OK = true
	result.Latency = time.Since(start)
	return result
}

// CheckRemote fetches the status of a running server from baseURL/healthz.
func CheckRemote(ctx context.Context, baseURL string) (HealthStatus, error) {
	url := strings.TrimRight(baseURL, "/") + "/healthz"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("request build failed: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return HealthStatus{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("decode: %w", err)
	}
	return hs, nil
}
