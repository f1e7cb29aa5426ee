package config

import (
    "os"
    "testing"
    "time"
)

func TestLoadDefaults(t *testing.T) {
    // Clear relevant envs
    for _, k := range []string{
        "VOICE_HOOKS_HOST", "VOICE_HOOKS_PORT", "EXTERNAL_URL", "VOICE_HOOKS_GRPC_PORT",
        "VOICE_HOOKS_WAIT_SECONDS", "VOICE_HOOKS_POLL_MS", "VOICE_HOOKS_LEGACY_UI", "VOICE_HOOKS_DEBUG",
    } {
        os.Unsetenv(k)
    }

    c := Load()

    if c.Server.Port != "5111" {
        t.Fatalf("expected default port 5111, got %q", c.Server.Port)
    }
    if c.Addr() != "localhost:5111" {
        t.Fatalf("unexpected addr %q", c.Addr())
    }
    if c.BaseURL() != "http://localhost:5111" {
        t.Fatalf("unexpected base url %q", c.BaseURL())
    }
    if c.Wait.Timeout != 60*time.Second || c.Wait.PollInterval != 100*time.Millisecond {
        t.Fatalf("unexpected wait defaults %s %s", c.Wait.Timeout, c.Wait.PollInterval)
    }
    if c.Sound.SpeechRate != 150 || c.Sound.SpeechCmd != "say" {
        t.Fatalf("unexpected sound defaults %+v", c.Sound)
    }
    if c.UI.Legacy || c.Debug {
        t.Fatalf("legacy ui and debug should default off")
    }
    if c.Events.Max != 200 {
        t.Fatalf("expected events max 200, got %d", c.Events.Max)
    }
}

func TestLoadFromEnv(t *testing.T) {
    t.Setenv("VOICE_HOOKS_PORT", "6000")
    t.Setenv("EXTERNAL_URL", "https://voice.example.test/")
    t.Setenv("VOICE_HOOKS_WAIT_SECONDS", "5")
    t.Setenv("VOICE_HOOKS_LEGACY_UI", "true")
    t.Setenv("VOICE_HOOKS_DEBUG", "true")

    c := Load()

    if c.Server.Port != "6000" {
        t.Fatalf("expected port 6000, got %q", c.Server.Port)
    }
    if c.BaseURL() != "https://voice.example.test" {
        t.Fatalf("unexpected base url %q", c.BaseURL())
    }
    if c.Wait.Timeout != 5*time.Second {
        t.Fatalf("expected 5s timeout, got %s", c.Wait.Timeout)
    }
    if !c.UI.Legacy || !c.Debug {
        t.Fatalf("expected legacy ui and debug enabled")
    }
}
