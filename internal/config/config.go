package config

import (
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/spf13/viper"
)

type Config struct {
    Server struct {
        Host           string
        Port           string
        ExternalURL    string
        GRPCPort       string
        ObserverSecret string
    }
    Wait struct {
        Timeout      time.Duration
        PollInterval time.Duration
    }
    Sound struct {
        NotificationCmd string
        SpeechCmd       string
        SpeechRate      int
    }
    UI struct {
        Legacy    bool
        StaticDir string
    }
    Events struct {
        Max int
    }
    Debug bool
}

// Addr is the host:port the HTTP server listens on.
func (c Config) Addr() string { return c.Server.Host + ":" + c.Server.Port }

// BaseURL is what hook clients and the browser should use to reach the server.
func (c Config) BaseURL() string {
    if c.Server.ExternalURL != "" {
        return strings.TrimRight(c.Server.ExternalURL, "/")
    }
    return "http://" + c.Addr()
}

func Load() Config {
    v := viper.New()
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    // Defaults
    v.SetDefault("server.host", "localhost")
    v.SetDefault("server.port", 5111)
    v.SetDefault("server.grpc_port", 5112)

    v.SetDefault("wait.timeout_seconds", 60)
    v.SetDefault("wait.poll_interval_ms", 100)

    v.SetDefault("sound.notification_cmd", "afplay /System/Library/Sounds/Funk.aiff")
    v.SetDefault("sound.speech_cmd", "say")
    v.SetDefault("sound.speech_rate", 150)

    v.SetDefault("ui.legacy", false)
    v.SetDefault("ui.static_dir", "public")

    v.SetDefault("events.max", 200)
    v.SetDefault("debug", false)

    // Map envs
    v.BindEnv("server.host", "VOICE_HOOKS_HOST")
    v.BindEnv("server.port", "VOICE_HOOKS_PORT")
    v.BindEnv("server.external_url", "EXTERNAL_URL")
    v.BindEnv("server.grpc_port", "VOICE_HOOKS_GRPC_PORT")
    v.BindEnv("server.observer_token_secret", "VOICE_HOOKS_OBSERVER_SECRET")

    v.BindEnv("wait.timeout_seconds", "VOICE_HOOKS_WAIT_SECONDS")
    v.BindEnv("wait.poll_interval_ms", "VOICE_HOOKS_POLL_MS")

    v.BindEnv("sound.notification_cmd", "VOICE_HOOKS_SOUND_CMD")
    v.BindEnv("sound.speech_cmd", "VOICE_HOOKS_SPEECH_CMD")
    v.BindEnv("sound.speech_rate", "VOICE_HOOKS_SPEECH_RATE")

    v.BindEnv("ui.legacy", "VOICE_HOOKS_LEGACY_UI")
    v.BindEnv("ui.static_dir", "VOICE_HOOKS_STATIC_DIR")

    v.BindEnv("events.max", "VOICE_HOOKS_EVENTS_MAX")
    v.BindEnv("debug", "VOICE_HOOKS_DEBUG")

    var c Config
    c.Server.Host = v.GetString("server.host")
    c.Server.Port = toString(v.Get("server.port"))
    c.Server.ExternalURL = v.GetString("server.external_url")
    c.Server.GRPCPort = toString(v.Get("server.grpc_port"))
    c.Server.ObserverSecret = v.GetString("server.observer_token_secret")

    c.Wait.Timeout = time.Duration(v.GetInt("wait.timeout_seconds")) * time.Second
    c.Wait.PollInterval = time.Duration(v.GetInt("wait.poll_interval_ms")) * time.Millisecond

    c.Sound.NotificationCmd = v.GetString("sound.notification_cmd")
    c.Sound.SpeechCmd = v.GetString("sound.speech_cmd")
    c.Sound.SpeechRate = v.GetInt("sound.speech_rate")

    c.UI.Legacy = v.GetBool("ui.legacy")
    c.UI.StaticDir = v.GetString("ui.static_dir")

    c.Events.Max = v.GetInt("events.max")
    c.Debug = v.GetBool("debug")

    log.Printf("config loaded: addr=%s grpc_port=%s wait=%s debug=%v", c.Addr(), c.Server.GRPCPort, c.Wait.Timeout, c.Debug)
    return c
}

func toString(v any) string { return fmt.Sprint(v) }
