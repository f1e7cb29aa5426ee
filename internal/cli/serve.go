package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"voicehooks/agent/internal/config"
	"voicehooks/agent/internal/server"
	"voicehooks/agent/internal/sound"
)

var (
	servePort     string
	serveLegacyUI bool
	serveDebug    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("legacy-ui") {
			cfg.UI.Legacy = serveLegacyUI
		}
		if cmd.Flags().Changed("debug") {
			cfg.Debug = serveDebug
		}

		var player sound.Player = sound.Nop{}
		if err := sound.Available(cfg.Sound.NotificationCmd); err == nil {
			player = sound.NewCommandPlayer(cfg.Sound.NotificationCmd)
		} else {
			log.Printf("[sound] notification disabled: %v", err)
		}
		var voice sound.Voice = sound.Nop{}
		if err := sound.Available(cfg.Sound.SpeechCmd); err == nil {
			voice = sound.NewCommandVoice(cfg.Sound.SpeechCmd)
		} else {
			log.Printf("[sound] system voice disabled: %v", err)
		}

		app := server.New(cfg, player, voice)

		printHeader("")
		fmt.Printf("Listening: %s\n", color.GreenString(cfg.BaseURL()))
		if cfg.Server.ObserverSecret != "" {
			fmt.Println("Observers: token required for /api/ws")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port (overrides VOICE_HOOKS_PORT)")
	serveCmd.Flags().BoolVar(&serveLegacyUI, "legacy-ui", false, "serve the legacy browser UI at /")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable verbose coordination logs")
}
