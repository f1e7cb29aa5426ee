package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"voicehooks/agent/internal/auth"
	"voicehooks/agent/internal/config"
	"voicehooks/agent/internal/health"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("VoiceHooks Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var healthServer string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		hs, err := health.CheckRemote(ctx, baseURL(healthServer))
		if err != nil {
			fmt.Println(color.RedString("Server: ✗ %v", err))
			return err
		}
		if hs.OK {
			color.New(color.FgGreen).Print(hs.String())
			return nil
		}
		color.New(color.FgRed).Print(hs.String())
		return errors.New("coordinator unhealthy")
	},
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an observer token for the websocket endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := config.Load().Server.ObserverSecret
		tok, err := auth.GenerateObserverToken(secret, auth.ObserverScope, time.Now().Add(tokenTTL).Unix())
		if err != nil {
			return fmt.Errorf("mint token (is VOICE_HOOKS_OBSERVER_SECRET set?): %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthServer, "server", "", "coordinator base URL (default from config)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
}
