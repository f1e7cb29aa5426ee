package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"voicehooks/agent/internal/config"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X voicehooks/agent/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		" __   __    _          _   _             _\n" +
		" \\ \\ / /__ (_) __ ___ | | | | ___   ___ | | _____\n" +
		"  \\ V / _ \\| |/ __/ _ \\| |_| |/ _ \\ / _ \\| |/ / __|\n" +
		"   | | (_) | | (_|  __/|  _  | (_) | (_) |   <\\__ \\\n" +
		"   |_|\\___/|_|\\___\\___||_| |_|\\___/ \\___/|_|\\_\\___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "voicehooks",
	Short: "Voice turn-taking coordinator for agent hooks",
	Long:  color.CyanString(logo) + "\nQueues operator speech, gates agent actions and waits for new input.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(healthCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

// baseURL resolves the server address for client subcommands.
func baseURL(override string) string {
	if override != "" {
		return override
	}
	return config.Load().BaseURL()
}
