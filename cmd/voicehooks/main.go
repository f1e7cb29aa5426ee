package main

import (
	"os"

	"github.com/joho/godotenv"

	"voicehooks/agent/internal/cli"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
