package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/bdvlabs/autopilot/cli"
)

func main() {
	// Credentials may live in a local .env during development.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
