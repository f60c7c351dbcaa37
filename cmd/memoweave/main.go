package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/memoweave/memoweave/internal/cli"
)

func main() {
	// Optional; API keys may come from the environment directly.
	_ = godotenv.Load()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
