package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"sfo_flights/internal/cli"
)

const (
	exitSuccess = 0
	exitFail    = 1
)

func main() {
	// A .env file is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Export failed", "error", err)
		os.Exit(exitFail)
	}
	os.Exit(exitSuccess)
}
