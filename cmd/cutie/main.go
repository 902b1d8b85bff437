package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nocturnalbeast/cutie/internal/cli"
)

var (
	version = "version" // Application version
	commit  = "commit"  // Git commit hash
	date    = "date"    // Build date
)

func main() {
	// Create a context that listens for OS interrupt or termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick up ALM credentials and overrides from a local .env, if present
	_ = godotenv.Load()

	if err := cli.RunApp(ctx, os.Args, fmt.Sprintf("%s (%s) %s", version, commit, date)); err != nil {
		slog.Error("export failed", "error", err)
		stop()
		os.Exit(1)
	}
}
