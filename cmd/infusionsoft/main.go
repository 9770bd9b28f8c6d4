package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/florianilch/infusionsoft/cmd/infusionsoft/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// Context cancellation on SIGINT/SIGTERM propagates to in-flight requests and the callback server.
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := commands.Execute(ctx, os.Args, version, commit); err != nil {
		slog.ErrorContext(ctx, "Command failed", "error", err)
		os.Exit(1)
	}
}
