// A worker serves one channel: it learns its task port from the broker's
// rendezvous socket and runs device sessions for every task it receives.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/netgate-io/netgate/internal/config"
	_ "github.com/netgate-io/netgate/internal/logs"
	"github.com/netgate-io/netgate/internal/worker"
	"github.com/spf13/pflag"
)

func main() {
	config.SetupWorkerFlags()
	pflag.Parse()

	configFile, err := pflag.CommandLine.GetString("config")
	if err != nil {
		slog.Error("invalid config flag", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadWorkerConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.New(cfg).Run(ctx); err != nil {
		slog.Error("worker failed", "channel", cfg.Channel, "error", err)
		os.Exit(1)
	}

	slog.Info("worker stopped", "channel", cfg.Channel)
}
