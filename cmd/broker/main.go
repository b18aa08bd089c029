// The broker accepts tasks over HTTP, resolves device credentials and the
// target channel, and forwards each task to a worker pool over zeromq.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/netgate-io/netgate/internal/api"
	"github.com/netgate-io/netgate/internal/broker/directory"
	"github.com/netgate-io/netgate/internal/broker/dispatcher"
	"github.com/netgate-io/netgate/internal/broker/registry"
	"github.com/netgate-io/netgate/internal/config"
	_ "github.com/netgate-io/netgate/internal/logs"
	"github.com/spf13/pflag"
)

func main() {
	config.SetupBrokerFlags()
	pflag.Parse()

	configFile, err := pflag.CommandLine.GetString("config")
	if err != nil {
		slog.Error("invalid config flag", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadBrokerConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ports, err := registry.LoadChannels(filepath.Join(cfg.ConfigDir, config.ChannelsFileName))
	if err != nil {
		slog.Error("failed to load channel table", "error", err)
		os.Exit(1)
	}
	reg := registry.New(ports, config.WorkerTTL)

	dir := directory.New(filepath.Join(cfg.ConfigDir, config.SnapshotFileName))
	if err := dir.Load(); err != nil {
		slog.Error("failed to load credential snapshot", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.InventoryURL != "" {
		interval := time.Duration(cfg.RefreshSeconds) * time.Second
		go dir.Refresh(ctx, cfg.InventoryURL, interval)
	}

	disp := dispatcher.New(reg, cfg.RendezvousPort, time.Duration(cfg.ReplyCeiling)*time.Second)
	if err := disp.Start(ctx); err != nil {
		slog.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}

	server := api.New(dir, reg, disp)
	if err := server.ListenAndServe(ctx, cfg.API.Address, cfg.API.Port); err != nil {
		slog.Error("http api failed", "error", err)
		os.Exit(1)
	}

	slog.Info("broker stopped")
}
