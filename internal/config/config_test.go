package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadBrokerConfigDefaults(t *testing.T) {
	cfg, err := LoadBrokerConfig("")
	if err != nil {
		t.Fatalf("LoadBrokerConfig() error = %v", err)
	}

	if cfg.RendezvousPort != DefaultRendezvousPort {
		t.Errorf("RendezvousPort = %d, want %d", cfg.RendezvousPort, DefaultRendezvousPort)
	}
	if cfg.ReplyCeiling != int(DefaultReplyCeiling.Seconds()) {
		t.Errorf("ReplyCeiling = %d, want %d", cfg.ReplyCeiling, int(DefaultReplyCeiling.Seconds()))
	}
	if cfg.API.Port != DefaultAPIPort {
		t.Errorf("API.Port = %q, want %q", cfg.API.Port, DefaultAPIPort)
	}
}

func TestLoadBrokerConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := "rendezvous-port: 17000\napi-port: \"9000\"\n"
	if err := os.WriteFile(filepath.Join(dir, "broker.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	// The config flag names the file without its extension.
	cfg, err := LoadBrokerConfig(filepath.Join(dir, "broker"))
	if err != nil {
		t.Fatalf("LoadBrokerConfig() error = %v", err)
	}

	if cfg.RendezvousPort != 17000 {
		t.Errorf("RendezvousPort = %d, want 17000", cfg.RendezvousPort)
	}
	if cfg.API.Port != "9000" {
		t.Errorf("API.Port = %q, want 9000", cfg.API.Port)
	}
}

func TestLoadWorkerConfigRequiresChannel(t *testing.T) {
	if _, err := LoadWorkerConfig(""); err == nil {
		t.Error("LoadWorkerConfig() accepted a missing channel")
	}
}

func TestLoadWorkerConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.yaml")
	content := "channel: cisco\nthreads: 4\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWorkerConfig(path)
	if err != nil {
		t.Fatalf("LoadWorkerConfig() error = %v", err)
	}

	if cfg.Channel != "cisco" {
		t.Errorf("Channel = %q, want cisco", cfg.Channel)
	}
	if cfg.Threads != 4 {
		t.Errorf("Threads = %d, want 4", cfg.Threads)
	}

	hostname, err := os.Hostname()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(cfg.WorkerID, hostname+"-") {
		t.Errorf("WorkerID = %q, want hostname-pid default", cfg.WorkerID)
	}
}
