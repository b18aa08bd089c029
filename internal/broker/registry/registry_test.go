package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeChannels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadChannels(t *testing.T) {
	path := writeChannels(t, `
start_port: 16010
channels:
  - [test]
  - [snmp]
  - [cisco, brocade]
  - [huawei, h3c]
`)

	got, err := LoadChannels(path)
	if err != nil {
		t.Fatalf("LoadChannels() error = %v", err)
	}

	want := map[string]int{
		"test":    16010,
		"snmp":    16011,
		"cisco":   16012,
		"brocade": 16012,
		"huawei":  16013,
		"h3c":     16013,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("port table mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadChannelsRejectsIncomplete(t *testing.T) {
	tests := map[string]string{
		"missing start_port": "channels:\n  - [test]\n",
		"missing channels":   "start_port: 16010\n",
		"not yaml":           "{{{",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadChannels(writeChannels(t, content)); err == nil {
				t.Error("LoadChannels() accepted an invalid table")
			}
		})
	}
}

func TestAnnounceAndActive(t *testing.T) {
	r := New(map[string]int{"cisco": 16012, "brocade": 16012}, time.Minute)

	if r.Active("cisco") {
		t.Error("channel active before any announce")
	}

	port, err := r.Announce("cisco", "worker-1")
	if err != nil {
		t.Fatalf("Announce() error = %v", err)
	}
	if port != 16012 {
		t.Errorf("Announce() port = %d, want 16012", port)
	}

	if !r.Active("cisco") {
		t.Error("channel inactive after announce")
	}
	// Channels sharing a port do not share liveness.
	if r.Active("brocade") {
		t.Error("sibling channel reported active")
	}

	if _, err := r.Announce("juniper", "worker-2"); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Announce() error = %v, want ErrUnknownChannel", err)
	}
}

func TestExpire(t *testing.T) {
	r := New(map[string]int{"cisco": 16012}, time.Millisecond)

	if _, err := r.Announce("cisco", "worker-1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if r.Active("cisco") {
		t.Error("channel still active past the TTL")
	}
	if removed := r.Expire(); removed != 1 {
		t.Errorf("Expire() removed %d workers, want 1", removed)
	}
	if got := r.ActiveChannels(); len(got) != 0 {
		t.Errorf("ActiveChannels() = %v, want none", got)
	}
}

func TestPorts(t *testing.T) {
	r := New(map[string]int{"cisco": 16012, "brocade": 16012, "snmp": 16011}, time.Minute)

	want := []int{16011, 16012}
	if diff := cmp.Diff(want, r.Ports()); diff != "" {
		t.Errorf("Ports() mismatch (-want +got):\n%s", diff)
	}
}
