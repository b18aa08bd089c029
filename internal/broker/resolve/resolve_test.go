package resolve

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/netgate-io/netgate/internal/broker/directory"
)

// stubChecker marks a fixed set of channels as having live workers.
type stubChecker map[string]bool

func (s stubChecker) Active(channel string) bool { return s[channel] }

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	d := directory.New(filepath.Join(t.TempDir(), "device_credential.json"))
	if err := d.SetCommon(directory.Profile{Username: "common-user", Password: "common-pw", Community: "public"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Upsert(directory.Profile{
		IP: "10.0.0.1", Hostname: "sw1", Vendor: "Huawei", Username: "stored-user", Password: "stored-pw",
	}); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestResolveValidation(t *testing.T) {
	d := testDirectory(t)
	reg := stubChecker{"cisco": true, "snmp": true}

	tests := map[string]struct {
		category string
		params   map[string]any
		wantErr  error
	}{
		"missing commands": {
			category: "cli",
			params:   map[string]any{"ip": "10.0.0.1"},
			wantErr:  ErrNoCommands,
		},
		"empty command list": {
			category: "cli",
			params:   map[string]any{"ip": "10.0.0.1", "commands": []any{}},
			wantErr:  ErrNoCommands,
		},
		"missing target": {
			category: "cli",
			params:   map[string]any{"commands": []any{"show version"}},
			wantErr:  ErrNoTarget,
		},
		"hostname without stored ip": {
			category: "cli",
			params:   map[string]any{"hostname": "unknown-device", "commands": []any{"show version"}},
			wantErr:  ErrNoIP,
		},
		"inactive channel": {
			category: "cli",
			params:   map[string]any{"ip": "10.0.0.9", "channel": "f5", "commands": []any{"show sys"}},
			wantErr:  ErrChannelUnknown,
		},
		"unknown category": {
			category: "netconf",
			params:   map[string]any{"ip": "10.0.0.1", "commands": []any{"get"}},
			wantErr:  ErrBadCategory,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Resolve(tt.category, tt.params, d, reg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveChannelSelection(t *testing.T) {
	d := testDirectory(t)
	reg := stubChecker{"cisco": true, "huawei": true, "f5": true, "snmp": true}

	tests := map[string]struct {
		params      map[string]any
		wantChannel string
	}{
		"explicit channel wins": {
			params:      map[string]any{"ip": "10.0.0.1", "channel": "F5", "commands": []any{"show sys"}},
			wantChannel: "f5",
		},
		"vendor from stored profile": {
			params:      map[string]any{"ip": "10.0.0.1", "commands": []any{"display version"}},
			wantChannel: "huawei",
		},
		"default cisco": {
			params:      map[string]any{"ip": "10.0.0.9", "commands": []any{"show version"}},
			wantChannel: "cisco",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, channel, err := Resolve("cli", tt.params, d, reg)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if channel != tt.wantChannel {
				t.Errorf("channel = %q, want %q", channel, tt.wantChannel)
			}
		})
	}
}

func TestResolveRequestWinsOverStored(t *testing.T) {
	d := testDirectory(t)
	reg := stubChecker{"huawei": true}

	merged, _, err := Resolve("cli", map[string]any{
		"ip":       "10.0.0.1",
		"username": "override-user",
		"password": "override-pw",
		"commands": []any{"display version"},
	}, d, reg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if merged["username"] != "override-user" {
		t.Errorf("username = %v, request field must win", merged["username"])
	}
	if merged["hostname"] != "sw1" {
		t.Errorf("hostname = %v, stored field must survive", merged["hostname"])
	}
}

func TestResolveCredentialFallback(t *testing.T) {
	d := testDirectory(t)
	reg := stubChecker{"cisco": true}

	// Unknown device, no password in the request: common credentials apply.
	merged, _, err := Resolve("cli", map[string]any{
		"ip":       "10.0.0.9",
		"commands": []any{"show version"},
	}, d, reg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if merged["username"] != "common-user" || merged["password"] != "common-pw" {
		t.Errorf("credentials = %v/%v, want common fallback", merged["username"], merged["password"])
	}
}

func TestResolveSNMP(t *testing.T) {
	d := testDirectory(t)
	reg := stubChecker{"snmp": true}

	merged, channel, err := Resolve("snmp", map[string]any{
		"ip":       "10.0.0.9",
		"commands": map[string]any{"operate": "get", "oids": []any{"1.3.6.1.2.1.1.5.0"}},
	}, d, reg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if channel != "snmp" {
		t.Errorf("channel = %q, want snmp", channel)
	}
	if merged["community"] != "public" {
		t.Errorf("community = %v, want common fallback", merged["community"])
	}
}
