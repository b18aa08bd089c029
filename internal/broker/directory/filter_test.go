package directory

import (
	"errors"
	"path/filepath"
	"testing"
)

func queryDirectory(t *testing.T) *Directory {
	t.Helper()
	d := New(filepath.Join(t.TempDir(), "device_credential.json"))
	devices := []Profile{
		{IP: "10.0.0.1", Hostname: "core-sw-1", Vendor: "cisco", Platform: "nexus", Tags: []string{"dc1"}},
		{IP: "10.0.0.2", Hostname: "agg-rt-1", Vendor: "cisco", Platform: "ios-xr", Tags: []string{"dc2"}},
		{IP: "10.0.0.3", Hostname: "edge-fw-1", Vendor: "huawei", Platform: "vrp", Tags: []string{"dc1"}},
	}
	for _, p := range devices {
		if err := d.Upsert(p); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestQuery(t *testing.T) {
	tests := map[string]struct {
		query string
		want  []string // expected IPs, in directory order
	}{
		"empty matches all":   {query: "", want: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}},
		"substring on vendor": {query: "cisco", want: []string{"10.0.0.1", "10.0.0.2"}},
		"substring on tag":    {query: "dc2", want: []string{"10.0.0.2"}},
		"case insensitive":    {query: "CISCO", want: []string{"10.0.0.1", "10.0.0.2"}},
		"union":               {query: "nexus|huawei", want: []string{"10.0.0.1", "10.0.0.3"}},
		"union deduplicates":  {query: "cisco|core", want: []string{"10.0.0.1", "10.0.0.2"}},
		"intersection":        {query: "cisco&dc1", want: []string{"10.0.0.1"}},
		"intersection empty":  {query: "huawei&nexus", want: nil},
		"no match":            {query: "juniper", want: nil},
	}

	d := queryDirectory(t)
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := d.Query(tt.query)
			if err != nil {
				t.Fatalf("Query(%q) error = %v", tt.query, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Query(%q) returned %d devices, want %d", tt.query, len(got), len(tt.want))
			}
			for i, p := range got {
				if p.IP != tt.want[i] {
					t.Errorf("Query(%q)[%d].IP = %q, want %q", tt.query, i, p.IP, tt.want[i])
				}
			}
		})
	}
}

func TestQueryMixedOperators(t *testing.T) {
	d := queryDirectory(t)
	_, err := d.Query("cisco&dc1|huawei")
	if !errors.Is(err, ErrMixedOperators) {
		t.Errorf("Query() error = %v, want ErrMixedOperators", err)
	}
}
