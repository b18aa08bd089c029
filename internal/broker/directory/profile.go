// Package directory owns the device credential store: profiles keyed by IP
// and hostname, the shared common defaults, the search grammar, the JSON
// snapshot, and the periodic refresh from an external inventory.
package directory

import (
	"strings"

	"github.com/netgate-io/netgate/internal/serializer"
)

// Profile holds the connection parameters of one device. Every field except
// IP is optional; blank fields mean "unset" and never overwrite good data
// during a merge.
type Profile struct {
	IP             string   `json:"ip,omitempty"`
	Hostname       string   `json:"hostname,omitempty"`
	Method         string   `json:"method,omitempty"`
	Port           int      `json:"port,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	Username       string   `json:"username,omitempty"`
	Password       string   `json:"password,omitempty"`
	EnablePassword string   `json:"enable_password,omitempty"`
	Community      string   `json:"community,omitempty"`
	Vendor         string   `json:"vendor,omitempty"`
	Platform       string   `json:"platform,omitempty"`
	Tags           []string `json:"tag,omitempty"`
}

// merge returns p with every non-blank field of overlay applied on top.
func (p Profile) merge(overlay Profile) Profile {
	if overlay.IP != "" {
		p.IP = overlay.IP
	}
	if overlay.Hostname != "" {
		p.Hostname = overlay.Hostname
	}
	if overlay.Method != "" {
		p.Method = overlay.Method
	}
	if overlay.Port != 0 {
		p.Port = overlay.Port
	}
	if overlay.Timeout != 0 {
		p.Timeout = overlay.Timeout
	}
	if overlay.Username != "" {
		p.Username = overlay.Username
	}
	if overlay.Password != "" {
		p.Password = overlay.Password
	}
	if overlay.EnablePassword != "" {
		p.EnablePassword = overlay.EnablePassword
	}
	if overlay.Community != "" {
		p.Community = overlay.Community
	}
	if overlay.Vendor != "" {
		p.Vendor = overlay.Vendor
	}
	if overlay.Platform != "" {
		p.Platform = overlay.Platform
	}
	if len(overlay.Tags) > 0 {
		p.Tags = overlay.Tags
	}
	return p
}

// Map converts the profile to the loose key/value form used when a request
// is merged on top of stored fields. Blank fields are omitted.
func (p Profile) Map() map[string]any {
	data, err := serializer.JSON.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := serializer.JSON.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// matches reports whether the lower-cased term appears in the hostname,
// vendor, platform or tag list.
func (p Profile) matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if strings.Contains(strings.ToLower(p.Hostname), term) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Vendor), term) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Platform), term) {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(p.Tags, " ")), term)
}
