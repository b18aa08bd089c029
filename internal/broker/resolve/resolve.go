// Package resolve turns a loose sync request into a routable task: it
// validates the request, merges it over the stored device profile and the
// common defaults, and picks the channel whose worker pool must run it.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/netgate-io/netgate/internal/broker/directory"
	"github.com/netgate-io/netgate/internal/task"
	"github.com/spf13/cast"
)

// Validation and resolution failures, surfaced to the caller immediately.
var (
	ErrNoCommands     = errors.New("no valid commands")
	ErrNoTarget       = errors.New("no valid ip or hostname")
	ErrNoIP           = errors.New("ip address not found")
	ErrChannelUnknown = errors.New("not supported channel")
	ErrBadCategory    = errors.New("not supported category")
)

// ActiveChecker reports whether a channel currently has connected workers.
type ActiveChecker interface {
	Active(channel string) bool
}

// Resolve implements the request resolution order: validate commands and
// target, merge request fields over the stored profile (request wins), fall
// back to common credentials per category, select the channel, and reject
// channels without live workers. It returns the merged task payload and the
// chosen channel.
func Resolve(category string, params map[string]any, dir *directory.Directory, reg ActiveChecker) (map[string]any, string, error) {
	if empty(params["commands"]) {
		return nil, "", ErrNoCommands
	}

	ip := cast.ToString(params["ip"])
	hostname := cast.ToString(params["hostname"])
	if ip == "" && hostname == "" {
		return nil, "", ErrNoTarget
	}

	key := ip
	if key == "" {
		key = hostname
	}

	// Stored profile (over common defaults) as the base, request fields on
	// top. An unknown device uses the request fields verbatim.
	var merged map[string]any
	if stored, found := dir.LookupMerged(key); found {
		merged = stored.Map()
	} else {
		merged = make(map[string]any, len(params))
	}
	for k, v := range params {
		merged[k] = v
	}

	if cast.ToString(merged["ip"]) == "" {
		return nil, "", fmt.Errorf("%w for %s", ErrNoIP, hostname)
	}

	common := dir.Common()

	var channel string
	switch category {
	case task.CategoryCLI:
		if cast.ToString(merged["password"]) == "" {
			merged["username"] = common.Username
			merged["password"] = common.Password
			merged["enable_password"] = common.EnablePassword
		}
		channel = cast.ToString(params["channel"])
		if channel == "" {
			channel = cast.ToString(merged["vendor"])
		}
		if channel == "" {
			channel = "cisco"
		}
		channel = strings.ToLower(channel)

	case task.CategorySNMP:
		if cast.ToString(merged["community"]) == "" {
			merged["community"] = common.Community
		}
		channel = "snmp"

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrBadCategory, category)
	}

	if !reg.Active(channel) {
		return nil, "", fmt.Errorf("%w: %s", ErrChannelUnknown, channel)
	}

	return merged, channel, nil
}

func empty(commands any) bool {
	switch v := commands.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	default:
		return false
	}
}
