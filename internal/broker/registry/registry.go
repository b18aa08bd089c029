// Package registry maps channel names to worker-pool ports and tracks which
// channels currently have live workers. The port table is static, loaded at
// startup; membership changes only on worker announces and TTL expiry.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
)

var ErrUnknownChannel = errors.New("unknown channel")

// channelsFile is the static configuration: the first port to hand out and
// the channel groups. Channels in one group share a port, so one worker pool
// can serve several closely-related vendor names.
type channelsFile struct {
	StartPort int        `yaml:"start_port"`
	Channels  [][]string `yaml:"channels"`
}

// LoadChannels parses the channel table. Group i listens on start_port+i.
func LoadChannels(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read channel table: %w", err)
	}

	var file channelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse channel table: %w", err)
	}
	if file.StartPort == 0 || len(file.Channels) == 0 {
		return nil, errors.New("channel table must define start_port and channels")
	}

	ports := make(map[string]int)
	for i, group := range file.Channels {
		for _, c := range group {
			ports[c] = file.StartPort + i
		}
	}
	return ports, nil
}

// Registry is safe for concurrent reads with infrequent writes.
type Registry struct {
	mutex   sync.RWMutex
	ports   map[string]int
	workers map[string]map[string]time.Time // channel -> worker ID -> last announce
	ttl     time.Duration
}

func New(ports map[string]int, ttl time.Duration) *Registry {
	return &Registry{
		ports:   ports,
		workers: make(map[string]map[string]time.Time),
		ttl:     ttl,
	}
}

// Port returns the transport port of a channel.
func (r *Registry) Port(channel string) (int, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.ports[channel]
	return p, ok
}

// Ports returns the distinct ports of the table, sorted.
func (r *Registry) Ports() []int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := make(map[int]bool)
	var out []int
	for _, p := range r.ports {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// Announce records a worker's rendezvous for its channel and returns the
// port the worker must connect to. Announces double as heartbeats.
func (r *Registry) Announce(channel, workerID string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	port, ok := r.ports[channel]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	if r.workers[channel] == nil {
		r.workers[channel] = make(map[string]time.Time)
	}
	r.workers[channel][workerID] = time.Now()
	return port, nil
}

// Active reports whether a channel has at least one worker announced within
// the TTL.
func (r *Registry) Active(channel string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, seen := range r.workers[channel] {
		if time.Since(seen) <= r.ttl {
			return true
		}
	}
	return false
}

// ActiveChannels lists channels with live workers, sorted.
func (r *Registry) ActiveChannels() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []string
	for channel, members := range r.workers {
		for _, seen := range members {
			if time.Since(seen) <= r.ttl {
				out = append(out, channel)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Expire drops workers that stopped announcing. Returns how many were
// removed.
func (r *Registry) Expire() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := 0
	for channel, members := range r.workers {
		for id, seen := range members {
			if time.Since(seen) > r.ttl {
				delete(members, id)
				removed++
				slog.Info("worker expired", "channel", channel, "worker", id)
			}
		}
		if len(members) == 0 {
			delete(r.workers, channel)
		}
	}
	return removed
}
