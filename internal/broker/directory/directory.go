package directory

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/netgate-io/netgate/internal/serializer"
)

var ErrNoIP = errors.New("no ip info")
var ErrNotFound = errors.New("device not found")

// snapshot is the persisted JSON document: the common defaults plus every
// device profile, sorted by IP.
type snapshot struct {
	Common  Profile   `json:"common"`
	Devices []Profile `json:"devices"`
}

// Directory is the in-memory credential store. Profiles are reachable by IP
// and by hostname; mutations are serialized against concurrent readers and
// written through to the snapshot file before the call returns.
type Directory struct {
	mutex        sync.RWMutex
	byKey        map[string]*Profile
	devices      []*Profile
	common       Profile
	snapshotPath string
}

func New(snapshotPath string) *Directory {
	return &Directory{
		byKey:        make(map[string]*Profile),
		snapshotPath: snapshotPath,
		common:       Profile{Method: "ssh", Platform: "cisco"},
	}
}

// Load reads the last snapshot from disk. A missing file is not an error:
// the directory simply starts empty.
func (d *Directory) Load() error {
	data, err := os.ReadFile(d.snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to read snapshot: %w", err)
	}

	var snap snapshot
	if err := serializer.JSON.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unable to parse snapshot: %w", err)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.common = d.common.merge(snap.Common)
	d.replaceLocked(snap.Devices)
	return nil
}

// Lookup finds a profile by IP or hostname.
func (d *Directory) Lookup(id string) (Profile, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	p, ok := d.byKey[id]
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// LookupMerged returns the stored profile overlaid on the common defaults,
// or just the common defaults when the device is unknown.
func (d *Directory) LookupMerged(id string) (Profile, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	p, ok := d.byKey[id]
	if !ok {
		return d.common, false
	}
	return d.common.merge(*p), true
}

// Upsert inserts or updates a profile. Updates merge: blank fields of the
// incoming profile are treated as unset and keep the stored value.
func (d *Directory) Upsert(p Profile) error {
	if p.IP == "" {
		return ErrNoIP
	}

	d.mutex.Lock()
	existing, ok := d.byKey[p.IP]
	if ok {
		merged := existing.merge(p)
		if existing.Hostname != "" && existing.Hostname != merged.Hostname {
			delete(d.byKey, existing.Hostname)
		}
		*existing = merged
		if merged.Hostname != "" {
			d.byKey[merged.Hostname] = existing
		}
	} else {
		stored := p
		d.byKey[p.IP] = &stored
		if p.Hostname != "" {
			d.byKey[p.Hostname] = &stored
		}
		d.devices = append(d.devices, &stored)
	}
	d.mutex.Unlock()

	return d.save()
}

// UpsertMany applies Upsert to each profile; profiles without an IP are
// logged and skipped rather than aborting the batch.
func (d *Directory) UpsertMany(profiles []Profile) error {
	for _, p := range profiles {
		if err := d.Upsert(p); err != nil {
			slog.Info("profile skipped", "ip", p.IP, "hostname", p.Hostname, "error", err)
		}
	}
	return nil
}

// Delete removes one profile, addressed by IP or hostname.
func (d *Directory) Delete(id string) error {
	d.mutex.Lock()
	p, ok := d.byKey[id]
	if !ok {
		d.mutex.Unlock()
		return ErrNotFound
	}
	delete(d.byKey, p.IP)
	if p.Hostname != "" {
		delete(d.byKey, p.Hostname)
	}
	for i, dev := range d.devices {
		if dev == p {
			d.devices = append(d.devices[:i], d.devices[i+1:]...)
			break
		}
	}
	d.mutex.Unlock()

	return d.save()
}

// DeleteAll empties the directory.
func (d *Directory) DeleteAll() error {
	d.mutex.Lock()
	d.byKey = make(map[string]*Profile)
	d.devices = nil
	d.mutex.Unlock()

	return d.save()
}

// All returns every profile keyed by every identifier, each overlaid on the
// common defaults.
func (d *Directory) All() map[string]Profile {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	out := make(map[string]Profile, len(d.byKey))
	for key, p := range d.byKey {
		out[key] = d.common.merge(*p)
	}
	return out
}

// Common returns the shared default profile.
func (d *Directory) Common() Profile {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.common
}

// SetCommon merges the non-blank fields into the common defaults.
func (d *Directory) SetCommon(fields Profile) error {
	d.mutex.Lock()
	d.common = d.common.merge(fields)
	d.mutex.Unlock()

	return d.save()
}

// Replace swaps the entire device set, used by the refresh cycle. The common
// defaults are untouched.
func (d *Directory) Replace(profiles []Profile) error {
	d.mutex.Lock()
	d.replaceLocked(profiles)
	d.mutex.Unlock()

	return d.save()
}

func (d *Directory) replaceLocked(profiles []Profile) {
	d.byKey = make(map[string]*Profile, len(profiles))
	d.devices = d.devices[:0]
	for i := range profiles {
		p := profiles[i]
		if p.IP == "" {
			continue
		}
		d.byKey[p.IP] = &p
		if p.Hostname != "" {
			d.byKey[p.Hostname] = &p
		}
		d.devices = append(d.devices, &p)
	}
}

// save writes the snapshot. Every mutating call persists before returning.
func (d *Directory) save() error {
	d.mutex.RLock()
	snap := snapshot{Common: d.common, Devices: make([]Profile, 0, len(d.devices))}
	for _, p := range d.devices {
		snap.Devices = append(snap.Devices, *p)
	}
	d.mutex.RUnlock()

	sort.Slice(snap.Devices, func(i, j int) bool { return snap.Devices[i].IP < snap.Devices[j].IP })

	data, err := serializer.JSON.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(d.snapshotPath, data, 0600); err != nil {
		return fmt.Errorf("unable to write snapshot: %w", err)
	}
	return nil
}
