package directory

import (
	"errors"
	"strings"
)

// ErrMixedOperators is returned when one query combines union and
// intersection; the grammar supports either, not both.
var ErrMixedOperators = errors.New(`not support "&" and "|" in one query`)

// Query evaluates the device search grammar:
//
//	""          every device
//	"cisco"     substring match on hostname, vendor, platform, tags
//	"a|b"       union of the matches of a and b
//	"a&b"       intersection of the matches of a and b
func (d *Directory) Query(q string) ([]Profile, error) {
	hasUnion := strings.Contains(q, "|")
	hasIntersection := strings.Contains(q, "&")
	if hasUnion && hasIntersection {
		return nil, ErrMixedOperators
	}

	d.mutex.RLock()
	defer d.mutex.RUnlock()

	switch {
	case q == "":
		out := make([]Profile, 0, len(d.devices))
		for _, p := range d.devices {
			out = append(out, *p)
		}
		return out, nil

	case hasUnion:
		seen := make(map[*Profile]bool)
		var out []Profile
		for _, term := range strings.Split(q, "|") {
			for _, p := range d.devices {
				if !seen[p] && p.matches(term) {
					seen[p] = true
					out = append(out, *p)
				}
			}
		}
		return out, nil

	case hasIntersection:
		kept := d.devices
		for _, term := range strings.Split(q, "&") {
			var next []*Profile
			for _, p := range kept {
				if p.matches(term) {
					next = append(next, p)
				}
			}
			kept = next
		}
		out := make([]Profile, 0, len(kept))
		for _, p := range kept {
			out = append(out, *p)
		}
		return out, nil

	default:
		var out []Profile
		for _, p := range d.devices {
			if p.matches(q) {
				out = append(out, *p)
			}
		}
		return out, nil
	}
}
