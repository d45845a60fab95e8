// Package tzdb is the zone registry: an ordered list of IANA names backed
// by the database compiled into the binary, and the local to UTC
// conversion every decoder shares.
package tzdb

import (
	"errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

// ErrUnknownZone is wrapped by Load for names outside the registry.
var ErrUnknownZone = errors.New("unknown time zone")

var (
	namesOnce sync.Once
	names     []string
	known     map[string]bool

	zonesOnce sync.Once
	zones     []*time.Location

	cache sync.Map // name -> *time.Location
)

func initNames() {
	names = make([]string, 0, len(ianaNames)+1)
	names = append(names, "UTC")
	for _, n := range ianaNames {
		if n != "UTC" {
			names = append(names, n)
		}
	}
	known = make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
}

// Names returns the registry in scan order: "UTC" first, then every other
// IANA name in byte order. Scans that stop at the first match therefore
// prefer UTC and break remaining ties alphabetically. The slice is shared
// and must not be modified.
func Names() []string {
	namesOnce.Do(initNames)
	return names
}

// Load returns the zone for a registry name.
func Load(name string) (*time.Location, error) {
	namesOnce.Do(initNames)
	if !known[name] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	if loc, ok := cache.Load(name); ok {
		return loc.(*time.Location), nil
	}
	if name == "UTC" {
		cache.Store(name, time.UTC)
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownZone, name, err)
	}
	actual, _ := cache.LoadOrStore(name, loc)
	return actual.(*time.Location), nil
}

// Zones loads the whole registry in Names order. Names the embedded
// database does not carry are skipped.
func Zones() []*time.Location {
	zonesOnce.Do(func() {
		for _, name := range Names() {
			if loc, err := Load(name); err == nil {
				zones = append(zones, loc)
			}
		}
	})
	return zones
}

const day = 24 * 60 * 60

// LocalToUTC interprets the calendar fields of wall (its own location is
// ignored) as wall clock time in loc. When the wall time occurs twice,
// around a fall-back transition, the earliest instant is returned. When it
// never occurs, inside a spring-forward gap, ok is false.
func LocalToUTC(wall time.Time, loc *time.Location) (t time.Time, ok bool) {
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	naive := time.Date(y, mo, d, h, mi, s, wall.Nanosecond(), time.UTC)
	u := naive.Unix()

	// Transitions are never less than a day apart, so the offsets in force a
	// day either side cover every candidate.
	found := false
	var best int64
	for _, probe := range [...]int64{u - day, u, u + day} {
		_, off := time.Unix(probe, 0).In(loc).Zone()
		candidate := u - int64(off)
		if _, actual := time.Unix(candidate, 0).In(loc).Zone(); actual != off {
			continue
		}
		if !found || candidate < best {
			best, found = candidate, true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return time.Unix(best, int64(naive.Nanosecond())).In(loc), true
}
