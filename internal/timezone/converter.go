// Package timezone converts between wall-clock values in a named IANA zone and
// absolute instants.
//
// Policy for non-existent and repeated local times:
//   - a local time inside a spring-forward gap resolves to the first valid
//     instant after the gap (the transition instant itself);
//   - a local time inside a fall-back overlap resolves to the earlier of the
//     two instants.
package timezone

import (
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

// Converter resolves zone names once and caches the *time.Location.
type Converter struct {
	mu    sync.RWMutex
	zones map[string]*time.Location
}

// NewConverter creates a converter with an empty zone cache.
func NewConverter() *Converter {
	return &Converter{zones: make(map[string]*time.Location)}
}

// Location resolves an IANA zone name. Empty and "Local" are rejected: they
// would silently depend on the host configuration.
func (c *Converter) Location(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, apperr.TimeZone(name, apperr.New("zone name must be an explicit IANA name"))
	}

	c.mu.RLock()
	loc, ok := c.zones[name]
	c.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.TimeZone(name, err)
	}

	c.mu.Lock()
	c.zones[name] = loc
	c.mu.Unlock()

	return loc, nil
}

// ToInstant converts a wall-clock date and time in zone to a UTC instant.
func (c *Converter) ToInstant(date civil.Date, clock civil.Time, zone string) (time.Time, error) {
	loc, err := c.Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	return resolve(civil.DateTime{Date: date, Time: clock}, loc).UTC(), nil
}

// ToWallClock converts an instant to the wall-clock date and time in zone.
func (c *Converter) ToWallClock(instant time.Time, zone string) (civil.Date, civil.Time, error) {
	loc, err := c.Location(zone)
	if err != nil {
		return civil.Date{}, civil.Time{}, err
	}
	dt := civil.DateTimeOf(instant.In(loc))
	return dt.Date, dt.Time, nil
}

// Today returns the wall-clock date of now in zone.
func (c *Converter) Today(now time.Time, zone string) (civil.Date, error) {
	date, _, err := c.ToWallClock(now, zone)
	return date, err
}

// resolve maps a wall-clock value to an instant in loc. Offsets are sampled a
// day either side of the value; zone transitions are never closer together
// than that.
func resolve(dt civil.DateTime, loc *time.Location) time.Time {
	naive := time.Date(dt.Date.Year, dt.Date.Month, dt.Date.Day,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, dt.Time.Nanosecond, time.UTC)

	before := offsetAt(naive.Add(-24*time.Hour), loc)
	after := offsetAt(naive.Add(24*time.Hour), loc)

	var valid []time.Time
	for _, off := range []int{before, after} {
		candidate := naive.Add(-time.Duration(off) * time.Second).In(loc)
		if civil.DateTimeOf(candidate) == dt {
			valid = append(valid, candidate)
		}
	}

	switch len(valid) {
	case 0:
		// gap: read with the pre-transition offset the value lands after the
		// transition; the zone that starts there begins at the first valid instant.
		shifted := naive.Add(-time.Duration(before) * time.Second).In(loc)
		start, _ := shifted.ZoneBounds()
		if start.IsZero() {
			return shifted
		}
		return start
	case 1:
		return valid[0]
	default:
		if valid[1].Before(valid[0]) {
			return valid[1]
		}
		return valid[0]
	}
}

func offsetAt(t time.Time, loc *time.Location) int {
	_, off := t.In(loc).Zone()
	return off
}
