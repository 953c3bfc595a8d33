// Package biztime provides timezone helpers for tenant-facing time math.
// All storage and transport use UTC; tenant operating-hours checks convert
// into the tenant's own zone at the last moment. Loaded locations are
// cached because time.LoadLocation reads the zone database on every call.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is used when a tenant has no timezone configured.
const DefaultTimezone = "Africa/Lagos"

var (
	locMu    sync.RWMutex
	locCache = map[string]*time.Location{}
)

// LocationFor returns the cached location for tz, loading it on first use.
// An empty tz resolves to DefaultTimezone.
func LocationFor(tz string) (*time.Location, error) {
	if tz == "" {
		tz = DefaultTimezone
	}

	locMu.RLock()
	loc, ok := locCache[tz]
	locMu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	locMu.Lock()
	locCache[tz] = loc
	locMu.Unlock()

	return loc, nil
}

// ValidTimezone reports whether tz names a loadable IANA zone.
func ValidTimezone(tz string) bool {
	_, err := LocationFor(tz)
	return err == nil
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// InZone converts t into the named zone, falling back to UTC on an
// unknown zone so display paths never fail.
func InZone(t time.Time, tz string) time.Time {
	loc, err := LocationFor(tz)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}
