// Package timeutil is the single normalization point for datetimes entering
// or leaving the system. Every stored timestamp is the wall clock of the
// configured local zone with the zone stripped ("local naive"), so all
// database comparisons are zone-consistent without carrying offsets.
package timeutil

import (
	"sync"
	"time"
)

const defaultZone = "Europe/Budapest"

var (
	mu    sync.RWMutex
	local *time.Location
)

func init() {
	loc, err := time.LoadLocation(defaultZone)
	if err != nil {
		loc = time.UTC
	}
	local = loc
}

// SetLocation configures the canonical local zone. Unknown names keep the
// current zone and report the error.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	mu.Lock()
	local = loc
	mu.Unlock()
	return nil
}

// Location returns the configured local zone.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return local
}

// NowLocalNaive returns the current local wall clock, zone stripped.
func NowLocalNaive() time.Time {
	return stripZone(time.Now().In(Location()))
}

// ToLocalNaive converts any datetime to the local zone and strips the zone.
func ToLocalNaive(value time.Time) time.Time {
	return stripZone(value.In(Location()))
}

// AttachLocalZone reinterprets a stored naive datetime in the local zone.
func AttachLocalZone(value time.Time) time.Time {
	return time.Date(
		value.Year(), value.Month(), value.Day(),
		value.Hour(), value.Minute(), value.Second(), value.Nanosecond(),
		Location(),
	)
}

// stripZone keeps the wall-clock fields and discards the zone. The UTC
// location marks the value as naive storage form.
func stripZone(value time.Time) time.Time {
	return time.Date(
		value.Year(), value.Month(), value.Day(),
		value.Hour(), value.Minute(), value.Second(), value.Nanosecond(),
		time.UTC,
	)
}
