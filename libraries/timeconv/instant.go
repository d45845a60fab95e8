// Package timeconv converts between an Instant and the text forms shown by
// the date converter: decimal timestamps, calendar dates and
// "YYYY-MM-DD HH:MM:SS" wall clock text in a given zone.
package timeconv

import (
	"strconv"
	"time"
)

// Instant is a count of whole seconds since the Unix epoch, UTC.
type Instant int64

// The range keeps every zone projection inside four digit years, so every
// instant has a YYYY-MM-DD form in every zone.
const (
	MinInstant Instant = -62167132800 // 0000-01-02 00:00:00 UTC
	MaxInstant Instant = 253402214399 // 9999-12-30 23:59:59 UTC
)

// FromTime drops the sub-second part of t, rounding toward the past.
func FromTime(t time.Time) Instant {
	return Instant(t.Unix())
}

func (i Instant) Valid() bool {
	return i >= MinInstant && i <= MaxInstant
}

func (i Instant) Time() time.Time {
	return time.Unix(int64(i), 0).UTC()
}

func (i Instant) In(loc *time.Location) time.Time {
	return time.Unix(int64(i), 0).In(loc)
}

func (i Instant) String() string {
	return strconv.FormatInt(int64(i), 10)
}
