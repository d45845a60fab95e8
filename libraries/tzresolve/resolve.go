// Package tzresolve guesses a named zone from the system clock, a numeric
// UTC offset or a zone abbreviation.
//
// Every guess is a linear scan that returns the first match in registry
// order, so ties go to "UTC" and then to the alphabetically first name.
// Offsets and abbreviations are compared as they are at Now, not at the
// instant being decoded: "EST" entered in July still resolves, but only to
// a zone that uses EST year round.
package tzresolve

import (
	"fmt"
	"time"

	"github.com/greymass/workutils/libraries/tzdb"
)

// ResolutionError reports a guess that no zone satisfies.
type ResolutionError struct {
	Query  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Query)
}

// Resolver scans Zones in order. Now and Local stand in for the host clock
// and the host's zone setting.
type Resolver struct {
	Zones []*time.Location
	Now   func() time.Time
	Local *time.Location
}

// New resolves against the full registry and the host clock.
func New() *Resolver {
	return &Resolver{
		Zones: tzdb.Zones(),
		Now:   time.Now,
		Local: time.Local,
	}
}

// GuessFromSystemClock finds the first zone in which the host's local wall
// clock reading of now denotes now itself.
func (r *Resolver) GuessFromSystemClock() (*time.Location, error) {
	now := r.Now()
	wall := now.In(r.Local)
	if loc := MatchWallClock(r.Zones, wall, now); loc != nil {
		return loc, nil
	}
	return nil, &ResolutionError{
		Query:  wall.Format("2006-01-02 15:04:05"),
		Reason: "no time zone matches the system clock",
	}
}

func (r *Resolver) GuessFromOffset(offsetSeconds int) (*time.Location, error) {
	if loc := MatchOffset(r.Zones, r.Now(), offsetSeconds); loc != nil {
		return loc, nil
	}
	return nil, &ResolutionError{
		Query:  FormatOffset(offsetSeconds),
		Reason: "no time zone currently has offset",
	}
}

func (r *Resolver) ResolveAbbreviation(abbr string) (*time.Location, error) {
	if loc := MatchAbbreviation(r.Zones, r.Now(), abbr); loc != nil {
		return loc, nil
	}
	return nil, &ResolutionError{
		Query:  abbr,
		Reason: "no time zone currently uses abbreviation",
	}
}

// MatchWallClock returns the first zone whose earliest reading of the
// calendar fields of wall is the same second as now, or nil.
func MatchWallClock(zones []*time.Location, wall, now time.Time) *time.Location {
	target := now.Unix()
	for _, loc := range zones {
		if t, ok := tzdb.LocalToUTC(wall, loc); ok && t.Unix() == target {
			return loc
		}
	}
	return nil
}

// MatchOffset returns the first zone whose UTC offset at is offsetSeconds, or nil.
func MatchOffset(zones []*time.Location, at time.Time, offsetSeconds int) *time.Location {
	for _, loc := range zones {
		if _, off := at.In(loc).Zone(); off == offsetSeconds {
			return loc
		}
	}
	return nil
}

// MatchAbbreviation returns the first zone whose abbreviation at is
// exactly abbr, or nil. Numeric abbreviations such as "+11" only match
// zones that publish that literal text.
func MatchAbbreviation(zones []*time.Location, at time.Time, abbr string) *time.Location {
	for _, loc := range zones {
		if name, _ := at.In(loc).Zone(); name == abbr {
			return loc
		}
	}
	return nil
}

// FormatOffset renders seconds east of UTC as +HH:MM, or +HH:MM:SS when
// the offset is not a whole minute.
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if s != 0 {
		return fmt.Sprintf("%c%02d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d:%02d", sign, h, m)
}
