package timeconv

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/tzdb"
)

const (
	dateLayout = "2006-01-02"
	isoLayout  = "2006-01-02 15:04:05"
)

// ZoneResolver finds named zones for offset qualified and abbreviation
// suffixed text. *tzresolve.Resolver implements it.
type ZoneResolver interface {
	GuessFromOffset(offsetSeconds int) (*time.Location, error)
	ResolveAbbreviation(abbr string) (*time.Location, error)
}

// Codec decodes ISO-8601 style text. Timestamps and calendar dates need no
// zone lookups and are package functions.
type Codec struct {
	zones ZoneResolver
}

func NewCodec(zones ZoneResolver) *Codec {
	return &Codec{zones: zones}
}

// DecodeTimestamp parses a signed decimal count of seconds.
func DecodeTimestamp(text string) (Instant, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, &ParseError{Input: text, Reason: "invalid timestamp", Err: err}
	}
	i := Instant(n)
	if !i.Valid() {
		return 0, &ParseError{Input: text, Reason: "timestamp out of range"}
	}
	return i, nil
}

// DecodeCalendarDate is midnight UTC of d.
func DecodeCalendarDate(d Date) (Instant, error) {
	return DecodeCalendarDateIn(d, time.UTC)
}

// DecodeCalendarDateIn is the first instant of d in loc. Where midnight is
// skipped by a transition the date fails with "invalid time".
func DecodeCalendarDateIn(d Date, loc *time.Location) (Instant, error) {
	if !d.Valid() {
		return 0, &ParseError{Input: d.String(), Reason: "invalid date"}
	}
	t, ok := tzdb.LocalToUTC(d.Midnight(), loc)
	if !ok {
		return 0, &ParseError{Input: d.String(), Reason: "invalid time"}
	}
	return checkRange(d.String(), FromTime(t))
}

// Encode renders i in loc as "YYYY-MM-DD" and "YYYY-MM-DD HH:MM:SS".
func Encode(i Instant, loc *time.Location) (Date, string) {
	t := i.In(loc)
	return DateOf(t), t.Format(isoLayout)
}

var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// naiveRe matches YYYY-MM-DD with an optional HH:MM[:SS] after a space or
// T, and an optional zone abbreviation after whitespace.
var naiveRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ](\d{1,2}):(\d{2})(?::(\d{2}))?)?(?:\s+(\S.*))?$`)

// DecodeISO8601 decodes text that carries a numeric offset, a trailing
// zone abbreviation or nothing, in which case it is wall clock time in
// zone. The returned location is the zone the text was read in: the one
// guessed from the offset (UTC when no zone currently has it), the one
// matching the abbreviation, or zone itself.
func (c *Codec) DecodeISO8601(text string, zone *time.Location) (Instant, *time.Location, error) {
	trimmed := strings.TrimSpace(text)

	for _, layout := range offsetLayouts {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		_, offset := t.Zone()
		loc, err := c.zones.GuessFromOffset(offset)
		if err != nil {
			loc = time.UTC
		}
		i, err := checkRange(text, FromTime(t))
		if err != nil {
			return 0, nil, err
		}
		return i, loc, nil
	}

	m := naiveRe.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, nil, &ParseError{Input: text, Reason: "unrecognized date format"}
	}

	wall, ok := naiveWall(m)
	if !ok {
		return 0, nil, &ParseError{Input: text, Reason: "invalid date"}
	}

	loc := zone
	if abbr := strings.TrimSpace(m[7]); abbr != "" {
		resolved, err := c.zones.ResolveAbbreviation(abbr)
		if err != nil {
			return 0, nil, &ParseError{Input: text, Reason: "unknown time zone", Err: err}
		}
		loc = resolved
	}

	t, ok := tzdb.LocalToUTC(wall, loc)
	if !ok {
		return 0, nil, &ParseError{Input: text, Reason: "invalid time"}
	}
	i, err := checkRange(text, FromTime(t))
	if err != nil {
		return 0, nil, err
	}
	return i, loc, nil
}

// naiveWall builds the wall clock from naiveRe submatches, rejecting
// fields that time.Date would normalize.
func naiveWall(m []string) (time.Time, bool) {
	d := Date{Year: atoi(m[1]), Month: time.Month(atoi(m[2])), Day: atoi(m[3])}
	if !d.Valid() {
		return time.Time{}, false
	}
	hour, minute, sec := atoi(m[4]), atoi(m[5]), atoi(m[6])
	if hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, sec, 0, time.UTC), true
}

func checkRange(input string, i Instant) (Instant, error) {
	if !i.Valid() {
		return 0, &ParseError{Input: input, Reason: "date out of range"}
	}
	return i, nil
}
