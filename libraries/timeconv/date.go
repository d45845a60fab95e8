package timeconv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a proleptic Gregorian calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var dateRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// ParseDate reads YYYY-MM-DD. Single digit months and days are accepted.
func ParseDate(text string) (Date, error) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Date{}, &ParseError{Input: text, Reason: "invalid date"}
	}
	d := Date{Year: atoi(m[1]), Month: time.Month(atoi(m[2])), Day: atoi(m[3])}
	if !d.Valid() {
		return Date{}, &ParseError{Input: text, Reason: "invalid date"}
	}
	return d, nil
}

// DateOf is the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Valid reports whether the date exists, e.g. 2023-02-29 does not.
func (d Date) Valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

// Midnight is 00:00:00 of d with the fields set in UTC. Use it as the wall
// clock argument of tzdb.LocalToUTC for other zones.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
