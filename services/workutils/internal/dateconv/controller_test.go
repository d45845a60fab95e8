package dateconv

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/greymass/workutils/libraries/encoding"
	"github.com/greymass/workutils/libraries/timeconv"
	"github.com/greymass/workutils/libraries/tzdb"
	"github.com/greymass/workutils/libraries/tzresolve"
)

var testNow = time.Date(2024, time.June, 1, 14, 34, 19, 0, time.UTC)

func testResolver(t *testing.T, local string) *tzresolve.Resolver {
	t.Helper()
	var zones []*time.Location
	for _, name := range []string{"UTC", "Africa/Cairo", "Africa/Johannesburg", "America/New_York", "Asia/Tokyo", "Europe/Berlin"} {
		loc, err := tzdb.Load(name)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		zones = append(zones, loc)
	}
	localZone, err := tzdb.Load(local)
	if err != nil {
		t.Fatalf("load %s: %v", local, err)
	}
	return &tzresolve.Resolver{
		Zones: zones,
		Now:   func() time.Time { return testNow },
		Local: localZone,
	}
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	return NewController(testResolver(t, "UTC"), func() time.Time { return testNow })
}

func date(y int, m time.Month, d int) timeconv.Date {
	return timeconv.Date{Year: y, Month: m, Day: d}
}

// consistent checks that the five time fields of s describe ts in zone.
func consistent(t *testing.T, s State, ts int64, zone string) {
	t.Helper()
	loc, err := tzdb.Load(zone)
	if err != nil {
		t.Fatalf("load %s: %v", zone, err)
	}
	utcDate, utcISO := timeconv.Encode(timeconv.Instant(ts), time.UTC)
	customDate, customISO := timeconv.Encode(timeconv.Instant(ts), loc)
	want := State{
		Timestamp:  timeconv.Instant(ts).String(),
		UTCDate:    utcDate,
		UTCISO:     utcISO,
		CustomZone: zone,
		CustomDate: customDate,
		CustomISO:  customISO,
		Block:      s.Block,
		Loading:    s.Loading,
	}
	if s != want {
		t.Errorf("state = %+v, want %+v", s, want)
	}
}

func TestDefaultState(t *testing.T) {
	c := newTestController(t)
	s := c.State()
	if s.Timestamp != "0" || s.UTCISO != "1970-01-01 00:00:00" || s.CustomISO != "1970-01-01 00:00:00" {
		t.Errorf("unexpected default: %+v", s)
	}
	if s.UTCDate != date(1970, time.January, 1) || s.CustomZone != "UTC" || s.Block != "0" {
		t.Errorf("unexpected default: %+v", s)
	}
	if s.Loading || s.Error != "" {
		t.Errorf("unexpected default: %+v", s)
	}
}

func TestStateJSON(t *testing.T) {
	data, err := encoding.JSONiter.Marshal(DefaultState())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"utc_date":"1970-01-01"`, `"custom_zone":"UTC"`, `"block":"0"`} {
		if !strings.Contains(got, want) {
			t.Errorf("%s missing %s", got, want)
		}
	}
	if strings.Contains(got, `"error"`) {
		t.Errorf("empty error should be omitted: %s", got)
	}
}

func TestEdits(t *testing.T) {
	tests := []struct {
		name  string
		setup []Edit
		edit  Edit
		ts    int64
		zone  string
		check func(t *testing.T, s State)
	}{
		{
			name: "timestamp",
			edit: Edit{FieldTimestamp, "1717252459"},
			ts:   1717252459,
			zone: "UTC",
			check: func(t *testing.T, s State) {
				if s.UTCISO != "2024-06-01 14:34:19" {
					t.Errorf("utc iso = %q", s.UTCISO)
				}
			},
		},
		{
			name: "timestamp with spaces",
			edit: Edit{FieldTimestamp, " -1 "},
			ts:   -1,
			zone: "UTC",
		},
		{
			name: "utc date",
			edit: Edit{FieldUTCDate, "2024-06-01"},
			ts:   1717200000,
			zone: "UTC",
		},
		{
			name:  "utc iso keeps custom zone",
			setup: []Edit{{FieldZone, "Asia/Tokyo"}},
			edit:  Edit{FieldUTCISO, "2024-06-01T14:34:19"},
			ts:    1717252459,
			zone:  "Asia/Tokyo",
		},
		{
			name: "utc iso with abbreviation",
			edit: Edit{FieldUTCISO, "2024-06-01 16:34:19 CEST"},
			ts:   1717252459,
			zone: "UTC",
		},
		{
			name: "utc iso with offset",
			edit: Edit{FieldUTCISO, "2024-06-01T16:34:19+02:00"},
			ts:   1717252459,
			zone: "UTC",
		},
		{
			name: "custom iso with offset switches zone",
			edit: Edit{FieldCustomISO, "2024-06-01T16:34:19+02:00"},
			ts:   1717252459,
			// Cairo is on +3 in June, so Johannesburg is the first +2 zone.
			zone: "Africa/Johannesburg",
			check: func(t *testing.T, s State) {
				if s.CustomISO != "2024-06-01 16:34:19" || s.UTCISO != "2024-06-01 14:34:19" {
					t.Errorf("iso = %q / %q", s.CustomISO, s.UTCISO)
				}
			},
		},
		{
			name: "custom iso with abbreviation",
			edit: Edit{FieldCustomISO, "2024-06-01 12:00 JST"},
			ts:   1717210800,
			zone: "Asia/Tokyo",
		},
		{
			name:  "custom iso naive uses custom zone",
			setup: []Edit{{FieldZone, "America/New_York"}},
			edit:  Edit{FieldCustomISO, "2024-06-01 10:34:19"},
			ts:    1717252459,
			zone:  "America/New_York",
		},
		{
			name:  "custom date is midnight in custom zone",
			setup: []Edit{{FieldZone, "America/New_York"}},
			edit:  Edit{FieldCustomDate, "2024-06-01"},
			ts:    1717214400,
			zone:  "America/New_York",
			check: func(t *testing.T, s State) {
				if s.CustomDate != date(2024, time.June, 1) {
					t.Errorf("custom date = %s", s.CustomDate)
				}
			},
		},
		{
			name:  "select zone reprojects",
			setup: []Edit{{FieldTimestamp, "1717252459"}},
			edit:  Edit{FieldZone, "Asia/Tokyo"},
			ts:    1717252459,
			zone:  "Asia/Tokyo",
			check: func(t *testing.T, s State) {
				if s.CustomISO != "2024-06-01 23:34:19" {
					t.Errorf("custom iso = %q", s.CustomISO)
				}
			},
		},
		{
			name:  "offset",
			setup: []Edit{{FieldTimestamp, "1717252459"}},
			edit:  Edit{FieldOffset, "-14400"},
			ts:    1717252459,
			zone:  "America/New_York",
		},
		{
			name: "now truncates",
			edit: Edit{Field: FieldNow},
			ts:   1717252459,
			zone: "UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(testResolver(t, "UTC"), func() time.Time { return testNow.Add(999 * time.Millisecond) })
			for _, e := range tt.setup {
				if err := c.Apply(e); err != nil {
					t.Fatalf("setup %v: %v", e, err)
				}
			}
			if err := c.Apply(tt.edit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s := c.State()
			consistent(t, s, tt.ts, tt.zone)
			if c.Zone().String() != tt.zone {
				t.Errorf("zone = %s, want %s", c.Zone(), tt.zone)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestFailedEditsLeaveFields(t *testing.T) {
	tests := []struct {
		name   string
		edit   Edit
		reason string
	}{
		{"timestamp", Edit{FieldTimestamp, "12abc"}, "invalid timestamp"},
		{"timestamp overflow", Edit{FieldTimestamp, "99999999999999999999"}, "invalid timestamp"},
		{"timestamp range", Edit{FieldTimestamp, "253402214400"}, "timestamp out of range"},
		{"utc date", Edit{FieldUTCDate, "2024-02-30"}, "invalid date"},
		{"utc iso", Edit{FieldUTCISO, "yesterday"}, "unrecognized date format"},
		{"utc iso abbreviation", Edit{FieldUTCISO, "2024-06-01 12:00 PST"}, "unknown time zone"},
		{"custom date", Edit{FieldCustomDate, "June 1"}, "invalid date"},
		{"custom iso", Edit{FieldCustomISO, "2024-06-01 25:00"}, "invalid date"},
		{"custom iso abbreviation not in use", Edit{FieldCustomISO, "2024-03-10 02:30 EST"}, "unknown time zone"},
		{"zone", Edit{FieldZone, "Mars/Olympus_Mons"}, "select zone"},
		{"offset", Edit{FieldOffset, "+2h"}, "invalid offset"},
		{"offset unmatched", Edit{FieldOffset, "49500"}, "no time zone currently has offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t)
			if err := c.EditTimestamp("1717252459"); err != nil {
				t.Fatalf("setup: %v", err)
			}
			before := c.State()

			err := c.Apply(tt.edit)
			if err == nil {
				t.Fatal("expected error")
			}
			after := c.State()
			if !strings.Contains(after.Error, tt.reason) {
				t.Errorf("error = %q, want it to mention %q", after.Error, tt.reason)
			}
			after.Error = ""
			if after != before {
				t.Errorf("fields changed:\n got %+v\nwant %+v", after, before)
			}
			if c.Zone() != time.UTC {
				t.Errorf("zone changed to %s", c.Zone())
			}
		})
	}
}

func TestErrorClearsOnSuccess(t *testing.T) {
	c := newTestController(t)
	c.EditTimestamp("nope")
	if c.State().Error == "" {
		t.Fatal("expected error")
	}
	if err := c.EditTimestamp("60"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State().Error != "" {
		t.Errorf("error not cleared: %q", c.State().Error)
	}
}

func TestParseErrorType(t *testing.T) {
	c := newTestController(t)
	err := c.EditUTCISO("2024-06-01 12:00 XYZT")
	var pe *timeconv.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	var re *tzresolve.ResolutionError
	if !errors.As(err, &re) {
		t.Errorf("expected wrapped ResolutionError, got %v", err)
	}
}

func TestCustomDateInGap(t *testing.T) {
	c := newTestController(t)
	if err := c.SelectZone("America/Sao_Paulo"); err != nil {
		t.Fatalf("select: %v", err)
	}
	// Clocks went from 00:00 straight to 01:00.
	err := c.EditCustomDate(date(2018, time.November, 4))
	if err == nil {
		t.Fatal("expected error for skipped midnight")
	}
	if !strings.Contains(c.State().Error, "invalid time") {
		t.Errorf("error = %q", c.State().Error)
	}
}

func TestGuessZone(t *testing.T) {
	c := NewController(testResolver(t, "Asia/Tokyo"), nil)
	if err := c.EditTimestamp("1717252459"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := c.GuessZone(); err != nil {
		t.Fatalf("guess: %v", err)
	}
	consistent(t, c.State(), 1717252459, "Asia/Tokyo")
}

func TestGuessZoneNoMatch(t *testing.T) {
	c := NewController(testResolver(t, "Asia/Kolkata"), nil)
	before := c.State()
	err := c.GuessZone()
	var re *tzresolve.ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	after := c.State()
	after.Error = ""
	if after != before {
		t.Errorf("fields changed: %+v", after)
	}
}

func TestUnknownField(t *testing.T) {
	c := newTestController(t)
	err := c.Apply(Edit{Field: "weekday", Value: "monday"})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if c.State() != DefaultState() {
		t.Errorf("state changed: %+v", c.State())
	}
}

func TestEditBlock(t *testing.T) {
	c := newTestController(t)

	if _, err := c.EditBlock("abc"); err == nil {
		t.Fatal("expected parse error")
	}
	s := c.State()
	if s.Block != "abc" || s.Loading || !strings.HasPrefix(s.Error, "failed to parse block") {
		t.Errorf("unexpected state %+v", s)
	}
	if s.Timestamp != "0" {
		t.Errorf("timestamp changed: %q", s.Timestamp)
	}

	height, err := c.EditBlock("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 42 || !c.State().Loading {
		t.Errorf("height=%d loading=%v", height, c.State().Loading)
	}
}

func TestBlockTimeStaleness(t *testing.T) {
	tests := []struct {
		name    string
		trigger string
		err     error
		want    Outcome
	}{
		{"current applies", "42", nil, Applied},
		{"stale discarded", "4", nil, Discarded},
		{"current failure", "42", errors.New("boom"), Failed},
		{"stale failure discarded", "4", errors.New("boom"), Discarded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t)
			c.EditBlock("4")
			c.EditBlock("42")
			before := c.State()

			var got Outcome
			if tt.err != nil {
				got = c.FailBlockTime(tt.trigger, tt.err)
			} else {
				got = c.ApplyBlockTime(tt.trigger, 1717252459)
			}
			if got != tt.want {
				t.Fatalf("outcome = %s, want %s", got, tt.want)
			}

			s := c.State()
			switch tt.want {
			case Discarded:
				if s != before {
					t.Errorf("discarded result mutated state: %+v", s)
				}
			case Applied:
				consistent(t, s, 1717252459, "UTC")
				if s.Block != "42" || s.Loading {
					t.Errorf("block=%q loading=%v", s.Block, s.Loading)
				}
			case Failed:
				if s.Error != "failed to get block: boom" || s.Loading {
					t.Errorf("unexpected state %+v", s)
				}
				if s.Timestamp != before.Timestamp {
					t.Errorf("timestamp changed")
				}
			}
		})
	}
}

func TestApplyBlockTimeOutOfRange(t *testing.T) {
	c := newTestController(t)
	c.EditBlock("7")
	if got := c.ApplyBlockTime("7", int64(timeconv.MaxInstant)+1); got != Failed {
		t.Fatalf("outcome = %s", got)
	}
	if c.State().Timestamp != "0" || c.State().Error == "" {
		t.Errorf("unexpected state %+v", c.State())
	}
}
