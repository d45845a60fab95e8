package tzdb

import (
	"errors"
	"sort"
	"testing"
	"time"
)

func TestNames(t *testing.T) {
	names := Names()
	if len(names) < 400 {
		t.Fatalf("only %d names", len(names))
	}
	if names[0] != "UTC" {
		t.Errorf("first name = %q, want UTC", names[0])
	}
	if !sort.StringsAreSorted(names[1:]) {
		t.Error("names after UTC are not sorted")
	}

	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate name %q", n)
		}
		seen[n] = true
	}
	for _, n := range []string{"America/New_York", "Europe/London", "Asia/Kolkata", "Etc/GMT+5"} {
		if !seen[n] {
			t.Errorf("missing %q", n)
		}
	}
	if seen["Factory"] {
		t.Error("Factory should not be listed")
	}
}

func TestLoad(t *testing.T) {
	loc, err := Load("America/New_York")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("name = %q", loc.String())
	}
	again, _ := Load("America/New_York")
	if again != loc {
		t.Error("Load should return the cached location")
	}

	if utc, _ := Load("UTC"); utc != time.UTC {
		t.Error("UTC should load as time.UTC")
	}

	for _, name := range []string{"Local", "", "Mars/Olympus_Mons", "../../etc/passwd"} {
		if _, err := Load(name); !errors.Is(err, ErrUnknownZone) {
			t.Errorf("Load(%q) err = %v, want ErrUnknownZone", name, err)
		}
	}
}

func TestZones(t *testing.T) {
	zones := Zones()
	if len(zones) < 400 {
		t.Fatalf("only %d zones loaded", len(zones))
	}
	if zones[0] != time.UTC {
		t.Errorf("first zone = %v, want UTC", zones[0])
	}
}

func TestLocalToUTC(t *testing.T) {
	ny, _ := Load("America/New_York")
	kolkata, _ := Load("Asia/Kolkata")
	lordHowe, _ := Load("Australia/Lord_Howe")

	tests := []struct {
		name  string
		wall  time.Time
		loc   *time.Location
		want  int64
		valid bool
	}{
		{"utc", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC, 1609459200, true},
		{"fixed offset", time.Date(2021, 1, 1, 5, 30, 0, 0, time.UTC), kolkata, 1609459200, true},
		{"new york winter", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), ny, 1609477200, true},
		// 01:30 happens twice on 2021-11-07; the EDT reading is earlier.
		{"fall back ambiguous", time.Date(2021, 11, 7, 1, 30, 0, 0, time.UTC), ny, 1636263000, true},
		{"spring forward gap", time.Date(2021, 3, 14, 2, 30, 0, 0, time.UTC), ny, 0, false},
		{"just after gap", time.Date(2021, 3, 14, 3, 0, 0, 0, time.UTC), ny, 1615705200, true},
		// Lord Howe shifts by 30 minutes.
		{"half hour gap", time.Date(2021, 10, 3, 2, 15, 0, 0, time.UTC), lordHowe, 0, false},
		{"wall location ignored", time.Date(2021, 1, 1, 0, 0, 0, 0, kolkata), time.UTC, 1609459200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LocalToUTC(tt.wall, tt.loc)
			if ok != tt.valid {
				t.Fatalf("ok = %v, want %v", ok, tt.valid)
			}
			if !ok {
				return
			}
			if got.Unix() != tt.want {
				t.Errorf("got %d (%v), want %d", got.Unix(), got, tt.want)
			}
			if got.Location() != tt.loc {
				t.Errorf("location = %v, want %v", got.Location(), tt.loc)
			}
		})
	}
}

func TestLocalToUTCRoundTrip(t *testing.T) {
	// Every instant converts back to itself or, during a repeated hour, to
	// the earlier reading of the same wall clock.
	for _, name := range []string{"UTC", "America/New_York", "Europe/London", "Australia/Lord_Howe", "America/St_Johns"} {
		loc, err := Load(name)
		if err != nil {
			t.Fatal(err)
		}
		start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
		for u := start; u < start+366*day; u += 1800 {
			local := time.Unix(u, 0).In(loc)
			got, ok := LocalToUTC(local, loc)
			if !ok {
				t.Fatalf("%s: %v reported as gap", name, local)
			}
			if got.Unix() > u {
				t.Fatalf("%s: %v -> %d, later than %d", name, local, got.Unix(), u)
			}
			if got.Format("2006-01-02 15:04:05") != local.Format("2006-01-02 15:04:05") {
				t.Fatalf("%s: %v -> %v, wall clock differs", name, local, got)
			}
		}
	}
}
