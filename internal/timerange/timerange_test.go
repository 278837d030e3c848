package timerange_test

import (
	"errors"
	"testing"
	"time"

	"github.com/edgard/wordstats/internal/timerange"
)

// Wednesday, 2024-03-13 15:04:05 UTC.
var now = time.Date(2024, time.March, 13, 15, 4, 5, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key       string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{key: "all", wantStart: timerange.Min, wantEnd: timerange.Max},
		{key: "last-day", wantStart: now.AddDate(0, 0, -1), wantEnd: now},
		{key: "last-week", wantStart: now.AddDate(0, 0, -7), wantEnd: now},
		{key: "last-month", wantStart: now.AddDate(0, -1, 0), wantEnd: now},
		{key: "last-year", wantStart: now.AddDate(-1, 0, 0), wantEnd: now},
		{key: "prev-day", wantStart: date(2024, time.March, 12), wantEnd: date(2024, time.March, 13)},
		{key: "prev-week", wantStart: date(2024, time.March, 4), wantEnd: date(2024, time.March, 11)},
		{key: "prev-month", wantStart: date(2024, time.February, 1), wantEnd: date(2024, time.March, 1)},
		{key: "prev-year", wantStart: date(2023, time.January, 1), wantEnd: date(2024, time.January, 1)},
		{key: "this-day", wantStart: date(2024, time.March, 13), wantEnd: timerange.Max},
		{key: "this-week", wantStart: date(2024, time.March, 11), wantEnd: timerange.Max},
		{key: "this-month", wantStart: date(2024, time.March, 1), wantEnd: timerange.Max},
		{key: "this-year", wantStart: date(2024, time.January, 1), wantEnd: timerange.Max},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			got, err := timerange.Resolve(tt.key, now)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.key, err)
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("Resolve(%q) = [%s, %s), want [%s, %s)", tt.key, got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestResolveUnknownKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "last", "last-decade", "next-week", "this_week", "ALL"} {
		if _, err := timerange.Resolve(key, now); !errors.Is(err, timerange.ErrUnknownKey) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnknownKey", key, err)
		}
	}
}

func TestThisWeekStartsOnMonday(t *testing.T) {
	t.Parallel()

	start := date(2023, time.December, 25)
	for i := 0; i < 24*21; i++ {
		at := start.Add(time.Duration(i) * 73 * time.Minute)
		r, err := timerange.Resolve("this-week", at)
		if err != nil {
			t.Fatal(err)
		}
		if r.Start.Weekday() != time.Monday {
			t.Fatalf("this-week at %s starts on %s", at, r.Start.Weekday())
		}
		if h, m, s := r.Start.Clock(); h != 0 || m != 0 || s != 0 {
			t.Fatalf("this-week at %s starts at %02d:%02d:%02d", at, h, m, s)
		}
		if at.Before(r.Start) || !at.Before(r.End) {
			t.Fatalf("this-week at %s does not contain now", at)
		}
	}
}

func TestPrevEndsWhereThisStarts(t *testing.T) {
	t.Parallel()

	for _, unit := range []string{"day", "week", "month", "year"} {
		prev, err := timerange.Resolve("prev-"+unit, now)
		if err != nil {
			t.Fatal(err)
		}
		this, err := timerange.Resolve("this-"+unit, now)
		if err != nil {
			t.Fatal(err)
		}
		if !prev.End.Equal(this.Start) {
			t.Errorf("prev-%s ends %s, this-%s starts %s", unit, prev.End, unit, this.Start)
		}
	}
}

func TestAllIgnoresNow(t *testing.T) {
	t.Parallel()

	for _, at := range []time.Time{now, time.Unix(0, 0), date(2099, time.June, 1)} {
		r, err := timerange.Resolve("all", at)
		if err != nil {
			t.Fatal(err)
		}
		if !r.IsAll() {
			t.Errorf("all at %s = %+v", at, r)
		}
	}
}

func TestLastMonthClampsDay(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	r, err := timerange.Resolve("last-month", at)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC)
	if !r.Start.Equal(want) {
		t.Errorf("last-month start = %s, want %s", r.Start, want)
	}
}

func TestCalendarAlignmentUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	// 2024-03-10 22:30 UTC is already Monday 01:30 at UTC+3.
	at := time.Date(2024, time.March, 10, 22, 30, 0, 0, time.UTC).In(loc)
	r, err := timerange.Resolve("this-week", at)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.March, 11, 0, 0, 0, 0, loc)
	if !r.Start.Equal(want) {
		t.Errorf("this-week start = %s, want %s", r.Start, want)
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	keys := timerange.Keys()
	if len(keys) != 13 {
		t.Fatalf("expected 13 keys, got %d", len(keys))
	}
	for _, k := range keys {
		if !timerange.Valid(k) {
			t.Errorf("key %q listed but not valid", k)
		}
	}
	if timerange.Valid("yesterday") {
		t.Errorf("unexpected valid key")
	}
}
