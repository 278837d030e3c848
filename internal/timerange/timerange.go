// Package timerange resolves symbolic period keys such as "last-week" or
// "prev-month" into absolute half-open time ranges.
package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel bounds used for open-ended ranges.
var (
	Min = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	Max = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// ErrUnknownKey is returned for keys Resolve does not understand.
var ErrUnknownKey = errors.New("unknown time range key")

// Key prefixes and units.
const (
	All = "all"

	prefixLast = "last"
	prefixPrev = "prev"
	prefixThis = "this"
)

// Unit is a calendar unit a key can refer to.
type Unit string

// Supported units.
const (
	Day   Unit = "day"
	Week  Unit = "week"
	Month Unit = "month"
	Year  Unit = "year"
)

var units = []Unit{Day, Week, Month, Year}

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// IsAll reports whether the range spans the full sentinel interval.
func (r Range) IsAll() bool {
	return r.Start.Equal(Min) && r.End.Equal(Max)
}

// Keys lists every valid key in menu order.
func Keys() []string {
	keys := make([]string, 0, 3*len(units)+1)
	for _, prefix := range []string{prefixLast, prefixThis, prefixPrev} {
		for _, u := range units {
			keys = append(keys, prefix+"-"+string(u))
		}
	}
	return append(keys, All)
}

// Valid reports whether key is understood by Resolve.
func Valid(key string) bool {
	_, err := Resolve(key, time.Unix(0, 0).UTC())
	return err == nil
}

// Resolve maps a symbolic key to an absolute range relative to now. Calendar
// alignment happens in now's location and weeks start on Monday.
//
//	all          [Min, Max)
//	last-<unit>  [now - 1 unit, now)
//	prev-<unit>  previous full calendar unit
//	this-<unit>  [start of current unit, Max)
func Resolve(key string, now time.Time) (Range, error) {
	if key == All {
		return Range{Start: Min, End: Max}, nil
	}

	prefix, rawUnit, ok := strings.Cut(key, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	unit := Unit(rawUnit)
	if !unit.valid() {
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	switch prefix {
	case prefixLast:
		return Range{Start: subtract(now, unit), End: now}, nil
	case prefixPrev:
		current := StartOf(now, unit)
		return Range{Start: subtract(current, unit), End: current}, nil
	case prefixThis:
		return Range{Start: StartOf(now, unit), End: Max}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// StartOf returns the beginning of the calendar unit containing t.
func StartOf(t time.Time, unit Unit) time.Time {
	y, m, d := t.Date()
	switch unit {
	case Week:
		offset := (int(t.Weekday()) + 6) % 7 // days since Monday
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}

// subtract moves t back by one unit. Month and year steps clamp the day so
// that March 31 minus a month is February 28/29 rather than March 2/3.
func subtract(t time.Time, unit Unit) time.Time {
	switch unit {
	case Week:
		return t.AddDate(0, 0, -7)
	case Month:
		return addMonthsClamped(t, -1)
	case Year:
		return addMonthsClamped(t, -12)
	default:
		return t.AddDate(0, 0, -1)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func (u Unit) valid() bool {
	for _, known := range units {
		if u == known {
			return true
		}
	}
	return false
}
