// Package clock holds the time arithmetic used by the booking rules: hour
// truncation of requested slots, day bounds for the provider schedule, the
// cancellation window, and the human-readable date used in notifications.
//
// All calculations are performed in a business time zone (*time.Location)
// and results are returned in UTC so they can be persisted and compared
// without further conversion.
package clock

import (
	"errors"
	"strings"
	"time"
)

// Clock abstracts "now" so time-dependent rules can be tested.
type Clock interface {
	Now() time.Time
}

// System is the wall clock. It always reports UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock that always reports T.
type Fixed struct{ T time.Time }

// Now returns the fixed instant in UTC.
func (f Fixed) Now() time.Time { return f.T.UTC() }

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// ErrInvalidTimestamp is returned by ParseISO for input it cannot interpret.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// isoLayouts are tried in order by ParseISO. Layouts without an offset are
// interpreted in the caller's location.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseISO parses an ISO-8601 timestamp. Values that carry no zone offset are
// read as wall-clock time in loc.
func ParseISO(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	loc = orUTC(loc)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// StartOfHour truncates t to the beginning of its hour in loc.
func StartOfHour(t time.Time, loc *time.Location) time.Time {
	lt := t.In(orUTC(loc))
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), 0, 0, 0, lt.Location()).UTC()
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(orUTC(loc))
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, lt.Location()).UTC()
}

// EndOfDay returns the last representable instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(orUTC(loc))
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), lt.Location()).UTC()
}

// IsBefore reports whether a is strictly before b.
func IsBefore(a, b time.Time) bool { return a.Before(b) }

// SubHours returns t moved n hours into the past.
func SubHours(t time.Time, n int) time.Time {
	return t.Add(-time.Duration(n) * time.Hour)
}

// LoadLocation resolves an IANA zone name, treating "" and "UTC" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
