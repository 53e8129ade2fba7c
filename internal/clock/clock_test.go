package clock

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata for %s unavailable: %v", name, err)
	}
	return loc
}

func TestStartOfHour_TruncatesMinutesSecondsNanos(t *testing.T) {
	in := time.Date(2025, 3, 5, 14, 37, 12, 999, time.UTC)
	got := StartOfHour(in, time.UTC)
	want := time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("StartOfHour = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC result, got %v", got.Location())
	}
}

func TestStartOfHour_HalfHourOffsetZone(t *testing.T) {
	kolkata := mustLoc(t, "Asia/Kolkata") // UTC+05:30
	// 09:10 UTC == 14:40 local -> local hour start 14:00 == 08:30 UTC
	in := time.Date(2025, 1, 1, 9, 10, 0, 0, time.UTC)
	got := StartOfHour(in, kolkata)
	want := time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("StartOfHour(Kolkata) = %v, want %v", got, want)
	}
}

func TestDayBounds(t *testing.T) {
	in := time.Date(2025, 6, 10, 17, 45, 0, 0, time.UTC)
	start := StartOfDay(in, time.UTC)
	end := EndOfDay(in, time.UTC)

	if want := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("StartOfDay = %v, want %v", start, want)
	}
	if want := time.Date(2025, 6, 10, 23, 59, 59, 999999999, time.UTC); !end.Equal(want) {
		t.Fatalf("EndOfDay = %v, want %v", end, want)
	}
	if !end.Add(time.Nanosecond).Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("EndOfDay + 1ns should be next midnight")
	}
}

func TestDayBounds_InZone(t *testing.T) {
	sp := mustLoc(t, "America/Sao_Paulo") // UTC-03:00, no DST since 2019
	// 01:30 UTC on the 11th is still the 10th in São Paulo.
	in := time.Date(2025, 6, 11, 1, 30, 0, 0, time.UTC)
	start := StartOfDay(in, sp)
	if want := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("StartOfDay(SP) = %v, want %v", start, want)
	}
}

func TestIsBefore_AndSubHours(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if !IsBefore(base, base.Add(time.Second)) {
		t.Fatalf("expected base before base+1s")
	}
	if IsBefore(base, base) {
		t.Fatalf("IsBefore must be strict")
	}
	if got := SubHours(base, 2); !got.Equal(base.Add(-2 * time.Hour)) {
		t.Fatalf("SubHours = %v", got)
	}
}

func TestParseISO(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-05T14:30:00Z", time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)},
		{"2025-03-05T14:30:00-03:00", time.Date(2025, 3, 5, 17, 30, 0, 0, time.UTC)},
		{"2025-03-05T14:30:00.123Z", time.Date(2025, 3, 5, 14, 30, 0, 123000000, time.UTC)},
		{"2025-03-05T14:30", time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)},
		{"2025-03-05", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseISO(tc.in, time.UTC)
		if err != nil {
			t.Fatalf("ParseISO(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseISO(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "   ", "tomorrow", "2025-13-01"} {
		if _, err := ParseISO(bad, time.UTC); !errors.Is(err, ErrInvalidTimestamp) {
			t.Fatalf("ParseISO(%q) expected ErrInvalidTimestamp, got %v", bad, err)
		}
	}
}

func TestClocks(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	if got := (Fixed{T: fixed}).Now(); !got.Equal(fixed) || got.Location() != time.UTC {
		t.Fatalf("Fixed.Now = %v", got)
	}
	calls := 0
	f := Func(func() time.Time { calls++; return fixed })
	_ = f.Now()
	if calls != 1 {
		t.Fatalf("Func not invoked")
	}
	if got := (System{}).Now(); got.Location() != time.UTC {
		t.Fatalf("System.Now should be UTC")
	}
}

func TestLoadLocation(t *testing.T) {
	for _, name := range []string{"", "UTC", "utc"} {
		loc, err := LoadLocation(name)
		if err != nil || loc != time.UTC {
			t.Fatalf("LoadLocation(%q) = %v, %v", name, loc, err)
		}
	}
	if _, err := LoadLocation("Nowhere/Special"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestFormatBookingDate(t *testing.T) {
	slot := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)

	if got, want := FormatBookingDate(slot, time.UTC, language.English), "March 5 at 8:00"; got != want {
		t.Fatalf("en = %q, want %q", got, want)
	}
	if got, want := FormatBookingDate(slot, time.UTC, language.BrazilianPortuguese), "dia 05 de março, às 8:00h"; got != want {
		t.Fatalf("pt-BR = %q, want %q", got, want)
	}
	// Unsupported locale falls back to English.
	if got, want := FormatBookingDate(slot, time.UTC, language.Japanese), "March 5 at 8:00"; got != want {
		t.Fatalf("fallback = %q, want %q", got, want)
	}
}

func TestParseLocale(t *testing.T) {
	if got := ParseLocale("pt-BR"); got != language.BrazilianPortuguese {
		t.Fatalf("ParseLocale(pt-BR) = %v", got)
	}
	if got := ParseLocale("en-US"); got != language.English {
		t.Fatalf("ParseLocale(en-US) = %v", got)
	}
	if got := ParseLocale("!!"); got != language.English {
		t.Fatalf("ParseLocale(garbage) = %v", got)
	}
}
