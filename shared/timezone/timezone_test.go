package timezone_test

import (
	"testing"
	"thakajabe/shared/timezone"
	"time"
)

func TestTimezoneInit(t *testing.T) {
	// Test Now() function
	now := timezone.Now()
	if now.IsZero() {
		t.Error("Now() returned zero time")
	}

	// Test GetLocation()
	loc := timezone.GetLocation()
	if loc == nil {
		t.Error("GetLocation() returned nil")
	}
}

func TestTimezoneWithStandardLocation(t *testing.T) {
	utcTime := time.Now().UTC()
	appTime := timezone.ToAppTime(utcTime)

	if appTime.Location() == nil {
		t.Error("Expected converted time to have a location")
	}
}

func TestTimezoneFormat(t *testing.T) {
	testTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	formatted := timezone.Format(testTime, "2006-01-02 15:04:05 MST")

	if formatted == "" {
		t.Error("Format() returned empty string")
	}

	parsed, err := timezone.Parse("2006-01-02", "2024-01-01")
	if err != nil {
		t.Errorf("Parse() failed: %v", err)
	}

	if parsed == (time.Time{}) {
		t.Error("Parse() returned a zero time")
	}
}

func TestParseDate(t *testing.T) {
	parsed, err := timezone.ParseDate("2026-03-01")
	if err != nil {
		t.Fatalf("ParseDate() failed: %v", err)
	}

	if parsed.Hour() != 0 || parsed.Minute() != 0 {
		t.Errorf("expected midnight, got %s", parsed)
	}

	if parsed.Location().String() != timezone.GetLocation().String() {
		t.Errorf("expected app location, got %s", parsed.Location())
	}

	if _, err := timezone.ParseDate("01-03-2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestHoursBetween(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := timezone.HoursBetween(start, start.Add(36*time.Hour)); got != 36 {
		t.Errorf("expected 36 hours, got %v", got)
	}

	if got := timezone.HoursBetween(start, start.Add(-2*time.Hour)); got != -2 {
		t.Errorf("expected -2 hours, got %v", got)
	}
}
