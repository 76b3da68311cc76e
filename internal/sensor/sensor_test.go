package sensor

import (
	"errors"
	"testing"
)

func TestOutOfRangeBoundsInclusive(t *testing.T) {
	r := Range{Min: 6.5, Max: 8.5}
	cases := []struct {
		value float64
		want  bool
	}{
		{6.49, true},
		{6.5, false},
		{7.2, false},
		{8.5, false},
		{8.51, true},
	}
	for _, tc := range cases {
		if got := OutOfRange(tc.value, r); got != tc.want {
			t.Fatalf("OutOfRange(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestClassifyUsesDisplayThresholds(t *testing.T) {
	// Inside plausibility bounds but outside display thresholds for pH and DO.
	flags := Classify(Readings{Temperature: 30, PH: 6.2, DissolvedOxygen: 4.5})
	if flags.Temperature {
		t.Fatalf("temperature 30 should not be flagged")
	}
	if !flags.PH || !flags.DissolvedOxygen {
		t.Fatalf("expected pH and DO flagged, got %+v", flags)
	}
	if !flags.Any() {
		t.Fatalf("expected Any() to be true")
	}

	if Classify(Readings{Temperature: 28.5, PH: 7.2, DissolvedOxygen: 6.8}).Any() {
		t.Fatalf("nominal readings should not be flagged")
	}
}

func TestPlausibilityClamp(t *testing.T) {
	got := PlausibilityBounds.Clamp(Readings{Temperature: 40, PH: 5, DissolvedOxygen: 6})
	want := Readings{Temperature: 35, PH: 6, DissolvedOxygen: 6}
	if got != want {
		t.Fatalf("clamp = %+v, want %+v", got, want)
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("")
	if err != nil || s != DefaultSchedule {
		t.Fatalf("empty schedule: got %q, %v", s, err)
	}
	s, err = ParseSchedule("Daily")
	if err != nil || s != ScheduleDaily {
		t.Fatalf("daily schedule: got %q, %v", s, err)
	}
	if _, err := ParseSchedule("Every 3 hours"); err == nil {
		t.Fatalf("expected error for unknown schedule")
	}
}

func TestValidationErrorMatchesWithAs(t *testing.T) {
	var err error = &ValidationError{Field: "name"}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("errors.As failed for %v", err)
	}
	if err.Error() != "name is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSummarizeCountsByStatus(t *testing.T) {
	stats := Summarize([]Record{
		{Status: StatusOnline},
		{Status: StatusOnline},
		{Status: StatusWarning},
		{Status: StatusOffline},
	})
	want := Stats{Total: 4, Online: 2, Offline: 1, Warning: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if got := Summarize(nil); got != (Stats{}) {
		t.Fatalf("empty stats = %+v", got)
	}
}
