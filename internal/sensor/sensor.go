package sensor

import (
	"fmt"
	"time"
)

// Status is the operator-assigned state of a pond sensor. It is set when the
// sensor is created and is not derived from readings.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusWarning Status = "warning"
)

// Readings holds the latest water-quality values of a sensor.
type Readings struct {
	Temperature     float64 `json:"temperature"`
	PH              float64 `json:"ph"`
	DissolvedOxygen float64 `json:"dissolvedOxygen"`
}

// Record is the in-memory representation of one monitored pond sensor.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Status     Status    `json:"status"`
	Readings   Readings  `json:"readings"`
	Schedule   Schedule  `json:"schedule"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Schedule describes the nominal measurement cadence. It is informational
// only; nothing schedules measurements from it.
type Schedule string

const (
	ScheduleHourly      Schedule = "Every 1 hour"
	ScheduleTwoHours    Schedule = "Every 2 hours"
	ScheduleFourHours   Schedule = "Every 4 hours"
	ScheduleSixHours    Schedule = "Every 6 hours"
	ScheduleTwelveHours Schedule = "Every 12 hours"
	ScheduleDaily       Schedule = "Daily"

	DefaultSchedule = ScheduleTwoHours
)

var schedules = []Schedule{
	ScheduleHourly,
	ScheduleTwoHours,
	ScheduleFourHours,
	ScheduleSixHours,
	ScheduleTwelveHours,
	ScheduleDaily,
}

// Schedules returns the known schedules in display order.
func Schedules() []Schedule {
	return append([]Schedule(nil), schedules...)
}

// ParseSchedule maps a display string to a known schedule. An empty value
// yields DefaultSchedule.
func ParseSchedule(raw string) (Schedule, error) {
	if raw == "" {
		return DefaultSchedule, nil
	}
	for _, s := range schedules {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown schedule %q", raw)
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}
