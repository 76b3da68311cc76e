package simulation

import (
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

// DefaultSensors returns the baseline ponds the dashboard starts with.
func DefaultSensors(now time.Time) []sensor.Record {
	return []sensor.Record{
		{
			ID:         "1",
			Name:       "Pond A - Main",
			Location:   "North Section, Mekong Delta",
			Status:     sensor.StatusOnline,
			Readings:   sensor.Readings{Temperature: 28.5, PH: 7.2, DissolvedOxygen: 6.8},
			Schedule:   sensor.ScheduleTwoHours,
			LastUpdate: now,
		},
		{
			ID:         "2",
			Name:       "Pond B - Secondary",
			Location:   "South Section, Mekong Delta",
			Status:     sensor.StatusOnline,
			Readings:   sensor.Readings{Temperature: 29.8, PH: 7.5, DissolvedOxygen: 6.2},
			Schedule:   sensor.ScheduleFourHours,
			LastUpdate: now.Add(-5 * time.Minute),
		},
		// Readings are nominal; the warning status is operator-assigned.
		{
			ID:         "3",
			Name:       "Pond C - Nursery",
			Location:   "East Section, Mekong Delta",
			Status:     sensor.StatusWarning,
			Readings:   sensor.Readings{Temperature: 31.2, PH: 8.1, DissolvedOxygen: 5.1},
			Schedule:   sensor.ScheduleHourly,
			LastUpdate: now.Add(-10 * time.Minute),
		},
	}
}
