package simulation

import (
	"fmt"
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

const historyPoints = 24

// Full noise spans applied around the current reading for each synthetic
// history point.
const (
	historyTemperatureSpread     = 3.0
	historyPHSpread              = 0.5
	historyDissolvedOxygenSpread = 1.5
)

// HistoryPoint is one synthetic hourly sample.
type HistoryPoint struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
	sensor.Readings
}

// History synthesizes the last 24 hours for a sensor by perturbing its current
// reading. The series is regenerated on every call and never stored.
func (s *Simulator) History(id string) ([]HistoryPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *sensor.Record
	for _, rec := range s.sensors {
		if rec.ID == id {
			current = rec
			break
		}
	}
	if current == nil {
		return nil, ErrSensorNotFound
	}

	now := s.now()
	points := make([]HistoryPoint, 0, historyPoints)
	for i := historyPoints - 1; i >= 0; i-- {
		at := now.Add(-time.Duration(i) * time.Hour)
		points = append(points, HistoryPoint{
			Time:  at,
			Label: fmt.Sprintf("%d:00", at.Hour()),
			Readings: sensor.Readings{
				Temperature:     current.Readings.Temperature + s.jitter(historyTemperatureSpread),
				PH:              current.Readings.PH + s.jitter(historyPHSpread),
				DissolvedOxygen: current.Readings.DissolvedOxygen + s.jitter(historyDissolvedOxygenSpread),
			},
		})
	}
	return points, nil
}
