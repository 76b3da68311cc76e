package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

// PointWriter is the subset of api.WriteAPIBlocking used by InfluxSink.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per sensor update.
type InfluxSink struct {
	writer      PointWriter
	measurement string
}

// NewInfluxSink binds a sink to writer and measurement.
func NewInfluxSink(writer PointWriter, measurement string) *InfluxSink {
	return &InfluxSink{writer: writer, measurement: measurement}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Publish implements Sink.
func (s *InfluxSink) Publish(ctx context.Context, ts time.Time, records []sensor.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(records))
	for _, rec := range records {
		points = append(points, ReadingPoint(s.measurement, rec, ts))
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write %d points: %w", len(points), err)
	}
	return nil
}

// ReadingPoint converts a sensor record to an InfluxDB point.
func ReadingPoint(measurement string, rec sensor.Record, ts time.Time) *write.Point {
	if ts.IsZero() {
		ts = rec.LastUpdate
	}
	return influxdb2.NewPoint(
		measurement,
		map[string]string{
			"sensor_id":   rec.ID,
			"sensor_name": rec.Name,
			"location":    rec.Location,
			"status":      string(rec.Status),
		},
		map[string]interface{}{
			string(sensor.MetricTemperature):     rec.Readings.Temperature,
			string(sensor.MetricPH):              rec.Readings.PH,
			string(sensor.MetricDissolvedOxygen): rec.Readings.DissolvedOxygen,
		},
		ts,
	)
}
