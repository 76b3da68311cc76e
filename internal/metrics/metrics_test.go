package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

func TestOnUpdateTracksTicksAndReadings(t *testing.T) {
	m := New()
	records := []sensor.Record{
		{ID: "1", Readings: sensor.Readings{Temperature: 28.5, PH: 7.2, DissolvedOxygen: 6.8}},
		{ID: "2", Readings: sensor.Readings{Temperature: 29, PH: 6.2, DissolvedOxygen: 4.6}},
	}

	m.OnUpdate(context.Background(), simulation.Event{Kind: simulation.EventTick, Sensors: records})
	m.OnUpdate(context.Background(), simulation.Event{Kind: simulation.EventTick, Sensors: records})

	if got := testutil.ToFloat64(m.ticksTotal); got != 2 {
		t.Fatalf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sensors); got != 2 {
		t.Fatalf("sensors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.readings.WithLabelValues("1", "ph")); got != 7.2 {
		t.Fatalf("pH gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.outOfRange.WithLabelValues("2", "ph")); got != 1 {
		t.Fatalf("sensor 2 pH should be out of range")
	}
	if got := testutil.ToFloat64(m.outOfRange.WithLabelValues("1", "dissolved_oxygen")); got != 0 {
		t.Fatalf("sensor 1 DO should be in range")
	}
}

func TestOnUpdateCountsAdds(t *testing.T) {
	m := New()
	m.SetSensors(3)
	m.OnUpdate(context.Background(), simulation.Event{Kind: simulation.EventAdded, Sensors: []sensor.Record{{ID: "9"}}})
	if got := testutil.ToFloat64(m.sensorsAdded); got != 1 {
		t.Fatalf("added = %v", got)
	}
	if got := testutil.ToFloat64(m.sensors); got != 4 {
		t.Fatalf("sensors = %v, want 4", got)
	}
}

func TestSinkAndBreakerObservers(t *testing.T) {
	m := New()
	m.SinkError("mqtt")
	m.SinkError("mqtt")
	m.BreakerState("mqtt", gobreaker.StateOpen)
	if got := testutil.ToFloat64(m.sinkErrors.WithLabelValues("mqtt")); got != 2 {
		t.Fatalf("sink errors = %v", got)
	}
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("mqtt")); got != 2 {
		t.Fatalf("breaker state = %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SinkError("kafka")
	m.SetSensors(1)
	m.OnUpdate(context.Background(), simulation.Event{Kind: simulation.EventTick})
}
