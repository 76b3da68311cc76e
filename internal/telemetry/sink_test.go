package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

var testTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func testRecords() []sensor.Record {
	return []sensor.Record{
		{ID: "1", Name: "Pond A - Main", Location: "North", Status: sensor.StatusOnline, Readings: sensor.Readings{Temperature: 28.5, PH: 7.2, DissolvedOxygen: 6.8}},
		{ID: "3", Name: "Pond C - Nursery", Location: "East", Status: sensor.StatusWarning, Readings: sensor.Readings{Temperature: 31.2, PH: 8.1, DissolvedOxygen: 5.1}},
	}
}

type fakePointWriter struct {
	points []*write.Point
	err    error
}

func (f *fakePointWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, point...)
	return nil
}

type fakeMessageWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeMessageWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeMessageWriter) Close() error {
	f.closed = true
	return nil
}

type failingSink struct {
	calls int
}

func (f *failingSink) Name() string { return "failing" }

func (f *failingSink) Publish(context.Context, time.Time, []sensor.Record) error {
	f.calls++
	return errors.New("broker unavailable")
}

type countingObserver struct {
	errors map[string]int
	states []gobreaker.State
}

func (c *countingObserver) SinkError(sink string) {
	if c.errors == nil {
		c.errors = map[string]int{}
	}
	c.errors[sink]++
}

func (c *countingObserver) BreakerState(_ string, state gobreaker.State) {
	c.states = append(c.states, state)
}

func TestInfluxSinkWritesOnePointPerSensor(t *testing.T) {
	writer := &fakePointWriter{}
	sink := NewInfluxSink(writer, "pond_readings")
	if err := sink.Publish(context.Background(), testTime, testRecords()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(writer.points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(writer.points))
	}
	p := writer.points[0]
	if p.Name() != "pond_readings" || !p.Time().Equal(testTime) {
		t.Fatalf("unexpected point %s at %v", p.Name(), p.Time())
	}
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["sensor_id"] != "1" || tags["status"] != "online" || tags["location"] != "North" {
		t.Fatalf("unexpected tags %v", tags)
	}
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["ph"] != 7.2 || fields["dissolved_oxygen"] != 6.8 || fields["temperature"] != 28.5 {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestKafkaSinkKeysBySensor(t *testing.T) {
	writer := &fakeMessageWriter{}
	sink := NewKafkaSink(writer)
	if err := sink.Publish(context.Background(), testTime, testRecords()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(writer.msgs) != 2 || string(writer.msgs[1].Key) != "3" {
		t.Fatalf("unexpected messages %+v", writer.msgs)
	}
	var payload ReadingPayload
	if err := json.Unmarshal(writer.msgs[1].Value, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "warning" || payload.PH != 8.1 || !payload.Timestamp.Equal(testTime) {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if err := sink.Close(); err != nil || !writer.closed {
		t.Fatalf("close did not reach writer")
	}
}

func TestSensorTopic(t *testing.T) {
	if got := SensorTopic("aquaseer/sensors", "42"); got != "aquaseer/sensors/42" {
		t.Fatalf("topic = %q", got)
	}
}

func TestFanoutContinuesAfterFailure(t *testing.T) {
	writer := &fakePointWriter{}
	failing := &failingSink{}
	observer := &countingObserver{}
	fanout := NewFanout(observer, []Sink{failing, NewInfluxSink(writer, "pond_readings")})

	fanout.Deliver(context.Background(), simulation.Event{Kind: simulation.EventTick, At: testTime, Sensors: testRecords()})

	if failing.calls != 1 {
		t.Fatalf("failing sink calls = %d", failing.calls)
	}
	if len(writer.points) != 2 {
		t.Fatalf("healthy sink should still receive points, got %d", len(writer.points))
	}
	if observer.errors["failing"] != 1 {
		t.Fatalf("observer errors = %v", observer.errors)
	}
}

// blockingSink holds every publish until release is closed or ctx expires.
type blockingSink struct {
	release  chan struct{}
	received chan int
}

func (b *blockingSink) Name() string { return "blocking" }

func (b *blockingSink) Publish(ctx context.Context, _ time.Time, records []sensor.Record) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.received <- len(records)
	return nil
}

func TestSlowSinkDoesNotDelaySimulator(t *testing.T) {
	slow := &blockingSink{release: make(chan struct{}), received: make(chan int, 8)}
	guarded := Guard(slow, DefaultBreakerSettings, nil)
	fanout := NewFanout(nil, []Sink{guarded})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fanout.Start(ctx)

	sim := simulation.New(testRecords(), simulation.WithListener(fanout))
	started := time.Now()
	sim.Tick(ctx)
	if _, err := sim.Add(ctx, simulation.AddInput{Name: "Pond X", Location: "Delta"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("tick and add waited on the sink for %s", elapsed)
	}

	close(slow.release)
	for _, want := range []int{2, 1} {
		select {
		case got := <-slow.received:
			if got != want {
				t.Fatalf("sink received %d records, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("queued event never reached the sink")
		}
	}
	fanout.Close()
}

func TestPublishTimeoutBoundsSlowSink(t *testing.T) {
	slow := &blockingSink{release: make(chan struct{}), received: make(chan int, 1)}
	observer := &countingObserver{}
	fanout := NewFanout(observer, []Sink{slow}, WithPublishTimeout(20*time.Millisecond))

	started := time.Now()
	fanout.Deliver(context.Background(), simulation.Event{Kind: simulation.EventTick, At: testTime, Sensors: testRecords()})
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("publish ignored its timeout, took %s", elapsed)
	}
	if observer.errors["blocking"] != 1 {
		t.Fatalf("timed out publish should be reported, got %v", observer.errors)
	}
}

func TestFullQueueDropsEvents(t *testing.T) {
	observer := &countingObserver{}
	fanout := NewFanout(observer, []Sink{&failingSink{}}, WithQueueSize(1))
	ev := simulation.Event{Kind: simulation.EventTick, At: testTime, Sensors: testRecords()}

	// Not started, so nothing drains the queue.
	fanout.OnUpdate(context.Background(), ev)
	fanout.OnUpdate(context.Background(), ev)

	if observer.errors[queueSinkName] != 1 {
		t.Fatalf("expected one dropped event, got %v", observer.errors)
	}
}

func TestGuardOpensAfterConsecutiveFailures(t *testing.T) {
	failing := &failingSink{}
	observer := &countingObserver{}
	guarded := Guard(failing, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, observer)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := guarded.Publish(ctx, testTime, testRecords()); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	if guarded.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", guarded.State())
	}
	if err := guarded.Publish(ctx, testTime, testRecords()); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if failing.calls != 2 {
		t.Fatalf("open breaker must not call the sink, calls = %d", failing.calls)
	}
	if len(observer.states) != 1 || observer.states[0] != gobreaker.StateOpen {
		t.Fatalf("observer states = %v", observer.states)
	}
}

func TestKafkaFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	if _, err := KafkaFromEnv(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_TOPIC", "")
	cfg, err := KafkaFromEnv()
	if err != nil {
		t.Fatalf("KafkaFromEnv failed: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "k2:9092" || cfg.Topic != "aquaseer.pond-readings" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
