package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

// BreakerObserver is told when a sink's breaker changes state.
type BreakerObserver interface {
	BreakerState(sink string, state gobreaker.State)
}

// BreakerSettings tune the circuit breaker wrapped around a sink.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

// DefaultBreakerSettings trips after 3 consecutive failures and retries after 30s.
var DefaultBreakerSettings = BreakerSettings{
	ConsecutiveFailures: 3,
	OpenTimeout:         30 * time.Second,
	Interval:            time.Minute,
}

// GuardedSink short-circuits publishes to a sink that keeps failing.
type GuardedSink struct {
	inner Sink
	cb    *gobreaker.CircuitBreaker
}

// Guard wraps sink in a circuit breaker. observer may be nil.
func Guard(sink Sink, settings BreakerSettings, observer BreakerObserver) *GuardedSink {
	fails := settings.ConsecutiveFailures
	if fails == 0 {
		fails = DefaultBreakerSettings.ConsecutiveFailures
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     sink.Name(),
		Interval: settings.Interval,
		Timeout:  settings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("telemetry breaker %s: %s -> %s", name, from, to)
			if observer != nil {
				observer.BreakerState(name, to)
			}
		},
	})
	return &GuardedSink{inner: sink, cb: cb}
}

// Name implements Sink.
func (g *GuardedSink) Name() string { return g.inner.Name() }

// Publish implements Sink. It returns gobreaker.ErrOpenState while open.
func (g *GuardedSink) Publish(ctx context.Context, ts time.Time, records []sensor.Record) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.inner.Publish(ctx, ts, records)
	})
	return err
}

// State reports the breaker state.
func (g *GuardedSink) State() gobreaker.State {
	return g.cb.State()
}

// Close closes the wrapped sink when it holds a connection.
func (g *GuardedSink) Close() error {
	if c, ok := g.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
