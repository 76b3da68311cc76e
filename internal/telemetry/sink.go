package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

const (
	defaultQueueSize      = 64
	defaultPublishTimeout = 5 * time.Second

	// queueSinkName labels events dropped before reaching any sink.
	queueSinkName = "queue"
)

// Sink receives every simulated sensor update.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ts time.Time, records []sensor.Record) error
}

// ErrorObserver is told about failed publishes.
type ErrorObserver interface {
	SinkError(sink string)
}

// Fanout forwards simulator events to every configured sink. Events are
// queued by OnUpdate and published by the goroutine launched in Start, so
// a slow sink never holds up the simulator. A failing sink is logged and
// does not stop the others.
type Fanout struct {
	sinks          []Sink
	observer       ErrorObserver
	queue          chan simulation.Event
	publishTimeout time.Duration

	quit     chan struct{}
	stopped  chan struct{}
	started  bool
	quitOnce sync.Once
	mu       sync.Mutex
}

// FanoutOption customises a Fanout.
type FanoutOption func(*Fanout)

// WithQueueSize bounds how many events may wait for publishing.
func WithQueueSize(size int) FanoutOption {
	return func(f *Fanout) {
		if size > 0 {
			f.queue = make(chan simulation.Event, size)
		}
	}
}

// WithPublishTimeout bounds each sink publish.
func WithPublishTimeout(timeout time.Duration) FanoutOption {
	return func(f *Fanout) {
		if timeout > 0 {
			f.publishTimeout = timeout
		}
	}
}

// NewFanout builds a fanout over sinks. observer may be nil.
func NewFanout(observer ErrorObserver, sinks []Sink, opts ...FanoutOption) *Fanout {
	f := &Fanout{
		sinks:          sinks,
		observer:       observer,
		queue:          make(chan simulation.Event, defaultQueueSize),
		publishTimeout: defaultPublishTimeout,
		quit:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Len reports how many sinks are attached.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Start publishes queued events until ctx cancels or Close is called.
func (f *Fanout) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	go func() {
		defer close(f.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.quit:
				return
			case ev := <-f.queue:
				f.Deliver(ctx, ev)
			}
		}
	}()
}

// OnUpdate implements simulation.Listener. It never blocks: when the queue
// is full the event is dropped and reported to the observer.
func (f *Fanout) OnUpdate(_ context.Context, ev simulation.Event) {
	select {
	case f.queue <- ev:
	default:
		log.Printf("telemetry queue full; dropping event=%s sensors=%d", ev.Kind, len(ev.Sensors))
		if f.observer != nil {
			f.observer.SinkError(queueSinkName)
		}
	}
}

// Deliver publishes ev to every sink, each bounded by the publish timeout.
func (f *Fanout) Deliver(ctx context.Context, ev simulation.Event) {
	for _, sink := range f.sinks {
		pubCtx, cancel := context.WithTimeout(ctx, f.publishTimeout)
		err := sink.Publish(pubCtx, ev.At, ev.Sensors)
		cancel()
		if err != nil {
			log.Printf("telemetry publish failed: sink=%s event=%s sensors=%d: %v", sink.Name(), ev.Kind, len(ev.Sensors), err)
			if f.observer != nil {
				f.observer.SinkError(sink.Name())
			}
		}
	}
}

// Close stops the publisher, waits for an in-flight publish to finish and
// releases sinks that hold connections.
func (f *Fanout) Close() {
	f.quitOnce.Do(func() { close(f.quit) })
	f.mu.Lock()
	started := f.started
	f.mu.Unlock()
	if started {
		<-f.stopped
	}
	for _, sink := range f.sinks {
		if c, ok := sink.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Printf("telemetry sink %s close failed: %v", sink.Name(), err)
			}
		}
	}
}
