package simulation

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

const (
	defaultInterval = 5 * time.Second

	temperatureStep     = 0.5
	phStep              = 0.2
	dissolvedOxygenStep = 0.3
)

// Initial readings for sensors created through Add are drawn from these ranges.
var initialRanges = sensor.Bounds{
	Temperature:     sensor.Range{Min: 28, Max: 32},
	PH:              sensor.Range{Min: 7, Max: 8},
	DissolvedOxygen: sensor.Range{Min: 6, Max: 8},
}

// ErrSensorNotFound is returned when a lookup does not match any sensor.
var ErrSensorNotFound = errors.New("sensor not found")

// Rand is the random source used for readings. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// EventKind identifies why listeners are notified.
type EventKind string

const (
	EventTick  EventKind = "tick"
	EventAdded EventKind = "added"
)

// Event carries the sensors touched by a tick or an add.
type Event struct {
	Kind    EventKind       `json:"type"`
	At      time.Time       `json:"at"`
	Sensors []sensor.Record `json:"sensors"`
}

// Listener observes simulator updates. Listeners run on the goroutine that
// produced the event, after the simulator lock is released.
type Listener interface {
	OnUpdate(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event)

// OnUpdate calls f.
func (f ListenerFunc) OnUpdate(ctx context.Context, ev Event) { f(ctx, ev) }

// AddInput carries the caller-provided fields of a new sensor.
type AddInput struct {
	Name     string
	Location string
	Schedule sensor.Schedule
}

// Simulator owns the pond sensors and is the only writer of their readings.
type Simulator struct {
	mu        sync.RWMutex
	sensors   []*sensor.Record
	ids       map[string]struct{}
	lastID    int64
	enabled   bool
	listeners []Listener
	rng       Rand
	now       func() time.Time
	interval  time.Duration
}

// Option customizes Simulator creation.
type Option func(*Simulator)

// WithInterval overrides the default tick interval.
func WithInterval(interval time.Duration) Option {
	return func(s *Simulator) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithRand replaces the random source.
func WithRand(r Rand) Option {
	return func(s *Simulator) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(s *Simulator) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// New creates a Simulator holding seed in insertion order.
func New(seed []sensor.Record, opts ...Option) *Simulator {
	sim := &Simulator{
		ids:      make(map[string]struct{}, len(seed)),
		enabled:  true,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(sim)
	}
	sim.sensors = make([]*sensor.Record, 0, len(seed))
	for _, rec := range seed {
		rec := rec
		sim.sensors = append(sim.sensors, &rec)
		sim.ids[rec.ID] = struct{}{}
	}
	return sim
}

// Start ticks every interval until ctx cancels. Ticks are skipped while the
// simulator is disabled.
func (s *Simulator) Start(ctx context.Context) {
	log.Printf("sensor simulator running; interval=%s sensors=%d", s.interval, s.Len())
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("sensor simulator stopped")
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					log.Println("sensor simulator stopped")
					return
				}
				if !s.Enabled() {
					continue
				}
				s.Tick(ctx)
			}
		}
	}()
}

// Tick applies one bounded random-walk step to every sensor.
func (s *Simulator) Tick(ctx context.Context) {
	s.mu.Lock()
	ts := s.now()
	updated := make([]sensor.Record, len(s.sensors))
	for i, rec := range s.sensors {
		rec.Readings = sensor.PlausibilityBounds.Clamp(sensor.Readings{
			Temperature:     rec.Readings.Temperature + s.jitter(temperatureStep),
			PH:              rec.Readings.PH + s.jitter(phStep),
			DissolvedOxygen: rec.Readings.DissolvedOxygen + s.jitter(dissolvedOxygenStep),
		})
		rec.LastUpdate = advance(rec.LastUpdate, ts)
		updated[i] = *rec
	}
	s.mu.Unlock()

	s.notify(ctx, Event{Kind: EventTick, At: ts, Sensors: updated})
}

// Add validates input and appends a new online sensor with randomized
// initial readings.
func (s *Simulator) Add(ctx context.Context, input AddInput) (sensor.Record, error) {
	name := strings.TrimSpace(input.Name)
	location := strings.TrimSpace(input.Location)
	if name == "" {
		return sensor.Record{}, &sensor.ValidationError{Field: "name"}
	}
	if location == "" {
		return sensor.Record{}, &sensor.ValidationError{Field: "location"}
	}
	schedule := input.Schedule
	if schedule == "" {
		schedule = sensor.DefaultSchedule
	}

	s.mu.Lock()
	now := s.now()
	rec := &sensor.Record{
		ID:       s.nextID(now),
		Name:     name,
		Location: location,
		Status:   sensor.StatusOnline,
		Readings: sensor.Readings{
			Temperature:     s.draw(initialRanges.Temperature),
			PH:              s.draw(initialRanges.PH),
			DissolvedOxygen: s.draw(initialRanges.DissolvedOxygen),
		},
		Schedule:   schedule,
		LastUpdate: now,
	}
	s.sensors = append(s.sensors, rec)
	s.ids[rec.ID] = struct{}{}
	added := *rec
	s.mu.Unlock()

	log.Printf("sensor added: id=%s name=%q location=%q schedule=%q", added.ID, added.Name, added.Location, added.Schedule)
	s.notify(ctx, Event{Kind: EventAdded, At: now, Sensors: []sensor.Record{added}})
	return added, nil
}

// List returns a copy of every sensor in insertion order.
func (s *Simulator) List() []sensor.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sensor.Record, len(s.sensors))
	for i, rec := range s.sensors {
		out[i] = *rec
	}
	return out
}

// Get returns a copy of the sensor with the given id.
func (s *Simulator) Get(id string) (sensor.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.sensors {
		if rec.ID == id {
			return *rec, nil
		}
	}
	return sensor.Record{}, ErrSensorNotFound
}

// Len reports how many sensors are held.
func (s *Simulator) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sensors)
}

// Enable resumes ticking from Start.
func (s *Simulator) Enable() {
	s.mu.Lock()
	if s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = true
	s.mu.Unlock()
	log.Println("sensor simulator enabled")
}

// Disable pauses ticking from Start. Direct Tick calls still apply.
func (s *Simulator) Disable() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = false
	s.mu.Unlock()
	log.Println("sensor simulator disabled")
}

// Enabled reports whether Start is currently ticking.
func (s *Simulator) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// RegisterListener subscribes to tick and add events.
func (s *Simulator) RegisterListener(listener Listener) {
	if listener == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
}

// Interval returns the configured tick interval.
func (s *Simulator) Interval() time.Duration {
	return s.interval
}

func (s *Simulator) notify(ctx context.Context, ev Event) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, listener := range listeners {
		listener.OnUpdate(ctx, ev)
	}
}

// nextID derives an id from the clock in milliseconds, bumping it until it
// is strictly increasing and unused. Callers hold s.mu.
func (s *Simulator) nextID(now time.Time) string {
	candidate := now.UnixMilli()
	if candidate <= s.lastID {
		candidate = s.lastID + 1
	}
	for {
		id := strconv.FormatInt(candidate, 10)
		if _, taken := s.ids[id]; !taken {
			s.lastID = candidate
			return id
		}
		candidate++
	}
}

// jitter returns a uniform value in [-step/2, step/2). Callers hold s.mu.
func (s *Simulator) jitter(step float64) float64 {
	return (s.rng.Float64() - 0.5) * step
}

// draw returns a uniform value in [r.Min, r.Max). Callers hold s.mu.
func (s *Simulator) draw(r sensor.Range) float64 {
	return r.Min + s.rng.Float64()*(r.Max-r.Min)
}

// advance returns ts, or prev+1ns when the clock has not moved past prev.
func advance(prev, ts time.Time) time.Time {
	if ts.After(prev) {
		return ts
	}
	return prev.Add(time.Nanosecond)
}
