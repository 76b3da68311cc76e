package processing

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

const (
	defaultAlertInterval    = 30 * time.Second
	defaultSamplesPerSensor = 1
	defaultAlertCapacity    = 100
	alertIntervalEnvKey     = "ALERT_INTERVAL"
)

// SnapshotSource yields the current sensors. *simulation.Simulator satisfies it.
type SnapshotSource interface {
	List() []sensor.Record
}

// Alert is an advisory notice that a metric left its display threshold.
// Alerts never change a sensor's status.
type Alert struct {
	ID         int64         `json:"id"`
	SensorID   string        `json:"sensorId"`
	SensorName string        `json:"sensorName"`
	Metric     sensor.Metric `json:"metric"`
	Value      float64       `json:"value"`
	Threshold  sensor.Range  `json:"threshold"`
	Message    string        `json:"message"`
	OpenedAt   time.Time     `json:"openedAt"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
}

// Active reports whether the alert is still open.
func (a Alert) Active() bool {
	return a.ResolvedAt == nil
}

type alertKey struct {
	sensorID string
	metric   sensor.Metric
}

// AlertService watches sensor snapshots and keeps a bounded alert history.
type AlertService struct {
	source          SnapshotSource
	interval        time.Duration
	samplesRequired int
	capacity        int
	thresholds      sensor.Bounds
	now             func() time.Time

	mu      sync.RWMutex
	nextID  int64
	streaks map[alertKey]int
	open    map[alertKey]int64
	history []Alert
}

// AlertOption customises the service.
type AlertOption func(*AlertService)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) AlertOption {
	return func(s *AlertService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSamplesRequired configures how many consecutive out-of-range samples open an alert.
func WithSamplesRequired(count int) AlertOption {
	return func(s *AlertService) {
		if count > 0 {
			s.samplesRequired = count
		}
	}
}

// WithCapacity bounds how many alerts are retained.
func WithCapacity(n int) AlertOption {
	return func(s *AlertService) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) AlertOption {
	return func(s *AlertService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAlertService constructs a watcher with sensible defaults.
func NewAlertService(source SnapshotSource, opts ...AlertOption) *AlertService {
	svc := &AlertService{
		source:          source,
		interval:        defaultAlertInterval,
		samplesRequired: defaultSamplesPerSensor,
		capacity:        defaultAlertCapacity,
		thresholds:      sensor.DisplayThresholds,
		now:             time.Now,
		streaks:         make(map[alertKey]int),
		open:            make(map[alertKey]int64),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// IntervalFromEnv reads ALERT_INTERVAL, falling back to 30s.
func IntervalFromEnv() time.Duration {
	raw := os.Getenv(alertIntervalEnvKey)
	if raw == "" {
		return defaultAlertInterval
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur <= 0 {
		log.Printf("invalid %s value %q, using default %s", alertIntervalEnvKey, raw, defaultAlertInterval)
		return defaultAlertInterval
	}
	return dur
}

// Start begins the background polling loop.
func (s *AlertService) Start(ctx context.Context) {
	if s.source == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		log.Printf("alert service running; interval=%s samples=%d", s.interval, s.samplesRequired)
		for {
			select {
			case <-ctx.Done():
				log.Println("alert service stopped")
				return
			case <-ticker.C:
				s.Check()
			}
		}
	}()
}

// Check evaluates the current snapshot once.
func (s *AlertService) Check() {
	records := s.source.List()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		for _, metric := range sensor.Metrics {
			s.evaluate(rec, metric, now)
		}
	}
}

func (s *AlertService) evaluate(rec sensor.Record, metric sensor.Metric, now time.Time) {
	key := alertKey{sensorID: rec.ID, metric: metric}
	value := rec.Readings.Value(metric)
	limits := s.thresholds.Range(metric)

	if !sensor.OutOfRange(value, limits) {
		delete(s.streaks, key)
		if id, ok := s.open[key]; ok {
			delete(s.open, key)
			s.resolve(id, now)
			log.Printf("alert resolved: sensor=%s metric=%s value=%.2f", rec.ID, metric, value)
		}
		return
	}

	s.streaks[key]++
	if _, ok := s.open[key]; ok || s.streaks[key] < s.samplesRequired {
		return
	}

	s.nextID++
	alert := Alert{
		ID:         s.nextID,
		SensorID:   rec.ID,
		SensorName: rec.Name,
		Metric:     metric,
		Value:      value,
		Threshold:  limits,
		Message:    alertMessage(rec.Name, metric, value, limits),
		OpenedAt:   now,
	}
	s.open[key] = alert.ID
	s.history = append(s.history, alert)
	s.trim()
	log.Printf("alert opened: sensor=%s metric=%s value=%.2f range=[%.1f, %.1f]", rec.ID, metric, value, limits.Min, limits.Max)
}

// trim drops the oldest resolved alerts until history fits capacity. Open
// alerts are never evicted, so history may exceed capacity while more than
// capacity alerts are open.
func (s *AlertService) trim() {
	excess := len(s.history) - s.capacity
	if excess <= 0 {
		return
	}
	kept := make([]Alert, 0, len(s.history))
	for _, a := range s.history {
		if excess > 0 && !a.Active() {
			excess--
			continue
		}
		kept = append(kept, a)
	}
	s.history = kept
}

func (s *AlertService) resolve(id int64, now time.Time) {
	for i := range s.history {
		if s.history[i].ID == id {
			resolved := now
			s.history[i].ResolvedAt = &resolved
			return
		}
	}
}

// Alerts returns the retained alerts, newest first.
func (s *AlertService) Alerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// ActiveAlerts returns only the open alerts, newest first.
func (s *AlertService) ActiveAlerts() []Alert {
	all := s.Alerts()
	out := all[:0]
	for _, a := range all {
		if a.Active() {
			out = append(out, a)
		}
	}
	return out
}

func alertMessage(name string, metric sensor.Metric, value float64, limits sensor.Range) string {
	direction := "above"
	bound := limits.Max
	if value < limits.Min {
		direction = "below"
		bound = limits.Min
	}
	return fmt.Sprintf("%s: %s %.2f%s is %s %.1f", name, metric, value, metric.Unit(), direction, bound)
}
