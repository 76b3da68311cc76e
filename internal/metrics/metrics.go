package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

// Metrics exposes simulator, sink, and HTTP instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal        prometheus.Counter
	sensorsAdded      prometheus.Counter
	sensors           prometheus.Gauge
	readings          *prometheus.GaugeVec
	outOfRange        *prometheus.GaugeVec
	sinkErrors        *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquaseer_simulation_ticks_total",
			Help: "Total simulator ticks applied.",
		}),
		sensorsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aquaseer_sensors_added_total",
			Help: "Total sensors added at runtime.",
		}),
		sensors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aquaseer_sensors",
			Help: "Sensors currently held by the simulator.",
		}),
		readings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aquaseer_sensor_reading",
			Help: "Latest reading per sensor and metric.",
		}, []string{"sensor_id", "metric"}),
		outOfRange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aquaseer_sensor_out_of_range",
			Help: "1 when the latest reading is outside its display threshold.",
		}, []string{"sensor_id", "metric"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquaseer_telemetry_sink_errors_total",
			Help: "Failed telemetry publishes by sink.",
		}, []string{"sink"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aquaseer_telemetry_breaker_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"sink"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticksTotal,
		m.sensorsAdded,
		m.sensors,
		m.readings,
		m.outOfRange,
		m.sinkErrors,
		m.breakerState,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OnUpdate implements simulation.Listener.
func (m *Metrics) OnUpdate(_ context.Context, ev simulation.Event) {
	if m == nil {
		return
	}
	switch ev.Kind {
	case simulation.EventTick:
		m.ticksTotal.Inc()
		m.sensors.Set(float64(len(ev.Sensors)))
	case simulation.EventAdded:
		m.sensorsAdded.Add(float64(len(ev.Sensors)))
		m.sensors.Add(float64(len(ev.Sensors)))
	}
	for _, rec := range ev.Sensors {
		for _, metric := range sensor.Metrics {
			value := rec.Readings.Value(metric)
			m.readings.WithLabelValues(rec.ID, string(metric)).Set(value)
			flag := 0.0
			if sensor.OutOfRange(value, sensor.DisplayThresholds.Range(metric)) {
				flag = 1
			}
			m.outOfRange.WithLabelValues(rec.ID, string(metric)).Set(flag)
		}
	}
}

// SetSensors records the current sensor count.
func (m *Metrics) SetSensors(n int) {
	if m == nil {
		return
	}
	m.sensors.Set(float64(n))
}

// SinkError implements telemetry.ErrorObserver.
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// BreakerState implements telemetry.BreakerObserver.
func (m *Metrics) BreakerState(sink string, state gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(sink).Set(v)
}

// Middleware records request counts and durations per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
