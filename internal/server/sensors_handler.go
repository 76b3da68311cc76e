package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Resanso/aquaseer-api/internal/influxdb"
	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

const (
	defaultReadingsLookback = time.Hour
	defaultReadingsLimit    = 100
	maxReadingsLimit        = 1000
)

type sensorView struct {
	sensor.Record
	Flags sensor.Flags `json:"flags"`
}

type addSensorRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Schedule string `json:"schedule"`
}

func newSensorView(rec sensor.Record) sensorView {
	return sensorView{Record: rec, Flags: sensor.Classify(rec.Readings)}
}

// HandleListSchedules returns the schedules a new sensor may use.
func HandleListSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"schedules": sensor.Schedules(),
		"default":   sensor.DefaultSchedule,
	})
}

// HandleListSensors returns every sensor with its threshold flags and the
// dashboard status counts.
func HandleListSensors(c *gin.Context, deps Dependencies) {
	if deps.Simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator not running"})
		return
	}
	records := deps.Simulator.List()
	views := make([]sensorView, 0, len(records))
	for _, rec := range records {
		views = append(views, newSensorView(rec))
	}
	c.JSON(http.StatusOK, gin.H{
		"sensors":    views,
		"stats":      sensor.Summarize(records),
		"thresholds": sensor.DisplayThresholds,
	})
}

// HandleAddSensor registers a new sensor from name, location and schedule.
func HandleAddSensor(c *gin.Context, deps Dependencies) {
	if deps.Simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator not running"})
		return
	}
	var req addSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	schedule, err := sensor.ParseSchedule(req.Schedule)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := deps.Simulator.Add(c.Request.Context(), simulation.AddInput{
		Name:     req.Name,
		Location: req.Location,
		Schedule: schedule,
	})
	if err != nil {
		var verr *sensor.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
			return
		}
		log.Printf("add sensor failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add sensor"})
		return
	}
	c.JSON(http.StatusCreated, newSensorView(rec))
}

// HandleGetSensor returns one sensor with its threshold flags.
func HandleGetSensor(c *gin.Context, deps Dependencies) {
	if deps.Simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator not running"})
		return
	}
	rec, err := deps.Simulator.Get(c.Param("id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSensorView(rec))
}

// HandleSensorHistory returns the synthetic 24 hour series for one sensor.
func HandleSensorHistory(c *gin.Context, deps Dependencies) {
	if deps.Simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulator not running"})
		return
	}
	points, err := deps.Simulator.History(c.Param("id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensorId": c.Param("id"), "points": points})
}

// HandleSensorReadings returns points recorded in InfluxDB for one sensor.
func HandleSensorReadings(c *gin.Context, deps Dependencies) {
	if deps.Influx == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "InfluxDB client not configured"})
		return
	}
	id := c.Param("id")
	if deps.Simulator != nil {
		if _, err := deps.Simulator.Get(id); err != nil {
			writeLookupError(c, err)
			return
		}
	}

	lookback := defaultReadingsLookback
	if raw := c.Query("lookback"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lookback"})
			return
		}
		lookback = d
	}
	limit := defaultReadingsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxReadingsLimit)
	}

	readings, err := deps.Influx.RecentSensorReadings(c.Request.Context(), id, lookback, limit)
	if err != nil {
		log.Printf("influx readings query failed for sensor %s: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to query readings"})
		return
	}
	if readings == nil {
		readings = []influxdb.SensorReading{}
	}
	c.JSON(http.StatusOK, gin.H{"sensorId": id, "readings": readings})
}

// HandleListAlerts returns advisory threshold alerts, newest first.
func HandleListAlerts(c *gin.Context, deps Dependencies) {
	if deps.Alerts == nil {
		c.JSON(http.StatusOK, gin.H{"alerts": []any{}})
		return
	}
	if c.Query("active") == "true" {
		c.JSON(http.StatusOK, gin.H{"alerts": deps.Alerts.ActiveAlerts()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": deps.Alerts.Alerts()})
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, simulation.ErrSensorNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Printf("sensor lookup failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "sensor lookup failed"})
}
