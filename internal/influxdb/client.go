package influxdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	api "github.com/influxdata/influxdb-client-go/v2/api"
)

// MeasurementName is the measurement simulated pond readings are written to.
const MeasurementName = "pond_readings"

// ErrNotConfigured is returned by FromEnv when INFLUX_URL is unset.
var ErrNotConfigured = errors.New("influxdb not configured")

// Config maps the connection details required to reach InfluxDB.
type Config struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Timeout time.Duration
}

// FromEnv loads configuration values from environment variables.
// When INFLUX_URL is empty ErrNotConfigured is returned; otherwise
// INFLUX_TOKEN, INFLUX_ORG, and INFLUX_BUCKET are required.
// INFLUX_TIMEOUT is optional and defaults to 5s when not provided.
func FromEnv() (Config, error) {
	cfg := Config{
		URL:    os.Getenv("INFLUX_URL"),
		Token:  os.Getenv("INFLUX_TOKEN"),
		Org:    os.Getenv("INFLUX_ORG"),
		Bucket: os.Getenv("INFLUX_BUCKET"),
	}

	if cfg.URL == "" {
		return Config{}, ErrNotConfigured
	}
	if cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return Config{}, fmt.Errorf("missing InfluxDB configuration, ensure INFLUX_URL, INFLUX_TOKEN, INFLUX_ORG, and INFLUX_BUCKET are set")
	}

	timeout := os.Getenv("INFLUX_TIMEOUT")
	switch {
	case timeout == "":
		cfg.Timeout = 5 * time.Second
	default:
		dur, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INFLUX_TIMEOUT: %w", err)
		}
		cfg.Timeout = dur
	}

	return cfg, nil
}

// Client reads and writes pond readings in one org and bucket.
type Client struct {
	cfg    Config
	client influxdb2.Client
}

// SensorReading is one recorded field value for a pond sensor.
type SensorReading struct {
	Time       time.Time `json:"time"`
	SensorID   string    `json:"sensorId"`
	SensorName string    `json:"sensorName"`
	Location   string    `json:"location"`
	Status     string    `json:"status"`
	Field      string    `json:"field"`
	Value      float64   `json:"value"`
}

// New establishes a new InfluxDB client based on the provided configuration.
// A ping is issued to ensure the connection is healthy before returning.
func New(ctx context.Context, cfg Config) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctxPing := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctxPing, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ok, err := client.Ping(ctxPing)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping InfluxDB: %w", err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("influxdb ping failed")
	}

	return &Client{cfg: cfg, client: client}, nil
}

// WriteAPI returns the blocking write API bound to the configured org and bucket.
func (c *Client) WriteAPI() api.WriteAPIBlocking {
	return c.client.WriteAPIBlocking(c.cfg.Org, c.cfg.Bucket)
}

// QueryAPI returns the query API bound to the configured org.
func (c *Client) QueryAPI() api.QueryAPI {
	return c.client.QueryAPI(c.cfg.Org)
}

// RecentSensorReadings fetches the newest values of one sensor within the lookback window.
func (c *Client) RecentSensorReadings(ctx context.Context, sensorID string, lookback time.Duration, limit int) ([]SensorReading, error) {
	if strings.TrimSpace(sensorID) == "" {
		return nil, fmt.Errorf("sensor id is required")
	}

	flux := RecentReadingsQuery(c.cfg.Bucket, MeasurementName, sensorID, lookback, limit)
	result, err := c.QueryAPI().Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("query influx: %w", err)
	}
	defer result.Close()

	readings := make([]SensorReading, 0, max(limit, 0))
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			continue
		}

		readings = append(readings, SensorReading{
			Time:       record.Time(),
			SensorID:   stringify(record.ValueByKey("sensor_id")),
			SensorName: stringify(record.ValueByKey("sensor_name")),
			Location:   stringify(record.ValueByKey("location")),
			Status:     stringify(record.ValueByKey("status")),
			Field:      record.Field(),
			Value:      value,
		})
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate influx result: %w", err)
	}

	return readings, nil
}

// RecentReadingsQuery builds the Flux query used by RecentSensorReadings.
func RecentReadingsQuery(bucket, measurement, sensorID string, lookback time.Duration, limit int) string {
	if lookback <= 0 {
		lookback = time.Hour
	}

	flux := fmt.Sprintf(`from(bucket: %q)
|> range(start: -%s)
|> filter(fn: (r) => r["_measurement"] == %q)
|> filter(fn: (r) => r["sensor_id"] == %s)`, bucket, toFluxDuration(lookback), measurement, fluxStringLiteral(sensorID))

	flux += "\n|> sort(columns: [\"_time\"], desc: true)"
	if limit > 0 {
		flux = fmt.Sprintf("%s\n|> limit(n:%d)", flux, limit)
	}
	return flux
}

// Ping checks the InfluxDB availability using the wrapped client.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influxdb ping failed")
	}
	return nil
}

// Close releases resources held by the underlying client.
func (c *Client) Close() {
	c.client.Close()
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toFluxDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Truncate(time.Second)
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return fmt.Sprintf("%dns", d.Nanoseconds())
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func fluxStringLiteral(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", s)
}
