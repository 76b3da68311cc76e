package influxdb

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFromEnvNotConfigured(t *testing.T) {
	t.Setenv("INFLUX_URL", "")
	if _, err := FromEnv(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("INFLUX_URL", "http://localhost:8086")
	t.Setenv("INFLUX_TOKEN", "")
	t.Setenv("INFLUX_ORG", "aqua")
	t.Setenv("INFLUX_BUCKET", "ponds")
	if _, err := FromEnv(); err == nil || errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected missing configuration error, got %v", err)
	}
}

func TestFromEnvDefaultsTimeout(t *testing.T) {
	t.Setenv("INFLUX_URL", "http://localhost:8086")
	t.Setenv("INFLUX_TOKEN", "token")
	t.Setenv("INFLUX_ORG", "aqua")
	t.Setenv("INFLUX_BUCKET", "ponds")
	t.Setenv("INFLUX_TIMEOUT", "")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %s, want 5s", cfg.Timeout)
	}
}

func TestRecentReadingsQuery(t *testing.T) {
	q := RecentReadingsQuery("ponds", MeasurementName, `pond"1`, 90*time.Minute, 50)
	for _, want := range []string{
		`from(bucket: "ponds")`,
		`range(start: -90m)`,
		`r["_measurement"] == "pond_readings"`,
		`r["sensor_id"] == "pond\"1"`,
		`limit(n:50)`,
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
}

func TestToFluxDuration(t *testing.T) {
	cases := map[time.Duration]string{
		2 * time.Hour:    "2h",
		30 * time.Minute: "30m",
		45 * time.Second: "45s",
		0:                "0s",
	}
	for in, want := range cases {
		if got := toFluxDuration(in); got != want {
			t.Fatalf("toFluxDuration(%s) = %s, want %s", in, got, want)
		}
	}
}
