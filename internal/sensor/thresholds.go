package sensor

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp pins v to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Bounds groups one range per metric.
type Bounds struct {
	Temperature     Range `json:"temperature"`
	PH              Range `json:"ph"`
	DissolvedOxygen Range `json:"dissolvedOxygen"`
}

// Clamp pins every reading to its range.
func (b Bounds) Clamp(r Readings) Readings {
	return Readings{
		Temperature:     b.Temperature.Clamp(r.Temperature),
		PH:              b.PH.Clamp(r.PH),
		DissolvedOxygen: b.DissolvedOxygen.Clamp(r.DissolvedOxygen),
	}
}

var (
	// PlausibilityBounds are enforced on every simulated reading.
	PlausibilityBounds = Bounds{
		Temperature:     Range{Min: 25, Max: 35},
		PH:              Range{Min: 6, Max: 9},
		DissolvedOxygen: Range{Min: 4, Max: 8},
	}

	// DisplayThresholds flag a reading as out of range for display. They are
	// independent of PlausibilityBounds and of Status.
	DisplayThresholds = Bounds{
		Temperature:     Range{Min: 10, Max: 45},
		PH:              Range{Min: 6.5, Max: 8.5},
		DissolvedOxygen: Range{Min: 5, Max: 8},
	}
)

// OutOfRange reports whether value falls outside r.
func OutOfRange(value float64, r Range) bool {
	return value < r.Min || value > r.Max
}

// Flags marks which metrics of a reading are out of range.
type Flags struct {
	Temperature     bool `json:"temperature"`
	PH              bool `json:"ph"`
	DissolvedOxygen bool `json:"dissolvedOxygen"`
}

// Any reports whether at least one metric is flagged.
func (f Flags) Any() bool {
	return f.Temperature || f.PH || f.DissolvedOxygen
}

// Classify checks readings against the display thresholds.
func Classify(r Readings) Flags {
	return ClassifyWith(r, DisplayThresholds)
}

// ClassifyWith checks readings against arbitrary bounds.
func ClassifyWith(r Readings, b Bounds) Flags {
	return Flags{
		Temperature:     OutOfRange(r.Temperature, b.Temperature),
		PH:              OutOfRange(r.PH, b.PH),
		DissolvedOxygen: OutOfRange(r.DissolvedOxygen, b.DissolvedOxygen),
	}
}

// Metric names a single reading field.
type Metric string

const (
	MetricTemperature     Metric = "temperature"
	MetricPH              Metric = "ph"
	MetricDissolvedOxygen Metric = "dissolved_oxygen"
)

// Metrics lists every metric in display order.
var Metrics = []Metric{MetricTemperature, MetricPH, MetricDissolvedOxygen}

// Value returns the reading for m.
func (r Readings) Value(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricPH:
		return r.PH
	case MetricDissolvedOxygen:
		return r.DissolvedOxygen
	}
	return 0
}

// Range returns the range configured for m.
func (b Bounds) Range(m Metric) Range {
	switch m {
	case MetricTemperature:
		return b.Temperature
	case MetricPH:
		return b.PH
	case MetricDissolvedOxygen:
		return b.DissolvedOxygen
	}
	return Range{}
}

// Unit returns the display unit of m.
func (m Metric) Unit() string {
	switch m {
	case MetricTemperature:
		return "°C"
	case MetricDissolvedOxygen:
		return "mg/L"
	}
	return ""
}
