package profile

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Metric selects which variable is plotted against depth.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricSalinity    Metric = "salinity"
)

// ParseMetric accepts "temperature" or "salinity". Empty selects temperature.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricTemperature:
		return MetricTemperature, nil
	case MetricSalinity:
		return MetricSalinity, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Unit returns the display unit for the metric.
func (m Metric) Unit() string {
	if m == MetricSalinity {
		return "PSU"
	}
	return "°C"
}

// Point is one chart sample: X is the metric value, Y the depth in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Points returns chart pairs in depth order.
func (s Series) Points(m Metric) []Point {
	pts := make([]Point, len(s))
	for i, r := range s {
		x := r.Temperature
		if m == MetricSalinity {
			x = r.Salinity
		}
		pts[i] = Point{X: x, Y: float64(r.Depth)}
	}
	return pts
}

// Layer is a coarse vertical region of the water column.
type Layer string

const (
	LayerMixed       Layer = "surface_mixed_layer"
	LayerThermocline Layer = "thermocline"
	LayerDeep        Layer = "deep_layer"
)

// LayerAt classifies a depth in meters.
func LayerAt(depth int) Layer {
	switch {
	case depth < 200:
		return LayerMixed
	case depth < 1000:
		return LayerThermocline
	default:
		return LayerDeep
	}
}

// VariableStats describes one variable across a series.
type VariableStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Unit   string  `json:"unit"`
}

// Summary aggregates a series for display next to the chart.
type Summary struct {
	Rows        int           `json:"rows"`
	Step        int           `json:"step"`
	Temperature VariableStats `json:"temperature"`
	Salinity    VariableStats `json:"salinity"`
	Layers      map[Layer]int `json:"layers"`
}

// Summarize computes descriptive statistics. An empty series yields a zero
// summary.
func Summarize(s Series) (Summary, error) {
	sum := Summary{Rows: len(s), Layers: make(map[Layer]int)}
	if len(s) == 0 {
		return sum, nil
	}
	if len(s) > 1 {
		sum.Step = s[1].Depth - s[0].Depth
	}

	temps := make(stats.Float64Data, len(s))
	sals := make(stats.Float64Data, len(s))
	for i, r := range s {
		temps[i] = r.Temperature
		sals[i] = r.Salinity
		sum.Layers[LayerAt(r.Depth)]++
	}

	var err error
	if sum.Temperature, err = describe(temps, MetricTemperature.Unit()); err != nil {
		return Summary{}, fmt.Errorf("temperature: %w", err)
	}
	if sum.Salinity, err = describe(sals, MetricSalinity.Unit()); err != nil {
		return Summary{}, fmt.Errorf("salinity: %w", err)
	}
	return sum, nil
}

func describe(data stats.Float64Data, unit string) (VariableStats, error) {
	minV, err := data.Min()
	if err != nil {
		return VariableStats{}, err
	}
	maxV, err := data.Max()
	if err != nil {
		return VariableStats{}, err
	}
	mean, err := data.Mean()
	if err != nil {
		return VariableStats{}, err
	}
	median, err := data.Median()
	if err != nil {
		return VariableStats{}, err
	}
	mean, _ = stats.Round(mean, 2)
	median, _ = stats.Round(median, 2)
	return VariableStats{Min: minV, Max: maxV, Mean: mean, Median: median, Unit: unit}, nil
}
