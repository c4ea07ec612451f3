// Package stats provides the descriptive statistics, trend estimation and
// anomaly detection primitives used by the domain analyzers. All functions are
// pure and return neutral results for degenerate inputs instead of errors.
package stats

import (
	"math"
	"sort"
	"time"
)

// Direction classifies how a time series is moving
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
	DirectionVolatile   Direction = "volatile"
)

// Deviation marks which side of the mean an anomaly falls on
type Deviation string

const (
	DeviationHigh Deviation = "high"
	DeviationLow  Deviation = "low"
)

// DefaultAnomalyThreshold is the minimum |z-score| to flag a point
const DefaultAnomalyThreshold = 2.0

// Point is one timestamped observation in a series
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Summary holds descriptive statistics for a series of values
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// TrendResult describes the direction and magnitude of a series' movement
type TrendResult struct {
	Direction     Direction `json:"direction"`
	PercentChange float64   `json:"percent_change"`
	Slope         float64   `json:"slope"`
}

// Anomaly is a point whose z-score magnitude exceeds the detection threshold
type Anomaly struct {
	Index     int       `json:"index"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	ZScore    float64   `json:"z_score"`
	Deviation Deviation `json:"deviation"`
}

// Describe computes descriptive statistics over values.
// An empty input yields an all-zero Summary, not an error.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	min := values[0]
	max := values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return Summary{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Min:    min,
		Max:    max,
		Count:  len(values),
	}
}

// Trend estimates the direction of a time-ordered series. The slope is an
// ordinary-least-squares fit against index position, treating points as
// equally spaced by rank rather than wall-clock distance. Fewer than two
// points yields a stable, zero-change result.
func Trend(points []Point) TrendResult {
	if len(points) < 2 {
		return TrendResult{Direction: DirectionStable}
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	n := float64(len(sorted))
	var sumX, sumY, sumXY, sumXX float64
	values := make([]float64, len(sorted))
	for i, p := range sorted {
		x := float64(i)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
		values[i] = p.Value
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)

	first := sorted[0].Value
	last := sorted[len(sorted)-1].Value
	percentChange := 0.0
	if first != 0 {
		percentChange = (last - first) / first * 100
	}

	direction := DirectionStable
	if math.Abs(percentChange) > 5 || math.Abs(slope) > 0.5 {
		if slope > 0 {
			direction = DirectionIncreasing
		} else {
			direction = DirectionDecreasing
		}
	}

	// A high coefficient of variation overrides the slope classification.
	summary := Describe(values)
	if summary.Mean != 0 {
		cv := summary.StdDev / math.Abs(summary.Mean) * 100
		if cv > 30 {
			direction = DirectionVolatile
		}
	}

	return TrendResult{
		Direction:     direction,
		PercentChange: percentChange,
		Slope:         slope,
	}
}

// DetectAnomalies flags points whose |z-score| exceeds threshold. Fewer than
// three points yields an empty result. A zero standard deviation produces
// zero z-scores, so constant series never report false anomalies.
func DetectAnomalies(points []Point, threshold float64) []Anomaly {
	if len(points) < 3 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	summary := Describe(values)

	var anomalies []Anomaly
	for i, p := range points {
		z := 0.0
		if summary.StdDev != 0 {
			z = (p.Value - summary.Mean) / summary.StdDev
		}
		if math.Abs(z) > threshold {
			deviation := DeviationLow
			if z > 0 {
				deviation = DeviationHigh
			}
			anomalies = append(anomalies, Anomaly{
				Index:     i,
				Value:     p.Value,
				Timestamp: p.Timestamp,
				ZScore:    z,
				Deviation: deviation,
			})
		}
	}

	return anomalies
}
