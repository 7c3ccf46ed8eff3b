package vectorindex

import (
	"fmt"
	"math"
	"strings"
)

// Metric identifies the distance function used to rank vectors.
// Smaller distances mean more similar vectors for every metric.
type Metric int

const (
	// MetricSquaredL2 is the squared Euclidean distance. This is the default
	// and matches exact flat-index ranking.
	MetricSquaredL2 Metric = iota

	// MetricCosine is the cosine distance (1 - cosine similarity).
	MetricCosine
)

// String returns the metric name used in persistence headers and CLI flags.
func (m Metric) String() string {
	switch m {
	case MetricSquaredL2:
		return "l2"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric converts a metric name ("l2" or "cosine") to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2", "":
		return MetricSquaredL2, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("vectorindex: unknown metric %q (valid values: l2, cosine)", s)
	}
}

// distance computes the metric between two equal-length vectors.
func (m Metric) distance(a, b []float32) float32 {
	switch m {
	case MetricCosine:
		return cosineDistance(a, b)
	default:
		return squaredL2(a, b)
	}
}

// squaredL2 returns the sum of squared component differences.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// cosineDistance returns 1 - cosine similarity. Zero vectors are treated as
// maximally distant.
func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	sim := dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1 - sim
}
