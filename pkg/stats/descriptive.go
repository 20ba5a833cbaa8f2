// pkg/stats/descriptive.go
package stats

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev calculates the population standard deviation (divide by
// n, not n-1), matching the figure persisted to aggregated_metrics.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Mean(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)))
}

// Median calculates the median value
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Quantile calculates the q-th quantile (0 <= q <= 1) with linear
// interpolation between closest ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	// Copy so callers' slices are not reordered
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Skewness calculates the population moment coefficient of skewness.
// Returns 0 for fewer than 3 values or zero spread.
func Skewness(values []float64) float64 {
	n := len(values)
	if n < 3 {
		return 0
	}

	mean := Mean(values)
	stddev := PopulationStdDev(values)
	if stddev == 0 {
		return 0
	}

	var sumCubed float64
	for _, v := range values {
		d := (v - mean) / stddev
		sumCubed += d * d * d
	}

	return sumCubed / float64(n)
}

// Kurtosis calculates the population excess kurtosis (normal = 0). Returns
// 0 for fewer than 4 values or zero spread.
func Kurtosis(values []float64) float64 {
	n := len(values)
	if n < 4 {
		return 0
	}

	mean := Mean(values)
	stddev := PopulationStdDev(values)
	if stddev == 0 {
		return 0
	}

	var sumQuad float64
	for _, v := range values {
		d := (v - mean) / stddev
		sumQuad += d * d * d * d
	}

	return sumQuad/float64(n) - 3.0
}

// OutlierBounds returns the Tukey fences (Q1 - 1.5*IQR, Q3 + 1.5*IQR).
func OutlierBounds(values []float64) (lower, upper float64) {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// CountIQROutliers counts values outside the Tukey fences.
func CountIQROutliers(values []float64) int {
	if len(values) < 4 {
		return 0
	}

	lower, upper := OutlierBounds(values)
	count := 0
	for _, v := range values {
		if v < lower || v > upper {
			count++
		}
	}
	return count
}

// CountZScoreOutliers counts values whose absolute z-score (population
// standard deviation) exceeds threshold.
func CountZScoreOutliers(values []float64, threshold float64) int {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	stddev := PopulationStdDev(values)
	if stddev == 0 {
		return 0
	}

	count := 0
	for _, v := range values {
		if math.Abs((v-mean)/stddev) > threshold {
			count++
		}
	}
	return count
}
