// pkg/stats/descriptive_test.go
package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 21.0, Mean([]float64{21}))
	assert.InDelta(t, 22.0, Mean([]float64{20, 22, 24}), 1e-12)
}

func TestPopulationStdDev(t *testing.T) {
	assert.Equal(t, 0.0, PopulationStdDev(nil))
	assert.Equal(t, 0.0, PopulationStdDev([]float64{5}))
	assert.InDelta(t, math.Sqrt(8.0/3.0), PopulationStdDev([]float64{20, 22, 24}), 1e-12)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{1, 3, 5}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	assert.Equal(t, 10.0, Quantile(values, 0))
	assert.Equal(t, 50.0, Quantile(values, 1))
	assert.Equal(t, 30.0, Quantile(values, 0.5))
	assert.Equal(t, 20.0, Quantile(values, 0.25))
	assert.Equal(t, 40.0, Quantile(values, 0.75))

	// Interpolation between ranks
	assert.InDelta(t, 14.0, Quantile([]float64{10, 20}, 0.4), 1e-12)

	// Out-of-range q is clamped
	assert.Equal(t, 10.0, Quantile(values, -1))
	assert.Equal(t, 50.0, Quantile(values, 2))
}

func TestQuantile_DoesNotReorderInput(t *testing.T) {
	values := []float64{5, 1, 3}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{5, 1, 3}, values)
}

func TestSkewness(t *testing.T) {
	// Too few values or no spread
	assert.Equal(t, 0.0, Skewness([]float64{1, 2}))
	assert.Equal(t, 0.0, Skewness([]float64{3, 3, 3, 3}))

	// Symmetric data has zero skew
	assert.InDelta(t, 0.0, Skewness([]float64{1, 2, 3, 4, 5}), 1e-12)

	// A long right tail skews positive
	assert.Greater(t, Skewness([]float64{1, 1, 1, 1, 100}), 0.0)
}

func TestKurtosis(t *testing.T) {
	assert.Equal(t, 0.0, Kurtosis([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Kurtosis([]float64{7, 7, 7, 7}))

	// Two-point symmetric distribution has excess kurtosis -2
	assert.InDelta(t, -2.0, Kurtosis([]float64{-1, -1, 1, 1}), 1e-12)

	// A heavy outlier pushes kurtosis positive
	assert.Greater(t, Kurtosis([]float64{0, 0, 0, 0, 0, 0, 0, 50}), 0.0)
}

func TestOutlierBounds(t *testing.T) {
	lower, upper := OutlierBounds([]float64{10, 20, 30, 40, 50})

	// Q1=20, Q3=40, IQR=20
	assert.InDelta(t, -10.0, lower, 1e-12)
	assert.InDelta(t, 70.0, upper, 1e-12)
}

func TestCountIQROutliers(t *testing.T) {
	assert.Equal(t, 0, CountIQROutliers([]float64{1, 2, 3}))
	assert.Equal(t, 0, CountIQROutliers([]float64{10, 20, 30, 40, 50}))
	assert.Equal(t, 1, CountIQROutliers([]float64{10, 20, 30, 40, 500}))
}

func TestCountZScoreOutliers(t *testing.T) {
	assert.Equal(t, 0, CountZScoreOutliers([]float64{5}, 3))
	assert.Equal(t, 0, CountZScoreOutliers([]float64{4, 4, 4, 4}, 3))

	values := make([]float64, 0, 101)
	for i := 0; i < 100; i++ {
		values = append(values, 10)
	}
	values = append(values, 1000)
	assert.Equal(t, 1, CountZScoreOutliers(values, 3))
}
