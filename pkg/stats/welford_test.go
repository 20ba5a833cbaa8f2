// pkg/stats/welford_test.go
package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_ZeroValue(t *testing.T) {
	var acc Accumulator

	assert.Equal(t, int64(0), acc.Count())
	assert.Equal(t, 0.0, acc.Min())
	assert.Equal(t, 0.0, acc.Max())
	assert.Equal(t, 0.0, acc.Mean())
	assert.Equal(t, 0.0, acc.PopulationVariance())
	assert.Equal(t, 0.0, acc.PopulationStdDev())
}

func TestAccumulator_SingleValue(t *testing.T) {
	var acc Accumulator
	acc.Add(21.5)

	assert.Equal(t, int64(1), acc.Count())
	assert.Equal(t, 21.5, acc.Min())
	assert.Equal(t, 21.5, acc.Max())
	assert.Equal(t, 21.5, acc.Mean())
	assert.Equal(t, 0.0, acc.PopulationStdDev())
}

func TestAccumulator_KnownSeries(t *testing.T) {
	var acc Accumulator
	for _, v := range []float64{20, 22, 24} {
		acc.Add(v)
	}

	assert.Equal(t, int64(3), acc.Count())
	assert.Equal(t, 20.0, acc.Min())
	assert.Equal(t, 24.0, acc.Max())
	assert.InDelta(t, 22.0, acc.Mean(), 1e-12)
	assert.InDelta(t, 8.0/3.0, acc.PopulationVariance(), 1e-12)
}

func TestAccumulator_NegativeValues(t *testing.T) {
	var acc Accumulator
	for _, v := range []float64{-10, -20, -30} {
		acc.Add(v)
	}

	assert.Equal(t, -30.0, acc.Min())
	assert.Equal(t, -10.0, acc.Max())
	assert.InDelta(t, -20.0, acc.Mean(), 1e-12)
}

// TestAccumulator_MatchesTwoPassReference checks the streaming figures
// against the two-pass formulas over random data.
func TestAccumulator_MatchesTwoPassReference(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	values := make([]float64, 1000)
	var acc Accumulator
	for i := range values {
		values[i] = -50 + rng.Float64()*110
		acc.Add(values[i])
	}

	assert.Equal(t, int64(len(values)), acc.Count())
	assert.InDelta(t, Mean(values), acc.Mean(), 1e-9)
	assert.InDelta(t, PopulationStdDev(values), acc.PopulationStdDev(), 1e-9)
}

// TestAccumulator_LargeOffset is the case naive sum-of-squares gets wrong:
// values with a large magnitude and a small spread.
func TestAccumulator_LargeOffset(t *testing.T) {
	var acc Accumulator
	for _, v := range []float64{1e9 + 1, 1e9 + 2, 1e9 + 3} {
		acc.Add(v)
	}

	assert.InDelta(t, 1e9+2, acc.Mean(), 1e-3)
	assert.InDelta(t, 2.0/3.0, acc.PopulationVariance(), 1e-6)
}
