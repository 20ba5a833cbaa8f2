// pkg/stats/welford.go
package stats

import "math"

// Accumulator computes count, min, max, mean, and population standard
// deviation over a value stream in a single pass using Welford's online
// algorithm. Unlike naive sum-of-squares it stays numerically stable when
// the values are large relative to their spread.
//
// The zero value is ready to use.
type Accumulator struct {
	count int64
	min   float64
	max   float64
	mean  float64
	m2    float64
}

// Add folds one value into the accumulator.
func (a *Accumulator) Add(v float64) {
	a.count++
	if a.count == 1 {
		a.min = v
		a.max = v
		a.mean = v
		a.m2 = 0
		return
	}

	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}

	delta := v - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (v - a.mean)
}

// Count returns the number of accumulated values.
func (a *Accumulator) Count() int64 {
	return a.count
}

// Min returns the smallest accumulated value, or 0 before any Add.
func (a *Accumulator) Min() float64 {
	return a.min
}

// Max returns the largest accumulated value, or 0 before any Add.
func (a *Accumulator) Max() float64 {
	return a.max
}

// Mean returns the arithmetic mean, or 0 before any Add.
func (a *Accumulator) Mean() float64 {
	return a.mean
}

// PopulationVariance divides by count, not count-1. A single value has
// variance 0.
func (a *Accumulator) PopulationVariance() float64 {
	if a.count == 0 {
		return 0
	}
	return a.m2 / float64(a.count)
}

// PopulationStdDev is the square root of the population variance.
func (a *Accumulator) PopulationStdDev() float64 {
	return math.Sqrt(a.PopulationVariance())
}
