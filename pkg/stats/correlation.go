// pkg/stats/correlation.go
package stats

import "math"

// Pearson calculates the Pearson correlation coefficient between two
// equal-length series. Returns 0 when either series has zero variance or
// fewer than 2 points.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}

	meanX := Mean(xs)
	meanY := Mean(ys)

	var covXY, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}

	return covXY / math.Sqrt(varX*varY)
}
