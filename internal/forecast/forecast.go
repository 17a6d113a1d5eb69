// Package forecast fits ordinary least-squares lines to short series and
// extrapolates them.
package forecast

// MaxSteps bounds how far a series is projected. Longer requests are
// clamped to it.
const MaxSteps = 60

// Line is y = Intercept + Slope*x over x = 0..n-1.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	N         int     `json:"n"`
}

// At evaluates the line at index x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Fit performs an OLS fit of series against its index. It returns false for
// fewer than 2 points or a zero x-variance denominator.
func Fit(series []float64) (Line, bool) {
	n := len(series)
	if n < 2 {
		return Line{}, false
	}
	nf := float64(n)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return Line{}, false
	}
	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf

	mean := sumY / nf
	var ssTot, ssRes float64
	for i, y := range series {
		pred := intercept + slope*float64(i)
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - mean) * (y - mean)
	}
	r2 := 1.0
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}
	return Line{Slope: slope, Intercept: intercept, RSquared: r2, N: n}, true
}

// Extrapolate evaluates the fitted line at n..n+steps-1. Degenerate input or
// steps <= 0 yields an empty slice; steps above MaxSteps are clamped.
func Extrapolate(series []float64, steps int) []float64 {
	if steps <= 0 {
		return []float64{}
	}
	steps = min(steps, MaxSteps)
	line, ok := Fit(series)
	if !ok {
		return []float64{}
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = line.At(float64(line.N + i))
	}
	return out
}
