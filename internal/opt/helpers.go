package opt

import "math"

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func scaledSteps(steps []float64, factor float64) []float64 {
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = s * factor
	}
	return out
}

// countingFunc wraps an objective and counts every evaluation so
// finite-difference probes are charged against the call budget.
type countingFunc struct {
	f     ObjectiveFunc
	calls int
	max   int // 0 = unlimited
}

func (c *countingFunc) eval(x []float64) float64 {
	c.calls++
	return c.f(x)
}

func (c *countingFunc) exhausted() bool {
	return c.max > 0 && c.calls >= c.max
}
