package opt

const (
	// armijoC1 is the sufficient-decrease coefficient.
	armijoC1 = 1e-4
	// maxHalvings bounds the backtracking loop.
	maxHalvings = 40
	// minAlpha is the smallest step length worth trying.
	minAlpha = 1e-14
)

// backtrack finds a step length along dir that sufficiently decreases f,
// starting at alpha=1 and halving. slope is the directional derivative
// g·dir and must be negative for dir to be a descent direction.
// Non-finite trial values are rejected the same way as non-decreasing
// ones, so an objective that blows up far from the minimum just forces a
// shorter step. Returns ok=false when no acceptable step exists within
// the halving budget.
func backtrack(f func([]float64) float64, x, dir []float64, fx, slope float64) (alpha, fNew float64, ok bool) {
	if slope >= 0 {
		return 0, fx, false
	}

	trial := make([]float64, len(x))
	alpha = 1.0
	for i := 0; i < maxHalvings && alpha >= minAlpha; i++ {
		for j := range x {
			trial[j] = x[j] + alpha*dir[j]
		}
		fTrial := f(trial)
		if isFinite(fTrial) && fTrial < fx+armijoC1*alpha*slope {
			return alpha, fTrial, true
		}
		alpha /= 2
	}
	return 0, fx, false
}
