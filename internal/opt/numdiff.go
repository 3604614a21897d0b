package opt

import "gonum.org/v1/gonum/mat"

// Gradient computes the central-difference gradient of f at x using the
// per-parameter perturbations h: df/dxi ~ (f(x+h·ei) - f(x-h·ei)) / 2h.
// Each component costs two objective evaluations. Non-finite objective
// values at probe points propagate into the returned slice.
func Gradient(f ObjectiveFunc, x, h []float64) []float64 {
	n := len(x)
	g := make([]float64, n)
	probe := make([]float64, n)
	copy(probe, x)

	for i := 0; i < n; i++ {
		probe[i] = x[i] + h[i]
		fp := f(probe)
		probe[i] = x[i] - h[i]
		fm := f(probe)
		probe[i] = x[i]
		g[i] = (fp - fm) / (2 * h[i])
	}
	return g
}

// Hessian computes the symmetric matrix of second derivatives of f at x
// by central differences. fx is the already-known objective value at x,
// reused for the diagonal stencil. Mixed partials use the 4-point
// stencil, so the full matrix costs 2n + 2n(n-1) evaluations.
func Hessian(f ObjectiveFunc, x []float64, fx float64, h []float64) *mat.SymDense {
	n := len(x)
	hess := mat.NewSymDense(n, nil)
	probe := make([]float64, n)
	copy(probe, x)

	for i := 0; i < n; i++ {
		probe[i] = x[i] + h[i]
		fp := f(probe)
		probe[i] = x[i] - h[i]
		fm := f(probe)
		probe[i] = x[i]
		hess.SetSym(i, i, (fp-2*fx+fm)/(h[i]*h[i]))
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			probe[i] = x[i] + h[i]
			probe[j] = x[j] + h[j]
			fpp := f(probe)
			probe[j] = x[j] - h[j]
			fpm := f(probe)
			probe[i] = x[i] - h[i]
			fmm := f(probe)
			probe[j] = x[j] + h[j]
			fmp := f(probe)
			probe[i] = x[i]
			probe[j] = x[j]
			hess.SetSym(i, j, (fpp-fpm-fmp+fmm)/(4*h[i]*h[j]))
		}
	}
	return hess
}

func hessianFinite(hess *mat.SymDense) bool {
	n := hess.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !isFinite(hess.At(i, j)) {
				return false
			}
		}
	}
	return true
}
