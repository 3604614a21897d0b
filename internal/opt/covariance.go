package opt

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// StandardErrors inverts the Hessian at the minimum and reports the
// per-parameter standard errors sqrt(2 * Hinv[i][i]). The factor of two
// follows from the chi-square curvature-to-variance relation: chi2 is
// twice the negative log-likelihood for Gaussian errors.
//
// When the Hessian is singular or not positive definite the errors
// cannot be computed; the returned slice is then all NaN and ok is
// false. A fit without usable uncertainties is incomplete, so callers
// must treat ok=false as an unsuccessful fit even when the objective
// itself converged.
func StandardErrors(hess *mat.SymDense) ([]float64, bool) {
	n := hess.SymmetricDim()
	errs := nanSlice(n)

	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		return errs, false
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return errs, false
	}

	ok := true
	for i := 0; i < n; i++ {
		v := 2 * inv.At(i, i)
		if v > 0 && isFinite(v) {
			errs[i] = math.Sqrt(v)
		} else {
			ok = false
		}
	}
	return errs, ok
}
