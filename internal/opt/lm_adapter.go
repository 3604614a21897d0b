package opt

import (
	"github.com/maorshutman/lm"
)

// ResidualFunc fills dst with the weighted residuals at x. The squared
// residuals sum to the scalar objective.
type ResidualFunc func(dst, x []float64)

// LMAdapter wraps the external Levenberg-Marquardt library to conform
// to our Minimizer interface. It searches on the residual vector form
// of the objective; the scalar objective passed to Minimize is used for
// the final value and the curvature-based uncertainties, so both
// engines report errors through the same estimator.
type LMAdapter struct {
	residuals ResidualFunc
	size      int
}

// NewLM creates a Levenberg-Marquardt adapter for an objective with the
// given number of residual terms.
func NewLM(residuals ResidualFunc, size int) *LMAdapter {
	return &LMAdapter{
		residuals: residuals,
		size:      size,
	}
}

// Minimize runs the external LM solver and derives uncertainties from
// the finite-difference Hessian of the scalar objective at the solution.
func (a *LMAdapter) Minimize(f ObjectiveFunc, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dim := len(cfg.InitialParams)
	initial := make([]float64, dim)
	copy(initial, cfg.InitialParams)

	counter := &countingFunc{f: f, max: cfg.MaxCalls}

	numJac := lm.NumJac{Func: a.residuals}
	problem := lm.LMProblem{
		Dim:        dim,
		Size:       a.size,
		Func:       a.residuals,
		Jac:        numJac.Jac,
		InitParams: initial,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	results, err := lm.LM(problem, &lm.Settings{
		Iterations:   cfg.MaxIterations,
		ObjectiveTol: cfg.Tolerance,
	})
	if err != nil {
		fx := counter.eval(cfg.InitialParams)
		return failedResult(StatusNumericalFailure, initial, fx, 0, counter.calls), nil
	}

	x := make([]float64, dim)
	copy(x, results.X)

	fx := counter.eval(x)
	if !isFinite(fx) {
		return failedResult(StatusNumericalFailure, x, fx, 0, counter.calls), nil
	}

	hHess := scaledSteps(cfg.StepSizes, hessStepFactors[cfg.Strategy])
	hess := Hessian(counter.eval, x, fx, hHess)

	// The library does not expose its iteration count; only the calls
	// made through our counter are reported.
	res := &Result{
		Status:    StatusConverged,
		Params:    x,
		StdErrors: nanSlice(dim),
		Objective: fx,
		FuncCalls: counter.calls,
	}

	if !hessianFinite(hess) {
		res.Status = StatusNumericalFailure
		return res, nil
	}

	stderr, ok := StandardErrors(hess)
	res.StdErrors = stderr
	res.Success = ok
	return res, nil
}
