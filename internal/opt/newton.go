package opt

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Finite-difference step factors per strategy level. The gradient uses a
// tighter step than the Hessian because the first-difference stencil is
// less sensitive to round-off.
var (
	gradStepFactors = [3]float64{1e-2, 1e-3, 1e-4}
	hessStepFactors = [3]float64{1e-1, 3e-2, 1e-2}
)

// relStepTol is the relative parameter-change threshold below which a
// step counts as no movement.
const relStepTol = 1e-10

// Newton is a derivative-based minimizer: central-difference gradient
// and Hessian, Newton direction via Cholesky with a steepest-descent
// fallback, and a backtracking line search. It owns the evolving
// parameter vector for the duration of one Minimize call and is safely
// reentrant across independent calls.
type Newton struct{}

// NewNewton creates a Newton minimizer.
func NewNewton() *Newton {
	return &Newton{}
}

// Minimize runs the iteration loop until convergence, budget exhaustion
// or numerical failure. It never panics on misbehaving objectives; every
// failure mode degrades to a well-formed Result with Success=false.
func (n *Newton) Minimize(f ObjectiveFunc, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dim := len(cfg.InitialParams)
	x := make([]float64, dim)
	copy(x, cfg.InitialParams)

	counter := &countingFunc{f: f, max: cfg.MaxCalls}

	// Initial diagnostic evaluation
	fx := counter.eval(x)
	if !isFinite(fx) {
		slog.Warn("Objective not finite at initial parameters", "objective", fx)
		return failedResult(StatusNumericalFailure, x, fx, 0, counter.calls), nil
	}

	hGrad := scaledSteps(cfg.StepSizes, gradStepFactors[cfg.Strategy])
	hHess := scaledSteps(cfg.StepSizes, hessStepFactors[cfg.Strategy])

	var lastHess *mat.SymDense
	status := StatusMaxIterations
	iterations := 0

	for iterations < cfg.MaxIterations {
		if counter.exhausted() {
			status = StatusMaxCalls
			break
		}

		grad := Gradient(counter.eval, x, hGrad)
		if !allFinite(grad) {
			slog.Warn("Gradient not finite", "iteration", iterations+1)
			status = StatusNumericalFailure
			break
		}

		hess := Hessian(counter.eval, x, fx, hHess)
		if !hessianFinite(hess) {
			slog.Warn("Hessian not finite", "iteration", iterations+1)
			status = StatusNumericalFailure
			break
		}
		lastHess = hess

		if counter.exhausted() {
			status = StatusMaxCalls
			break
		}

		// Newton direction; degrade to preconditioned steepest descent
		// when the Hessian is not positive definite or the solve does
		// not yield a descent direction.
		dir, solved := newtonDirection(hess, grad)
		slope := math.Inf(1)
		if solved {
			slope = dot(grad, dir)
		}
		if !solved || slope >= 0 {
			dir = preconditionedDescent(grad, cfg.StepSizes)
			slope = dot(grad, dir)
		}

		// Estimated distance to minimum along the chosen direction. At a
		// converged point this is below tolerance before any step is
		// taken, so re-running from a minimum terminates immediately.
		edm := -0.5 * slope
		if edm < cfg.Tolerance {
			iterations++
			status = StatusConverged
			break
		}

		alpha, fNew, ok := backtrack(counter.eval, x, dir, fx, slope)
		if !ok {
			// One retry along the preconditioned gradient before
			// giving up on this run.
			dir = preconditionedDescent(grad, cfg.StepSizes)
			slope = dot(grad, dir)
			alpha, fNew, ok = backtrack(counter.eval, x, dir, fx, slope)
			if !ok {
				slog.Warn("Line search stalled", "iteration", iterations+1, "objective", fx)
				status = StatusStalled
				break
			}
		}

		moved := false
		for i := range x {
			step := alpha * dir[i]
			if math.Abs(step) > relStepTol*(math.Abs(x[i])+relStepTol) {
				moved = true
			}
			x[i] += step
		}

		delta := fx - fNew
		fx = fNew
		iterations++

		slog.Debug("Iteration complete",
			"iteration", iterations,
			"objective", fx,
			"delta", delta,
			"alpha", alpha,
			"calls", counter.calls,
		)

		if cfg.Progress != nil {
			snapshot := make([]float64, dim)
			copy(snapshot, x)
			cfg.Progress(ProgressUpdate{
				Iteration: iterations,
				Objective: fx,
				Params:    snapshot,
				FuncCalls: counter.calls,
			})
		}

		if delta < cfg.Tolerance || !moved {
			status = StatusConverged
			break
		}

		if counter.exhausted() {
			status = StatusMaxCalls
			break
		}
	}

	res := &Result{
		Status:     status,
		Params:     x,
		StdErrors:  nanSlice(dim),
		Objective:  fx,
		Iterations: iterations,
		FuncCalls:  counter.calls,
	}

	if status != StatusConverged {
		slog.Info("Minimization did not converge", "status", status, "iterations", iterations, "calls", counter.calls)
		return res, nil
	}

	// Uncertainties from the curvature at the minimum. Higher strategy
	// levels recompute the Hessian at the final parameters; strategy 2
	// additionally refines it with a halved finite-difference step.
	covHess := lastHess
	if cfg.Strategy >= 1 || covHess == nil {
		covHess = refreshHessian(counter.eval, x, fx, hHess, covHess)
	}
	if cfg.Strategy == 2 {
		covHess = refreshHessian(counter.eval, x, fx, scaledSteps(hHess, 0.5), covHess)
	}

	if covHess == nil {
		res.Status = StatusNumericalFailure
		return res, nil
	}

	stderr, ok := StandardErrors(covHess)
	res.StdErrors = stderr
	res.Success = ok
	if !ok {
		slog.Warn("Hessian not positive definite at minimum; uncertainties unavailable")
	}

	slog.Info("Minimization complete",
		"status", res.Status,
		"success", res.Success,
		"objective", res.Objective,
		"iterations", res.Iterations,
		"calls", res.FuncCalls,
	)
	return res, nil
}

// refreshHessian recomputes the Hessian and keeps the previous one when
// the recomputation picks up non-finite values.
func refreshHessian(f func([]float64) float64, x []float64, fx float64, h []float64, prev *mat.SymDense) *mat.SymDense {
	hess := Hessian(f, x, fx, h)
	if !hessianFinite(hess) {
		return prev
	}
	return hess
}

// newtonDirection solves hess * d = -grad by Cholesky factorization.
// Failure to factorize means the Hessian is not positive definite.
func newtonDirection(hess *mat.SymDense, grad []float64) ([]float64, bool) {
	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		return nil, false
	}

	n := len(grad)
	rhs := mat.NewVecDense(n, nil)
	for i, g := range grad {
		rhs.SetVec(i, -g)
	}

	var d mat.VecDense
	if err := chol.SolveVecTo(&d, rhs); err != nil {
		return nil, false
	}

	dir := make([]float64, n)
	for i := range dir {
		dir[i] = d.AtVec(i)
	}
	if !allFinite(dir) {
		return nil, false
	}
	return dir, true
}

// preconditionedDescent is the degraded steepest-descent direction,
// scaled per parameter by the squared step size so parameters of very
// different magnitudes move at comparable rates.
func preconditionedDescent(grad, steps []float64) []float64 {
	dir := make([]float64, len(grad))
	for i, g := range grad {
		dir[i] = -g * steps[i] * steps[i]
	}
	return dir
}

func failedResult(status Status, x []float64, fx float64, iterations, calls int) *Result {
	return &Result{
		Status:     status,
		Params:     x,
		StdErrors:  nanSlice(len(x)),
		Objective:  fx,
		Iterations: iterations,
		FuncCalls:  calls,
	}
}
