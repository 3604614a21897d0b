package opt

import (
	"fmt"
	"math"
)

// ObjectiveFunc evaluates the scalar objective at a parameter vector.
// It must be deterministic and total: any input, including a physically
// nonsensical one, must return a value (possibly NaN or +Inf) without
// panicking.
type ObjectiveFunc func(params []float64) float64

// Minimizer drives an objective function to a local minimum.
// A returned error indicates rejected configuration; run outcomes
// (convergence, budget exhaustion, numerical failure) are reported
// through the Result instead.
type Minimizer interface {
	Minimize(f ObjectiveFunc, cfg Config) (*Result, error)
}

// Status is the terminal state of a minimization run.
type Status string

const (
	// StatusConverged means the tolerance was met.
	StatusConverged Status = "converged"
	// StatusMaxIterations means the iteration budget ran out first.
	StatusMaxIterations Status = "max_iterations"
	// StatusMaxCalls means the function-evaluation budget ran out first.
	StatusMaxCalls Status = "max_calls"
	// StatusNumericalFailure means a non-finite objective, gradient or
	// Hessian value was encountered.
	StatusNumericalFailure Status = "numerical_failure"
	// StatusStalled means the line search could not reduce the objective
	// even along the fallback direction.
	StatusStalled Status = "stalled"
)

// ProgressUpdate is passed to the optional per-iteration callback.
type ProgressUpdate struct {
	Iteration int
	Objective float64
	Params    []float64
	FuncCalls int
}

// Config holds the per-parameter seeds and the stopping policy for one
// minimization run.
type Config struct {
	// InitialParams is the starting parameter vector. Its length fixes
	// the dimensionality of the search.
	InitialParams []float64

	// StepSizes holds one positive scale per parameter. They seed the
	// finite-difference perturbations and precondition the fallback
	// descent direction.
	StepSizes []float64

	// Tolerance is the function-value convergence tolerance.
	Tolerance float64

	// MaxIterations bounds the outer iterations. Zero makes the run
	// terminate immediately after the initial diagnostic evaluation.
	MaxIterations int

	// MaxCalls bounds the total objective evaluations, including
	// finite-difference probes. Zero means unlimited.
	MaxCalls int

	// Strategy trades function-call budget for numerical accuracy:
	// 0 = cheap, 1 = default, 2 = thorough (tighter finite-difference
	// steps, extra Hessian refinement at the minimum).
	Strategy int

	// Progress, if non-nil, is invoked after each completed iteration.
	Progress func(ProgressUpdate)
}

// DefaultConfig returns a config with the stopping policy used by the
// built-in decay fit: tolerance 1e-6, budgets of 10000.
func DefaultConfig(initial, steps []float64) Config {
	return Config{
		InitialParams: initial,
		StepSizes:     steps,
		Tolerance:     1e-6,
		MaxIterations: 10000,
		MaxCalls:      10000,
		Strategy:      1,
	}
}

// Validate rejects invalid configuration eagerly, before any objective
// evaluation happens.
func (c Config) Validate() error {
	if len(c.InitialParams) == 0 {
		return fmt.Errorf("config: at least one parameter is required")
	}
	if len(c.StepSizes) != len(c.InitialParams) {
		return fmt.Errorf("config: %d step sizes for %d parameters", len(c.StepSizes), len(c.InitialParams))
	}
	for i, p := range c.InitialParams {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("config: initial parameter %d is not finite", i)
		}
	}
	for i, s := range c.StepSizes {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("config: step size %d must be positive and finite, got %v", i, s)
		}
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("config: tolerance must be positive, got %v", c.Tolerance)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("config: max iterations must not be negative, got %d", c.MaxIterations)
	}
	if c.MaxCalls < 0 {
		return fmt.Errorf("config: max calls must not be negative, got %d", c.MaxCalls)
	}
	if c.Strategy < 0 || c.Strategy > 2 {
		return fmt.Errorf("config: strategy must be 0, 1 or 2, got %d", c.Strategy)
	}
	return nil
}

// Result is the immutable outcome of one minimization run.
// When Success is false, Params and StdErrors are best-effort values and
// StdErrors may be NaN.
type Result struct {
	Success    bool      `json:"success"`
	Status     Status    `json:"status"`
	Params     []float64 `json:"params"`
	StdErrors  []float64 `json:"stdErrors"`
	Objective  float64   `json:"objective"`
	Iterations int       `json:"iterations"`
	FuncCalls  int       `json:"funcCalls"`
}
