package opt

import (
	"math"
	"testing"
)

func testConfig(initial, steps []float64) Config {
	cfg := DefaultConfig(initial, steps)
	cfg.Strategy = 2
	return cfg
}

func TestMinimizeQuadratic(t *testing.T) {
	// Minimum of 3x^2 + 2y^2 + xy + 4x - y + 7 solves
	// 6x + y = -4, x + 4y = 1  =>  x = -17/23, y = 10/23
	cfg := testConfig([]float64{5, -5}, []float64{0.1, 0.1})

	res, err := NewNewton().Minimize(quadratic, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Minimize failed: status=%s", res.Status)
	}
	if res.Status != StatusConverged {
		t.Errorf("Expected converged status, got %s", res.Status)
	}

	wantX, wantY := -17.0/23.0, 10.0/23.0
	if math.Abs(res.Params[0]-wantX) > 1e-6 {
		t.Errorf("x: expected %v, got %v", wantX, res.Params[0])
	}
	if math.Abs(res.Params[1]-wantY) > 1e-6 {
		t.Errorf("y: expected %v, got %v", wantY, res.Params[1])
	}

	// Errors from the inverse curvature: Hinv diag of [[6,1],[1,4]]
	// is [4/23, 6/23]; stderr = sqrt(2 * diag).
	wantEX := math.Sqrt(2 * 4.0 / 23.0)
	wantEY := math.Sqrt(2 * 6.0 / 23.0)
	if math.Abs(res.StdErrors[0]-wantEX) > 1e-4 {
		t.Errorf("stderr x: expected %v, got %v", wantEX, res.StdErrors[0])
	}
	if math.Abs(res.StdErrors[1]-wantEY) > 1e-4 {
		t.Errorf("stderr y: expected %v, got %v", wantEY, res.StdErrors[1])
	}
}

func TestMinimizeIdempotentFromMinimum(t *testing.T) {
	cfg := testConfig([]float64{5, -5}, []float64{0.1, 0.1})
	first, err := NewNewton().Minimize(quadratic, cfg)
	if err != nil || !first.Success {
		t.Fatalf("First run failed: err=%v", err)
	}

	cfg2 := testConfig(first.Params, []float64{0.1, 0.1})
	second, err := NewNewton().Minimize(quadratic, cfg2)
	if err != nil {
		t.Fatalf("Second run returned config error: %v", err)
	}
	if !second.Success {
		t.Fatalf("Re-run from the minimum failed: status=%s", second.Status)
	}
	if second.Iterations > 1 {
		t.Errorf("Re-run from the minimum should take at most one iteration, took %d", second.Iterations)
	}
	for i := range first.Params {
		if math.Abs(second.Params[i]-first.Params[i]) > 1e-6 {
			t.Errorf("Parameter %d drifted on re-run: %v -> %v", i, first.Params[i], second.Params[i])
		}
	}
}

func TestMinimizeMonotonic(t *testing.T) {
	// Non-quadratic bowl so the run takes several iterations
	f := func(p []float64) float64 {
		x, y := p[0], p[1]
		return math.Pow(x-1, 4) + math.Pow(y+2, 4) + x*x + y*y
	}

	var history []float64
	cfg := testConfig([]float64{6, -8}, []float64{0.5, 0.5})
	cfg.Progress = func(u ProgressUpdate) {
		history = append(history, u.Objective)
	}

	res, err := NewNewton().Minimize(f, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if res.Status != StatusConverged {
		t.Fatalf("Expected convergence, got %s", res.Status)
	}

	if len(history) == 0 {
		t.Fatal("Progress callback never fired")
	}
	for i := 1; i < len(history); i++ {
		if history[i] > history[i-1] {
			t.Errorf("Objective increased at iteration %d: %v -> %v", i+1, history[i-1], history[i])
		}
	}
}

func TestMinimizeZeroIterationBudget(t *testing.T) {
	cfg := testConfig([]float64{5, -5}, []float64{0.1, 0.1})
	cfg.MaxIterations = 0

	res, err := NewNewton().Minimize(quadratic, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if res.Success {
		t.Error("Zero iteration budget must not report success")
	}
	if res.Status != StatusMaxIterations {
		t.Errorf("Expected max_iterations status, got %s", res.Status)
	}
	if res.Params[0] != 5 || res.Params[1] != -5 {
		t.Errorf("Initial parameters must be unchanged, got %v", res.Params)
	}
	if res.FuncCalls > 1 {
		t.Errorf("Only the initial diagnostic evaluation is allowed, got %d calls", res.FuncCalls)
	}
	if res.Iterations != 0 {
		t.Errorf("Expected 0 iterations, got %d", res.Iterations)
	}
}

func TestMinimizeCallBudget(t *testing.T) {
	cfg := testConfig([]float64{50, -50}, []float64{0.1, 0.1})
	cfg.MaxCalls = 5 // not even enough for one gradient+Hessian pass

	res, err := NewNewton().Minimize(quadratic, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if res.Success {
		t.Error("Exhausted call budget must not report success")
	}
	if res.Status != StatusMaxCalls {
		t.Errorf("Expected max_calls status, got %s", res.Status)
	}
}

func TestMinimizeNonFiniteObjective(t *testing.T) {
	f := func(p []float64) float64 { return math.NaN() }

	cfg := testConfig([]float64{1}, []float64{0.1})
	res, err := NewNewton().Minimize(f, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if res.Success {
		t.Error("NaN objective must not report success")
	}
	if res.Status != StatusNumericalFailure {
		t.Errorf("Expected numerical_failure status, got %s", res.Status)
	}
	for _, e := range res.StdErrors {
		if !math.IsNaN(e) {
			t.Errorf("Errors should be NaN after failure, got %v", res.StdErrors)
		}
	}
}

func TestMinimizeNonFiniteGradientProbe(t *testing.T) {
	// Finite at the start, NaN at any perturbed point
	start := []float64{1.0}
	f := func(p []float64) float64 {
		if p[0] != start[0] {
			return math.NaN()
		}
		return 1.0
	}

	cfg := testConfig(start, []float64{0.1})
	res, err := NewNewton().Minimize(f, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if res.Status != StatusNumericalFailure {
		t.Errorf("Expected numerical_failure status, got %s", res.Status)
	}
}

func TestMinimizeConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no parameters", Config{Tolerance: 1e-6, MaxIterations: 10}},
		{"step count mismatch", Config{InitialParams: []float64{1, 2}, StepSizes: []float64{0.1}, Tolerance: 1e-6, MaxIterations: 10}},
		{"zero step", Config{InitialParams: []float64{1}, StepSizes: []float64{0}, Tolerance: 1e-6, MaxIterations: 10}},
		{"negative step", Config{InitialParams: []float64{1}, StepSizes: []float64{-0.1}, Tolerance: 1e-6, MaxIterations: 10}},
		{"zero tolerance", Config{InitialParams: []float64{1}, StepSizes: []float64{0.1}, Tolerance: 0, MaxIterations: 10}},
		{"bad strategy", Config{InitialParams: []float64{1}, StepSizes: []float64{0.1}, Tolerance: 1e-6, MaxIterations: 10, Strategy: 3}},
	}

	for _, tc := range cases {
		if _, err := NewNewton().Minimize(quadratic, tc.cfg); err == nil {
			t.Errorf("%s: expected config error", tc.name)
		}
	}
}

func TestMinimizeSteepDescentFallback(t *testing.T) {
	// Concave at the start so the Hessian is not positive definite there
	f := func(p []float64) float64 {
		x := p[0]
		return x*x*x*x - 4*x*x // minima at x = +-sqrt(2)
	}

	cfg := testConfig([]float64{0.3}, []float64{0.1})
	res, err := NewNewton().Minimize(f, cfg)
	if err != nil {
		t.Fatalf("Minimize returned config error: %v", err)
	}
	if res.Status != StatusConverged {
		t.Fatalf("Expected convergence via fallback, got %s", res.Status)
	}
	want := math.Sqrt(2)
	if math.Abs(math.Abs(res.Params[0])-want) > 1e-4 {
		t.Errorf("Expected |x| near sqrt(2), got %v", res.Params[0])
	}
}
