package model

import (
	"fmt"
	"math"
)

// Func predicts a value at the given covariate for a parameter vector.
// Implementations must be pure and total: any parameter vector, including
// a physically nonsensical one, must produce a value without panicking.
type Func func(params []float64, covariate float64) float64

// ExpDecay is the radioactive decay law A(t) = A0 * exp(-lambda * t).
// params[0] = lambda, params[1] = A0.
func ExpDecay(params []float64, t float64) float64 {
	lambda := params[0]
	a0 := params[1]
	return a0 * math.Exp(-lambda*t)
}

// Linear is the straight line y = a*t + b.
// params[0] = a (slope), params[1] = b (intercept).
func Linear(params []float64, t float64) float64 {
	return params[0]*t + params[1]
}

// Spec describes a named model: the prediction function, the number of
// free parameters and their display names.
type Spec struct {
	Name       string
	Func       Func
	ParamNames []string
}

var registry = map[string]Spec{
	"expdecay": {Name: "expdecay", Func: ExpDecay, ParamNames: []string{"lambda", "A0"}},
	"linear":   {Name: "linear", Func: Linear, ParamNames: []string{"slope", "intercept"}},
}

// ByName looks up a registered model.
func ByName(name string) (Spec, error) {
	spec, ok := registry[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown model: %s", name)
	}
	return spec, nil
}

// Names returns the registered model names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
