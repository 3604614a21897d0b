package data

import (
	"fmt"
	"math"
)

// Observation is a single measured point with asymmetric uncertainty.
// ErrMinus applies when the model prediction falls below the measured
// value, ErrPlus when it falls above.
type Observation struct {
	Value     float64 `json:"value"`
	Covariate float64 `json:"covariate"`
	ErrMinus  float64 `json:"errMinus"`
	ErrPlus   float64 `json:"errPlus"`
}

// NewObservation validates and constructs an observation.
// Error bars must be strictly positive and finite; a zero error bar
// would divide the objective by zero.
func NewObservation(value, covariate, errMinus, errPlus float64) (Observation, error) {
	o := Observation{
		Value:     value,
		Covariate: covariate,
		ErrMinus:  errMinus,
		ErrPlus:   errPlus,
	}
	if err := o.Validate(); err != nil {
		return Observation{}, err
	}
	return o, nil
}

// Validate checks the observation invariants.
func (o Observation) Validate() error {
	if !isFinite(o.Value) || !isFinite(o.Covariate) {
		return fmt.Errorf("observation at covariate %v: value and covariate must be finite", o.Covariate)
	}
	if !(o.ErrMinus > 0) || !isFinite(o.ErrMinus) {
		return fmt.Errorf("observation at covariate %v: errMinus must be positive and finite, got %v", o.Covariate, o.ErrMinus)
	}
	if !(o.ErrPlus > 0) || !isFinite(o.ErrPlus) {
		return fmt.Errorf("observation at covariate %v: errPlus must be positive and finite, got %v", o.Covariate, o.ErrPlus)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
