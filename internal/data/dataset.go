package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Dataset is an immutable ordered collection of observations.
// Construction validates every point; afterwards the dataset only hands
// out copies, so callers cannot mutate it under a running fit.
type Dataset struct {
	obs []Observation
}

// NewDataset validates all observations and wraps them in a dataset.
func NewDataset(obs []Observation) (*Dataset, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("dataset must contain at least one observation")
	}
	for i, o := range obs {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	copied := make([]Observation, len(obs))
	copy(copied, obs)
	return &Dataset{obs: copied}, nil
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return len(d.obs)
}

// Observations returns a copy of the observation slice.
func (d *Dataset) Observations() []Observation {
	out := make([]Observation, len(d.obs))
	copy(out, d.obs)
	return out
}

// CovariateRange returns the smallest and largest covariate in the dataset.
func (d *Dataset) CovariateRange() (lo, hi float64) {
	lo, hi = d.obs[0].Covariate, d.obs[0].Covariate
	for _, o := range d.obs[1:] {
		if o.Covariate < lo {
			lo = o.Covariate
		}
		if o.Covariate > hi {
			hi = o.Covariate
		}
	}
	return lo, hi
}

// LoadCSV reads observations from a CSV file with columns
// covariate,value,errMinus,errPlus. A header row is skipped if the first
// field does not parse as a number.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset file %s is empty", path)
	}

	var obs []Observation
	for i, rec := range records {
		if len(rec) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 columns, got %d", i+1, len(rec))
		}
		fields := make([]float64, 4)
		parseErr := false
		for j, s := range rec {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				parseErr = true
				break
			}
			fields[j] = v
		}
		if parseErr {
			// Tolerate a single header row at the top
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: non-numeric field in %v", i+1, rec)
		}
		o, err := NewObservation(fields[1], fields[0], fields[2], fields[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		obs = append(obs, o)
	}

	return NewDataset(obs)
}

// DecaySample returns the built-in radioactive decay pseudo-experiment
// (nine activity measurements generated from A0=1000, lambda=0.1).
func DecaySample() *Dataset {
	points := []Observation{
		{Value: 995.0, Covariate: 0.0, ErrMinus: 30.0, ErrPlus: 30.0},
		{Value: 615.0, Covariate: 5.0, ErrMinus: 20.0, ErrPlus: 20.0},
		{Value: 375.0, Covariate: 10.0, ErrMinus: 15.0, ErrPlus: 15.0},
		{Value: 220.0, Covariate: 15.0, ErrMinus: 10.0, ErrPlus: 10.0},
		{Value: 140.0, Covariate: 20.0, ErrMinus: 8.0, ErrPlus: 8.0},
		{Value: 85.0, Covariate: 25.0, ErrMinus: 5.0, ErrPlus: 5.0},
		{Value: 51.0, Covariate: 30.0, ErrMinus: 4.0, ErrPlus: 4.0},
		{Value: 32.0, Covariate: 35.0, ErrMinus: 3.0, ErrPlus: 3.0},
		{Value: 17.5, Covariate: 40.0, ErrMinus: 2.0, ErrPlus: 2.0},
	}
	ds, err := NewDataset(points)
	if err != nil {
		// The sample is hardcoded and always valid
		panic(err)
	}
	return ds
}
