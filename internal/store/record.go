package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// JSONFloats is a float slice whose non-finite values are serialized as
// null, so records of failed fits (NaN standard errors) still produce
// valid JSON.
type JSONFloats []float64

// MarshalJSON implements json.Marshaler.
func (f JSONFloats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler; null entries become NaN.
func (f *JSONFloats) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]float64, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*f = out
	return nil
}

// JSONFloat is a scalar with the same null convention as JSONFloats.
type JSONFloat float64

// MarshalJSON implements json.Marshaler.
func (v JSONFloat) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *JSONFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = JSONFloat(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = JSONFloat(f)
	return nil
}

// JobConfig holds the configuration of a fit job (persisted copy).
// Kept here rather than in the server package to avoid import cycles.
type JobConfig struct {
	// DataPath is the CSV dataset path; empty means the built-in
	// decay sample.
	DataPath      string    `json:"dataPath,omitempty"`
	Model         string    `json:"model"`
	Engine        string    `json:"engine,omitempty"`
	InitialParams []float64 `json:"initialParams"`
	StepSizes     []float64 `json:"stepSizes"`
	Tolerance     float64   `json:"tolerance"`
	MaxIterations int       `json:"maxIterations"`
	MaxCalls      int       `json:"maxCalls"`
	Strategy      int       `json:"strategy"`
}

// FitRecord is the persisted outcome of one fit job. All fields are
// serialized to JSON as record.json in the job directory; the iteration
// history lives next to it in trace.jsonl.
type FitRecord struct {
	// JobID is the unique identifier for this fit job
	JobID string `json:"jobId"`

	// Success reports whether the fit converged with usable uncertainties
	Success bool `json:"success"`

	// Status is the terminal state of the minimization run
	Status string `json:"status"`

	// Params are the best-fit parameter values
	Params []float64 `json:"params"`

	// StdErrors are the curvature-based standard errors (NaN values are
	// serialized as null)
	StdErrors JSONFloats `json:"stdErrors"`

	// Chi2 is the objective value at the best parameters
	Chi2 JSONFloat `json:"chi2"`

	// Iterations and FuncCalls are the consumed budgets
	Iterations int `json:"iterations"`
	FuncCalls  int `json:"funcCalls"`

	// Timestamp records when the record was created
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, kept for reproducing the fit
	Config JobConfig `json:"config"`
}

// RecordInfo contains metadata about a record without the parameter
// payload. Used for listing records efficiently.
type RecordInfo struct {
	JobID      string    `json:"jobId"`
	Success    bool      `json:"success"`
	Status     string    `json:"status"`
	Chi2       JSONFloat `json:"chi2"`
	Iterations int       `json:"iterations"`
	Timestamp  time.Time `json:"timestamp"`
	Model      string    `json:"model"`
	Engine     string    `json:"engine"`
}

// NewFitRecord creates a record from job state.
func NewFitRecord(jobID string, success bool, status string, params, stdErrors []float64, chi2 float64, iterations, funcCalls int, config JobConfig) *FitRecord {
	return &FitRecord{
		JobID:      jobID,
		Success:    success,
		Status:     status,
		Params:     params,
		StdErrors:  JSONFloats(stdErrors),
		Chi2:       JSONFloat(chi2),
		Iterations: iterations,
		FuncCalls:  funcCalls,
		Timestamp:  time.Now(),
		Config:     config,
	}
}

// ToInfo converts a full FitRecord to its metadata view.
func (r *FitRecord) ToInfo() RecordInfo {
	return RecordInfo{
		JobID:      r.JobID,
		Success:    r.Success,
		Status:     r.Status,
		Chi2:       r.Chi2,
		Iterations: r.Iterations,
		Timestamp:  r.Timestamp,
		Model:      r.Config.Model,
		Engine:     r.Config.Engine,
	}
}

// Validate checks that the record is complete enough to persist.
func (r *FitRecord) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(r.Params) == 0 {
		return &ValidationError{Field: "Params", Reason: "cannot be empty"}
	}
	if len(r.StdErrors) != len(r.Params) {
		return &ValidationError{Field: "StdErrors", Reason: fmt.Sprintf("length %d does not match %d parameters", len(r.StdErrors), len(r.Params))}
	}
	if r.Status == "" {
		return &ValidationError{Field: "Status", Reason: "cannot be empty"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.FuncCalls < 0 {
		return &ValidationError{Field: "FuncCalls", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.Model == "" {
		return &ValidationError{Field: "Config.Model", Reason: "cannot be empty"}
	}
	if len(r.Config.InitialParams) != len(r.Params) {
		return &ValidationError{Field: "Config.InitialParams", Reason: "length mismatch with Params"}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
