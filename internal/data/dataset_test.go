package data

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewObservationValid(t *testing.T) {
	o, err := NewObservation(995.0, 0.0, 30.0, 30.0)
	if err != nil {
		t.Fatalf("Valid observation rejected: %v", err)
	}
	if o.Value != 995.0 || o.Covariate != 0.0 {
		t.Errorf("Observation fields not preserved: %+v", o)
	}
}

func TestNewObservationRejectsZeroError(t *testing.T) {
	if _, err := NewObservation(100, 1, 0, 5); err == nil {
		t.Error("Zero errMinus should be rejected")
	}
	if _, err := NewObservation(100, 1, 5, 0); err == nil {
		t.Error("Zero errPlus should be rejected")
	}
}

func TestNewObservationRejectsNegativeError(t *testing.T) {
	if _, err := NewObservation(100, 1, -3, 5); err == nil {
		t.Error("Negative errMinus should be rejected")
	}
}

func TestNewObservationRejectsNonFinite(t *testing.T) {
	if _, err := NewObservation(math.NaN(), 1, 3, 5); err == nil {
		t.Error("NaN value should be rejected")
	}
	if _, err := NewObservation(100, 1, math.Inf(1), 5); err == nil {
		t.Error("Infinite error bar should be rejected")
	}
}

func TestNewDatasetRejectsEmpty(t *testing.T) {
	if _, err := NewDataset(nil); err == nil {
		t.Error("Empty dataset should be rejected")
	}
}

func TestNewDatasetRejectsInvalidPoint(t *testing.T) {
	obs := []Observation{
		{Value: 10, Covariate: 0, ErrMinus: 1, ErrPlus: 1},
		{Value: 10, Covariate: 1, ErrMinus: 0, ErrPlus: 1},
	}
	if _, err := NewDataset(obs); err == nil {
		t.Error("Dataset with zero error bar should be rejected")
	}
}

func TestDatasetObservationsReturnsCopy(t *testing.T) {
	ds := DecaySample()
	obs := ds.Observations()
	obs[0].Value = -1

	again := ds.Observations()
	if again[0].Value == -1 {
		t.Error("Mutating the returned slice should not affect the dataset")
	}
}

func TestDecaySample(t *testing.T) {
	ds := DecaySample()
	if ds.Len() != 9 {
		t.Errorf("Expected 9 sample points, got %d", ds.Len())
	}

	lo, hi := ds.CovariateRange()
	if lo != 0 || hi != 40 {
		t.Errorf("Expected covariate range [0, 40], got [%v, %v]", lo, hi)
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decay.csv")

	content := "t,activity,errMinus,errPlus\n0,995,30,30\n5,615,20,20\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	ds, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Expected 2 observations, got %d", ds.Len())
	}

	obs := ds.Observations()
	if obs[0].Covariate != 0 || obs[0].Value != 995 {
		t.Errorf("First observation wrong: %+v", obs[0])
	}
	if obs[1].ErrPlus != 20 {
		t.Errorf("Second observation wrong: %+v", obs[1])
	}
}

func TestLoadCSVRejectsBadRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")

	content := "0,995,30,30\n5,abc,20,20\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadCSV(path); err == nil {
		t.Error("Non-numeric field past the header should be rejected")
	}
}

func TestLoadCSVRejectsZeroError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zero.csv")

	content := "0,995,0,30\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadCSV(path); err == nil {
		t.Error("Zero error bar in CSV should be rejected")
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV("/nonexistent/decay.csv"); err == nil {
		t.Error("Missing file should return an error")
	}
}
