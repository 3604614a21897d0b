package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phystat/chifit/internal/fit"
	"github.com/phystat/chifit/internal/opt"
)

func sampleResult(success bool) *fit.Result {
	status := opt.StatusConverged
	if !success {
		status = opt.StatusMaxIterations
	}
	return &fit.Result{
		Result: opt.Result{
			Success:    success,
			Status:     status,
			Params:     []float64{0.0998, 1001.2},
			StdErrors:  []float64{0.0021, 12.3},
			Objective:  6.98,
			Iterations: 14,
			FuncCalls:  212,
		},
		Model:      "expdecay",
		Engine:     "newton",
		ParamNames: []string{"lambda", "A0"},
		NPoints:    9,
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(true)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Fit success: yes",
		"lambda",
		"A0",
		"±",
		"chi2 = 6.98",
		"Npoints = 9",
		"Npar = 2",
		"ndf = 7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(false)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Fit success: no") {
		t.Errorf("Output should flag failure:\n%s", out)
	}
	if !strings.Contains(out, "max_iterations") {
		t.Errorf("Output should name the terminal status:\n%s", out)
	}
}
