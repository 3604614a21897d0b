// Package report renders fit results for the terminal. It consumes the
// result record only; no fitting logic lives here.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/phystat/chifit/internal/fit"
)

// Write renders a fit result in the classic fit-summary layout:
// one parameter per line with its standard error, then the chi-square
// with the point and parameter counts.
func Write(w io.Writer, res *fit.Result) error {
	success := "no"
	if res.Success {
		success = "yes"
	}
	if _, err := fmt.Fprintf(w, "Fit success: %s (%s)\n", success, res.Status); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for i, name := range res.ParamNames {
		fmt.Fprintf(tw, "%s\t= %.6g ± %.3g\n", name, res.Params[i], res.StdErrors[i])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "chi2 = %.6g (Npoints = %d, Npar = %d, ndf = %d)\n",
		res.Objective, res.NPoints, len(res.Params), res.DegreesOfFreedom())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "iterations = %d, function calls = %d\n", res.Iterations, res.FuncCalls)
	return err
}
