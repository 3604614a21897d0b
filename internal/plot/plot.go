// Package plot renders a dataset with its asymmetric error bars and the
// fitted model curve to an image file.
package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/phystat/chifit/internal/data"
	"github.com/phystat/chifit/internal/model"
)

// curveSamples is the number of points used to draw the model curve.
const curveSamples = 200

// errPoints adapts observations to the plotter's error-bar interfaces.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// SaveFitPlot writes a plot of the observations and the model evaluated
// at params to path. The output format follows the file extension
// (.png, .pdf, .svg, ...).
func SaveFitPlot(path, title string, ds *data.Dataset, m model.Func, params []float64) error {
	obs := ds.Observations()

	pts := errPoints{
		XYs:     make(plotter.XYs, len(obs)),
		YErrors: make(plotter.YErrors, len(obs)),
	}
	for i, o := range obs {
		pts.XYs[i].X = o.Covariate
		pts.XYs[i].Y = o.Value
		pts.YErrors[i].Low = o.ErrMinus
		pts.YErrors[i].High = o.ErrPlus
	}

	lo, hi := ds.CovariateRange()
	curve := make(plotter.XYs, curveSamples)
	for i := range curve {
		x := lo + (hi-lo)*float64(i)/float64(curveSamples-1)
		curve[i].X = x
		curve[i].Y = m(params, x)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "covariate"
	p.Y.Label.Text = "value"

	scatter, err := plotter.NewScatter(pts.XYs)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}

	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return fmt.Errorf("failed to build error bars: %w", err)
	}

	line, err := plotter.NewLine(curve)
	if err != nil {
		return fmt.Errorf("failed to build fit curve: %w", err)
	}

	p.Add(scatter, bars, line)
	p.Legend.Add("data", scatter)
	p.Legend.Add("fit", line)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
