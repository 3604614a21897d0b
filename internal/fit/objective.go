package fit

import (
	"github.com/phystat/chifit/internal/data"
	"github.com/phystat/chifit/internal/model"
	"github.com/phystat/chifit/internal/opt"
)

// Chi2 builds the asymmetric chi-square objective for a model over a set
// of observations. For each point the residual is weighted by the error
// bar on the side it falls: errPlus squared when the prediction is above
// the measured value, errMinus squared otherwise. The kink this creates
// at zero residual is part of the statistic and is deliberately not
// smoothed away.
//
// The returned function borrows the observation slice and never mutates
// it. It is pure and tolerates arbitrary parameter values; non-finite
// model output propagates into the returned sum.
func Chi2(m model.Func, obs []data.Observation) opt.ObjectiveFunc {
	return func(params []float64) float64 {
		var total float64
		for _, o := range obs {
			pred := m(params, o.Covariate)
			diff := pred - o.Value
			if diff > 0 {
				total += diff * diff / (o.ErrPlus * o.ErrPlus)
			} else {
				total += diff * diff / (o.ErrMinus * o.ErrMinus)
			}
		}
		return total
	}
}

// Residuals builds the weighted residual vector form of the same
// statistic, for engines that search on residuals rather than the
// scalar sum. dst[i] squared sums to Chi2.
func Residuals(m model.Func, obs []data.Observation) opt.ResidualFunc {
	return func(dst, params []float64) {
		for i, o := range obs {
			pred := m(params, o.Covariate)
			diff := pred - o.Value
			if diff > 0 {
				dst[i] = diff / o.ErrPlus
			} else {
				dst[i] = diff / o.ErrMinus
			}
		}
	}
}
