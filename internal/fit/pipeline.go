package fit

import (
	"fmt"
	"log/slog"

	"github.com/phystat/chifit/internal/data"
	"github.com/phystat/chifit/internal/model"
	"github.com/phystat/chifit/internal/opt"
)

// Engine names accepted by Run.
const (
	EngineNewton = "newton"
	EngineLM     = "lm"
)

// Problem wires a dataset, a model and an engine configuration into one
// fit. The dataset is borrowed for the duration of Run.
type Problem struct {
	Dataset *data.Dataset
	Model   model.Spec
	Engine  string // EngineNewton (default) or EngineLM
	Config  opt.Config
}

// Result is a fit outcome annotated with the problem context.
type Result struct {
	opt.Result
	Model      string   `json:"model"`
	Engine     string   `json:"engine"`
	ParamNames []string `json:"paramNames"`
	NPoints    int      `json:"nPoints"`
}

// DegreesOfFreedom is the number of observations minus the number of
// free parameters.
func (r *Result) DegreesOfFreedom() int {
	return r.NPoints - len(r.Params)
}

// Run validates the problem and minimizes its chi-square.
func Run(p Problem) (*Result, error) {
	if p.Dataset == nil {
		return nil, fmt.Errorf("fit: dataset is required")
	}
	if p.Model.Func == nil {
		return nil, fmt.Errorf("fit: model is required")
	}
	if len(p.Config.InitialParams) != len(p.Model.ParamNames) {
		return nil, fmt.Errorf("fit: model %s expects %d parameters, got %d initial values",
			p.Model.Name, len(p.Model.ParamNames), len(p.Config.InitialParams))
	}

	obs := p.Dataset.Observations()
	objective := Chi2(p.Model.Func, obs)

	engine := p.Engine
	if engine == "" {
		engine = EngineNewton
	}

	var minimizer opt.Minimizer
	switch engine {
	case EngineNewton:
		minimizer = opt.NewNewton()
	case EngineLM:
		minimizer = opt.NewLM(Residuals(p.Model.Func, obs), len(obs))
	default:
		return nil, fmt.Errorf("fit: unknown engine: %s", engine)
	}

	slog.Info("Starting fit",
		"model", p.Model.Name,
		"engine", engine,
		"points", len(obs),
		"params", len(p.Config.InitialParams),
	)

	res, err := minimizer.Minimize(objective, p.Config)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	slog.Info("Fit complete",
		"model", p.Model.Name,
		"success", res.Success,
		"status", res.Status,
		"chi2", res.Objective,
		"iterations", res.Iterations,
		"calls", res.FuncCalls,
	)

	return &Result{
		Result:     *res,
		Model:      p.Model.Name,
		Engine:     engine,
		ParamNames: p.Model.ParamNames,
		NPoints:    len(obs),
	}, nil
}
