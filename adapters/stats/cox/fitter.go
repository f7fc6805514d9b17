package cox

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"gosurv/domain/core"
	"gosurv/domain/survival"
)

const (
	// DefaultMaxIterations bounds Newton-Raphson. It is the only time limit on a fit.
	DefaultMaxIterations = 30
	// DefaultTolerance applies to the relative log-likelihood change and to the score.
	DefaultTolerance = 1e-9

	maxStepHalvings   = 30
	singularTolerance = 1e-12
)

// Options tune the optimizer
type Options struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns the solver settings used by the service
func DefaultOptions() Options {
	return Options{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Fitter fits univariate Cox proportional-hazards models with Breslow ties and a
// robust variance that treats every subject as its own cluster.
// A Fitter holds no mutable state and is safe for concurrent use.
type Fitter struct {
	opts Options
}

// NewFitter creates a fitter, replacing non-positive options with defaults
func NewFitter(opts Options) *Fitter {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Fitter{opts: opts}
}

// Name returns the model name
func (f *Fitter) Name() string {
	return "coxph_breslow_robust"
}

// Options returns the effective solver settings
func (f *Fitter) Options() Options {
	return f.opts
}

// Fit estimates the log-hazard coefficient of values against the design.
// Any numerical failure is returned as *core.ModelFitError; no partial model is returned.
func (f *Fitter) Fit(design *survival.Design, values survival.RecordValues) (survival.FittedModel, error) {
	if design.NumSubjects() < 2 || len(values) != design.NumSubjects() {
		return survival.FittedModel{}, core.NewModelFitError(core.ErrNonFinite,
			"%d values for %d subjects", len(values), design.NumSubjects())
	}
	for i, v := range values {
		if !isFinite(v) {
			return survival.FittedModel{}, core.NewModelFitError(core.ErrNonFinite, "value for subject %d is %g", i, v)
		}
	}
	if floats.Max(values) == floats.Min(values) {
		return survival.FittedModel{}, core.NewModelFitError(core.ErrConstantCovariate,
			"all %d subjects have value %g", len(values), values[0])
	}

	z, scale, err := standardize(values)
	if err != nil {
		return survival.FittedModel{}, err
	}

	pl := newPartialLikelihood(design, z)
	beta, ev, iterations, err := f.maximize(pl)
	if err != nil {
		return survival.FittedModel{}, err
	}

	robustVar := pl.robustVariance(beta, ev)
	if !isFinite(robustVar) || robustVar <= 0 {
		return survival.FittedModel{}, core.NewModelFitError(core.ErrNonFinite,
			"robust variance is %g at beta=%g", robustVar, beta*scale)
	}

	model := survival.FittedModel{
		Coefficient:        beta * scale,
		StandardError:      math.Sqrt(robustVar) * scale,
		NaiveStandardError: scale / math.Sqrt(ev.information),
		LogLikelihood:      ev.logLik,
		Iterations:         iterations,
	}
	model.HazardRatio = math.Exp(model.Coefficient)
	model.ZScore = model.Coefficient / model.StandardError
	model.PValue = waldPValue(model.ZScore)

	for _, q := range []struct {
		name  string
		value float64
	}{
		{"hazard ratio", model.HazardRatio},
		{"standard error", model.StandardError},
		{"p-value", model.PValue},
	} {
		if !isFinite(q.value) {
			return survival.FittedModel{}, core.NewModelFitError(core.ErrNonFinite, "%s is %g", q.name, q.value)
		}
	}

	return model, nil
}

// maximize runs Newton-Raphson with step halving on the scaled coefficient
func (f *Fitter) maximize(pl *partialLikelihood) (float64, evaluation, int, error) {
	tol := f.opts.Tolerance

	beta := 0.0
	cur, err := pl.checkedEvaluate(beta)
	if err != nil {
		return 0, evaluation{}, 0, err
	}

	converged := math.Abs(cur.score) <= tol
	iter := 0
	for !converged {
		iter++
		if iter > f.opts.MaxIterations {
			return 0, evaluation{}, 0, core.NewModelFitError(core.ErrNotConverged,
				"ran out of iterations (%d) with score %g at log-likelihood %g",
				f.opts.MaxIterations, cur.score, cur.logLik)
		}

		next := beta + cur.score/cur.information
		nextEv, err := pl.checkedEvaluate(next)
		if err != nil {
			return 0, evaluation{}, 0, err
		}

		// Halve the step while the log-likelihood gets meaningfully worse
		for h := 0; nextEv.logLik < cur.logLik && math.Abs(nextEv.logLik-cur.logLik) > tol*math.Abs(cur.logLik); h++ {
			if h == maxStepHalvings {
				return 0, evaluation{}, 0, core.NewModelFitError(core.ErrNotConverged,
					"step halving failed to improve log-likelihood %g at iteration %d", cur.logLik, iter)
			}
			next = (next + beta) / 2
			if nextEv, err = pl.checkedEvaluate(next); err != nil {
				return 0, evaluation{}, 0, err
			}
		}

		converged = math.Abs(nextEv.logLik-cur.logLik) <= tol*math.Abs(nextEv.logLik) ||
			math.Abs(nextEv.score) <= tol
		beta, cur = next, nextEv
	}

	return beta, cur, iter, nil
}

// standardize centers values on their mean and scales by the mean absolute
// deviation, so the tolerances are independent of the covariate's units.
func standardize(values []float64) ([]float64, float64, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, 0, core.NewModelFitError(core.ErrNonFinite, "mean of values: %v", err)
	}

	z := make([]float64, len(values))
	absDev := make([]float64, len(values))
	for i, v := range values {
		z[i] = v - mean
		absDev[i] = math.Abs(z[i])
	}
	meanAbs, err := stats.Mean(absDev)
	if err != nil || !isFinite(meanAbs) || meanAbs == 0 {
		return nil, 0, core.NewModelFitError(core.ErrNonFinite, "cannot scale values (mean absolute deviation %g)", meanAbs)
	}

	floats.Scale(1/meanAbs, z)
	return z, 1 / meanAbs, nil
}

// waldPValue is the two-sided p-value 2*(1-Phi(|z|)), evaluated as 2*Phi(-|z|)
// so that far tails do not cancel to zero.
func waldPValue(z float64) float64 {
	return 2 * distuv.UnitNormal.CDF(-math.Abs(z))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
