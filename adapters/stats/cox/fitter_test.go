package cox

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosurv/domain/core"
	"gosurv/domain/survival"
)

// Reference values come from an independent partial-likelihood implementation
// (bisection on the score, Breslow ties, per-subject dfbeta sandwich).
type referenceFit struct {
	coefficient float64
	hazard      float64
	robustSE    float64
	naiveSE     float64
	pValue      float64
}

func censoredDesign() (*survival.Design, survival.RecordValues) {
	return &survival.Design{
			Times:  []float64{5, 8, 8, 12, 15, 15, 20, 23, 27, 30},
			Events: []int{1, 1, 0, 1, 1, 1, 0, 1, 0, 1},
		},
		survival.RecordValues{2.1, 1.4, 0.3, 1.9, 0.5, 1.1, 0.2, 0.9, 0.4, 0.1}
}

func TestFit_ReferenceValues(t *testing.T) {
	d1, v1 := censoredDesign()

	tests := []struct {
		name   string
		design *survival.Design
		values survival.RecordValues
		want   referenceFit
	}{
		{
			name:   "censoring with event/censor tie",
			design: d1,
			values: v1,
			want: referenceFit{
				coefficient: 3.004308840368806,
				hazard:      20.172269018698923,
				robustSE:    0.7296576412311314,
				naiveSE:     1.2643968377718533,
				pValue:      3.8313319032229105e-05,
			},
		},
		{
			name: "no censoring no ties",
			design: &survival.Design{
				Times:  []float64{1, 2, 3, 4, 5, 6},
				Events: []int{1, 1, 1, 1, 1, 1},
			},
			values: survival.RecordValues{0, 1, 0, 1, 1, 1},
			want: referenceFit{
				coefficient: -1.7662149805987297,
				hazard:      0.17097892416051866,
				robustSE:    0.9780946553258101,
				naiveSE:     1.2354455524278452,
				pValue:      0.07095411439836954,
			},
		},
		{
			name: "tied event times",
			design: &survival.Design{
				Times:  []float64{2, 3, 3, 6, 7, 10, 15, 15, 16, 27},
				Events: []int{1, 1, 1, 1, 0, 1, 1, 0, 1, 1},
			},
			values: survival.RecordValues{0.5, -1.2, 0.8, 0.0, 1.5, -0.3, 0.9, -0.7, 1.1, -1.6},
			want: referenceFit{
				coefficient: 0.24129705991390474,
				hazard:      1.2728991064495299,
				robustSE:    0.3286786294355218,
				naiveSE:     0.3664028323371431,
				pValue:      0.46286169100614416,
			},
		},
	}

	fitter := NewFitter(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := fitter.Fit(tt.design, tt.values)
			require.NoError(t, err)

			assert.InEpsilon(t, tt.want.coefficient, model.Coefficient, 1e-6)
			assert.InEpsilon(t, tt.want.hazard, model.HazardRatio, 1e-6)
			assert.InEpsilon(t, tt.want.robustSE, model.StandardError, 1e-6)
			assert.InEpsilon(t, tt.want.naiveSE, model.NaiveStandardError, 1e-6)
			assert.InEpsilon(t, tt.want.pValue, model.PValue, 1e-5)
			assert.InDelta(t, model.Coefficient/model.StandardError, model.ZScore, 1e-12)
		})
	}
}

// Subjects with the low value all fail first, so the partial likelihood is
// monotone and the coefficient runs off towards -Inf until the score vanishes.
// The stopping point depends on the iteration path: each Newton step moves the
// scaled coefficient by 0.5 and the score criterion is met after step 21.
func TestFit_MonotoneLikelihood(t *testing.T) {
	design := &survival.Design{Times: []float64{1, 2, 3, 4}, Events: []int{1, 1, 1, 1}}

	model, err := NewFitter(DefaultOptions()).Fit(design, survival.RecordValues{0, 0, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, 21, model.Iterations)
	assert.InDelta(t, -22.678337789113076, model.Coefficient, 1e-6)
	assert.InEpsilon(t, 1.4155429118975205e-10, model.HazardRatio, 1e-5)
	assert.InDelta(t, 0.745356, model.StandardError, 1e-3)
	assert.InEpsilon(t, 2.4753089630200834e-203, model.PValue, 1e-3)
	assert.InDelta(t, 2*math.Log(0.5), model.LogLikelihood, 1e-8)
	assert.LessOrEqual(t, model.Iterations, DefaultMaxIterations)
}

func TestFit_Failures(t *testing.T) {
	d1, v1 := censoredDesign()

	tests := []struct {
		name   string
		opts   Options
		design *survival.Design
		values survival.RecordValues
		mode   error
	}{
		{
			name:   "constant covariate",
			opts:   DefaultOptions(),
			design: d1,
			values: survival.RecordValues{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			mode:   core.ErrConstantCovariate,
		},
		{
			name:   "iteration budget exhausted",
			opts:   Options{MaxIterations: 2, Tolerance: DefaultTolerance},
			design: d1,
			values: v1,
			mode:   core.ErrNotConverged,
		},
		{
			name:   "only event has a singleton risk set",
			opts:   DefaultOptions(),
			design: &survival.Design{Times: []float64{1, 2, 3}, Events: []int{0, 0, 1}},
			values: survival.RecordValues{1, 2, 3},
			mode:   core.ErrSingularHessian,
		},
		{
			name:   "infinite value",
			opts:   DefaultOptions(),
			design: &survival.Design{Times: []float64{1, 2, 3}, Events: []int{1, 1, 1}},
			values: survival.RecordValues{1, math.Inf(1), 3},
			mode:   core.ErrNonFinite,
		},
		{
			name:   "length mismatch",
			opts:   DefaultOptions(),
			design: &survival.Design{Times: []float64{1, 2, 3}, Events: []int{1, 1, 1}},
			values: survival.RecordValues{1, 2},
			mode:   core.ErrNonFinite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewFitter(tt.opts).Fit(tt.design, tt.values)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.mode), "got %v", err)
			assert.True(t, core.IsModelFitError(err))
			assert.Equal(t, survival.FittedModel{}, model)

			var fitErr *core.ModelFitError
			require.True(t, errors.As(err, &fitErr))
			assert.Equal(t, -1, fitErr.Record)
		})
	}
}

func TestFit_Deterministic(t *testing.T) {
	design, values := censoredDesign()
	fitter := NewFitter(DefaultOptions())

	first, err := fitter.Fit(design, values)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := fitter.Fit(design, values)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(first.HazardRatio), math.Float64bits(again.HazardRatio))
		assert.Equal(t, math.Float64bits(first.PValue), math.Float64bits(again.PValue))
	}
}

func TestFit_TimeScaleInvariance(t *testing.T) {
	design, values := censoredDesign()
	fitter := NewFitter(DefaultOptions())

	base, err := fitter.Fit(design, values)
	require.NoError(t, err)

	for _, factor := range []float64{0.01, 3.5, 365.25} {
		scaled := &survival.Design{Times: make([]float64, len(design.Times)), Events: design.Events}
		for i, tm := range design.Times {
			scaled.Times[i] = tm * factor
		}

		model, err := fitter.Fit(scaled, values)
		require.NoError(t, err)
		assert.Equal(t, math.Signbit(base.Coefficient), math.Signbit(model.Coefficient))
		assert.InDelta(t, base.PValue, model.PValue, 1e-12)
		assert.InDelta(t, base.HazardRatio, model.HazardRatio, 1e-9)
	}
}

func TestFit_CovariateTransforms(t *testing.T) {
	design, values := censoredDesign()
	fitter := NewFitter(DefaultOptions())

	base, err := fitter.Fit(design, values)
	require.NoError(t, err)

	negated := make(survival.RecordValues, len(values))
	doubled := make(survival.RecordValues, len(values))
	shifted := make(survival.RecordValues, len(values))
	for i, v := range values {
		negated[i] = -v
		doubled[i] = 2 * v
		shifted[i] = v + 100
	}

	neg, err := fitter.Fit(design, negated)
	require.NoError(t, err)
	assert.InDelta(t, -base.Coefficient, neg.Coefficient, 1e-8)
	assert.InDelta(t, base.PValue, neg.PValue, 1e-10)

	dbl, err := fitter.Fit(design, doubled)
	require.NoError(t, err)
	assert.InDelta(t, base.Coefficient/2, dbl.Coefficient, 1e-8)
	assert.InDelta(t, base.PValue, dbl.PValue, 1e-10)

	shf, err := fitter.Fit(design, shifted)
	require.NoError(t, err)
	assert.InDelta(t, base.Coefficient, shf.Coefficient, 1e-8)
}

func TestNewFitter_Defaults(t *testing.T) {
	f := NewFitter(Options{})
	assert.Equal(t, DefaultOptions(), f.Options())
	assert.Equal(t, "coxph_breslow_robust", f.Name())
}
